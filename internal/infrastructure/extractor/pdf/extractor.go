package pdf

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// Extractor parses PDF bytes into ordered sections. Heading boundaries are
// detected from font size relative to the document body size, bold font
// names, and construction-spec numbering patterns.
type Extractor struct {
	headingFontScale float64
}

func New(headingFontScale float64) *Extractor {
	if headingFontScale <= 1.0 {
		headingFontScale = 1.15
	}
	return &Extractor{headingFontScale: headingFontScale}
}

func (e *Extractor) Extract(ctx context.Context, pdfBytes []byte) (*domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(pdfBytes) == 0 {
		return nil, domain.WrapError(domain.ErrMalformedDocument, "parse pdf", fmt.Errorf("zero-length input"))
	}

	lines, pageCount, err := readLines(pdfBytes)
	if err != nil {
		return nil, err
	}
	if totalText(lines) == "" {
		return nil, domain.WrapError(domain.ErrEmptyDocument, "extract sections", fmt.Errorf("no extractable text in %d pages", pageCount))
	}

	bodySize := dominantBodySize(lines)
	sections := assembleSections(lines, bodySize, e.headingFontScale, pageCount)

	return &domain.Extraction{
		Sections:  sections,
		PageCount: pageCount,
		Metadata:  sniffMetadata(firstPageText(lines)),
	}, nil
}

// readLines walks every page and groups positioned text runs into reading
// order lines. The underlying parser panics on some malformed streams, so
// the whole walk runs under a recover that maps to ErrMalformedDocument.
func readLines(pdfBytes []byte) (lines []textLine, pageCount int, err error) {
	defer func() {
		if r := recover(); r != nil {
			lines = nil
			err = domain.WrapError(domain.ErrMalformedDocument, "parse pdf", fmt.Errorf("parser panic: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, 0, domain.WrapError(domain.ErrMalformedDocument, "parse pdf", err)
	}

	pageCount = reader.NumPage()
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content := page.Content()
		runs := make([]textRun, 0, len(content.Text))
		for _, t := range content.Text {
			if t.S == "" {
				continue
			}
			runs = append(runs, textRun{
				font: t.Font,
				size: t.FontSize,
				x:    t.X,
				y:    t.Y,
				w:    t.W,
				text: t.S,
			})
		}
		lines = append(lines, buildLines(pageNum, runs)...)
	}
	return lines, pageCount, nil
}

type textRun struct {
	font string
	size float64
	x    float64
	y    float64
	w    float64
	text string
}

type textLine struct {
	page int
	y    float64
	runs []textRun
}

// buildLines groups runs of one page by baseline and orders them for
// reading: top of the page first, left to right within a line.
func buildLines(page int, runs []textRun) []textLine {
	if len(runs) == 0 {
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].y != runs[j].y {
			return runs[i].y > runs[j].y
		}
		return runs[i].x < runs[j].x
	})

	var lines []textLine
	current := textLine{page: page, y: runs[0].y, runs: []textRun{runs[0]}}
	for _, r := range runs[1:] {
		tolerance := 2.0
		if r.size > 0 && 0.4*r.size > tolerance {
			tolerance = 0.4 * r.size
		}
		if current.y-r.y > tolerance {
			lines = append(lines, current)
			current = textLine{page: page, y: r.y, runs: []textRun{r}}
			continue
		}
		current.runs = append(current.runs, r)
	}
	lines = append(lines, current)

	for i := range lines {
		sort.SliceStable(lines[i].runs, func(a, b int) bool {
			return lines[i].runs[a].x < lines[i].runs[b].x
		})
	}
	return lines
}

// text joins the runs of a line, inserting a space where the horizontal gap
// between adjacent runs indicates a word boundary.
func (l textLine) text() string {
	var b strings.Builder
	for i, r := range l.runs {
		if i > 0 {
			prev := l.runs[i-1]
			if r.x-(prev.x+prev.w) > 1.0 && !strings.HasSuffix(prev.text, " ") && !strings.HasPrefix(r.text, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(r.text)
	}
	return strings.TrimSpace(b.String())
}

// maxFontSize is the largest font size carried by any run on the line.
func (l textLine) maxFontSize() float64 {
	max := 0.0
	for _, r := range l.runs {
		if r.size > max {
			max = r.size
		}
	}
	return max
}

// dominantBodySize estimates the document's body font size as the size
// carrying the most characters.
func dominantBodySize(lines []textLine) float64 {
	weights := make(map[float64]int)
	for _, l := range lines {
		for _, r := range l.runs {
			weights[r.size] += len(r.text)
		}
	}

	best, bestWeight := 0.0, -1
	for size, weight := range weights {
		if weight > bestWeight || (weight == bestWeight && size < best) {
			best, bestWeight = size, weight
		}
	}
	return best
}

func totalText(lines []textLine) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.text())
	}
	return strings.TrimSpace(b.String())
}

func firstPageText(lines []textLine) string {
	if len(lines) == 0 {
		return ""
	}
	first := lines[0].page
	var b strings.Builder
	for _, l := range lines {
		if l.page != first {
			break
		}
		b.WriteString(l.text())
		b.WriteByte('\n')
	}
	return b.String()
}

// headingCandidate decides whether a line opens a new section and returns
// the heading text. When a line carries multiple style spans that each
// qualify, the span with the larger font size wins; equal sizes break by
// left-most position.
func headingCandidate(l textLine, bodySize, scale float64) (string, bool) {
	text := l.text()
	if text == "" || len(text) > 120 || !hasLetter(text) {
		return "", false
	}

	byFont := l.maxFontSize() >= bodySize*scale && bodySize > 0
	byWeight := isBoldFont(dominantFont(l))
	byPattern := matchesHeadingPattern(text)
	if !byFont && !byWeight && !byPattern {
		return "", false
	}

	spans := styleSpans(l)
	winner := spans[0]
	for _, s := range spans[1:] {
		if !qualifies(s, bodySize, scale) {
			continue
		}
		if !qualifies(winner, bodySize, scale) {
			winner = s
			continue
		}
		if s.size > winner.size {
			winner = s
		}
		// equal sizes keep the earlier (left-most) span
	}
	if qualifies(winner, bodySize, scale) {
		return strings.TrimSpace(winner.text), true
	}
	return text, true
}

type styleSpan struct {
	font string
	size float64
	x    float64
	endX float64
	text string
}

// styleSpans merges contiguous runs sharing font name and size into one
// span. A horizontal gap splits spans even under the same style, so two
// separated candidates on one line stay distinct for the tie-break.
func styleSpans(l textLine) []styleSpan {
	var spans []styleSpan
	for _, r := range l.runs {
		if n := len(spans); n > 0 &&
			spans[n-1].font == r.font && spans[n-1].size == r.size &&
			r.x-spans[n-1].endX <= 1.0 {
			spans[n-1].text += r.text
			spans[n-1].endX = r.x + r.w
			continue
		}
		spans = append(spans, styleSpan{font: r.font, size: r.size, x: r.x, endX: r.x + r.w, text: r.text})
	}
	return spans
}

func qualifies(s styleSpan, bodySize, scale float64) bool {
	if strings.TrimSpace(s.text) == "" {
		return false
	}
	return (bodySize > 0 && s.size >= bodySize*scale) || isBoldFont(s.font) || matchesHeadingPattern(strings.TrimSpace(s.text))
}

func dominantFont(l textLine) string {
	weights := make(map[string]int)
	for _, r := range l.runs {
		weights[r.font] += len(r.text)
	}
	best, bestWeight := "", -1
	for font, weight := range weights {
		if weight > bestWeight {
			best, bestWeight = font, weight
		}
	}
	return best
}

func isBoldFont(font string) bool {
	f := strings.ToLower(font)
	return strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// assembleSections accumulates body lines under the latest detected heading.
// Text before the first heading becomes a preamble section with an empty
// heading; a document without any headings yields a single section spanning
// every page.
func assembleSections(lines []textLine, bodySize, scale float64, pageCount int) []domain.Section {
	type openSection struct {
		heading   string
		body      strings.Builder
		pageStart int
		pageEnd   int
		started   bool
	}

	var sections []domain.Section
	offset := 0
	current := openSection{}

	flush := func() {
		body := strings.TrimSpace(current.body.String())
		if !current.started || (body == "" && current.heading == "") {
			current = openSection{}
			return
		}
		sections = append(sections, domain.Section{
			Ordinal:     len(sections),
			Heading:     current.heading,
			Body:        body,
			PageStart:   current.pageStart,
			PageEnd:     current.pageEnd,
			OffsetStart: offset,
			OffsetEnd:   offset + len(body),
		})
		offset += len(body)
		current = openSection{}
	}

	for _, l := range lines {
		text := l.text()
		if text == "" {
			continue
		}

		if heading, ok := headingCandidate(l, bodySize, scale); ok {
			flush()
			current = openSection{heading: heading, pageStart: l.page, pageEnd: l.page, started: true}
			continue
		}

		if !current.started {
			current = openSection{pageStart: l.page, pageEnd: l.page, started: true}
		}
		if l.page > current.pageEnd {
			current.pageEnd = l.page
		}
		current.body.WriteString(text)
		current.body.WriteByte('\n')
	}
	flush()

	if len(sections) == 1 && sections[0].Heading == "" {
		// Degenerate case: no headings detected anywhere.
		sections[0].PageStart = 1
		sections[0].PageEnd = pageCount
	}
	return sections
}
