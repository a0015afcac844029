package pdf

import (
	"context"
	"strings"
	"testing"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

func line(page int, y float64, runs ...textRun) textLine {
	return textLine{page: page, y: y, runs: runs}
}

func run(font string, size, x float64, text string) textRun {
	return textRun{font: font, size: size, x: x, w: float64(len(text)) * size * 0.5, text: text}
}

func bodyRun(x float64, text string) textRun {
	return run("Helvetica", 10, x, text)
}

func headingRun(x float64, text string) textRun {
	return run("Helvetica-Bold", 14, x, text)
}

func TestExtractRejectsNonPDFBytes(t *testing.T) {
	e := New(1.15)
	_, err := e.Extract(context.Background(), []byte("definitely not a pdf"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	e := New(1.15)
	_, err := e.Extract(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
}

func TestAssembleSectionsDetectsBoldHeadings(t *testing.T) {
	lines := []textLine{
		line(1, 700, headingRun(50, "Concrete Specifications")),
		line(1, 680, bodyRun(50, "Use 4000 psi mix for all footings.")),
		line(2, 700, bodyRun(50, "Cure for a minimum of 7 days.")),
		line(2, 600, headingRun(50, "Rebar Requirements")),
		line(3, 700, bodyRun(50, "Grade 60 deformed bars throughout.")),
	}

	sections := assembleSections(lines, 10, 1.15, 3)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d: %+v", len(sections), sections)
	}

	first := sections[0]
	if first.Heading != "Concrete Specifications" {
		t.Fatalf("unexpected first heading %q", first.Heading)
	}
	if first.PageStart != 1 || first.PageEnd != 2 {
		t.Fatalf("expected first section pages 1-2, got %d-%d", first.PageStart, first.PageEnd)
	}

	second := sections[1]
	if second.Heading != "Rebar Requirements" {
		t.Fatalf("unexpected second heading %q", second.Heading)
	}
	if second.PageStart != 2 || second.PageEnd != 3 {
		t.Fatalf("expected second section pages 2-3, got %d-%d", second.PageStart, second.PageEnd)
	}
}

func TestAssembleSectionsKeepsPreambleBeforeFirstHeading(t *testing.T) {
	lines := []textLine{
		line(1, 720, bodyRun(50, "Project cover sheet text.")),
		line(1, 700, headingRun(50, "Scope of Work")),
		line(1, 680, bodyRun(50, "All site preparation activities.")),
	}

	sections := assembleSections(lines, 10, 1.15, 1)
	if len(sections) != 2 {
		t.Fatalf("expected preamble + section, got %d", len(sections))
	}
	if sections[0].Heading != "" || !strings.Contains(sections[0].Body, "cover sheet") {
		t.Fatalf("expected preamble section, got %+v", sections[0])
	}
	if sections[1].Heading != "Scope of Work" {
		t.Fatalf("unexpected heading %q", sections[1].Heading)
	}
}

func TestAssembleSectionsInvariants(t *testing.T) {
	lines := []textLine{
		line(1, 720, bodyRun(50, "Preamble.")),
		line(1, 700, headingRun(50, "First")),
		line(2, 700, bodyRun(50, "Body one.")),
		line(2, 600, headingRun(50, "Second")),
		line(3, 700, bodyRun(50, "Body two.")),
		line(3, 600, headingRun(50, "Third")),
		line(3, 580, bodyRun(50, "Body three.")),
	}

	sections := assembleSections(lines, 10, 1.15, 3)
	offset := 0
	lastPageStart := 0
	for i, s := range sections {
		if s.Ordinal != i {
			t.Fatalf("ordinals not contiguous: section %d has ordinal %d", i, s.Ordinal)
		}
		if s.OffsetStart != offset {
			t.Fatalf("offset gap at section %d: want %d got %d", i, offset, s.OffsetStart)
		}
		if s.OffsetEnd != s.OffsetStart+len(s.Body) {
			t.Fatalf("offset end mismatch at section %d", i)
		}
		offset = s.OffsetEnd
		if s.PageStart < lastPageStart {
			t.Fatalf("page ranges decrease at section %d", i)
		}
		if s.PageEnd < s.PageStart {
			t.Fatalf("section %d ends before it starts: %d-%d", i, s.PageStart, s.PageEnd)
		}
		lastPageStart = s.PageStart
	}
}

func TestAssembleSectionsWithoutHeadingsYieldsSingleSpanningSection(t *testing.T) {
	lines := []textLine{
		line(1, 700, bodyRun(50, "Plain text page one.")),
		line(2, 700, bodyRun(50, "Plain text page two.")),
	}

	sections := assembleSections(lines, 10, 1.15, 2)
	if len(sections) != 1 {
		t.Fatalf("expected a single section, got %d", len(sections))
	}
	if sections[0].Heading != "" {
		t.Fatalf("expected empty heading, got %q", sections[0].Heading)
	}
	if sections[0].PageStart != 1 || sections[0].PageEnd != 2 {
		t.Fatalf("expected section to span the whole document, got %d-%d", sections[0].PageStart, sections[0].PageEnd)
	}
}

func TestHeadingCandidateByNumberingPattern(t *testing.T) {
	l := line(1, 700, bodyRun(50, "1.2 GENERAL REQUIREMENTS"))
	heading, ok := headingCandidate(l, 10, 1.15)
	if !ok {
		t.Fatalf("expected numbering pattern to qualify as heading")
	}
	if heading != "1.2 GENERAL REQUIREMENTS" {
		t.Fatalf("unexpected heading %q", heading)
	}
}

func TestHeadingCandidateIgnoresLongBodyLines(t *testing.T) {
	long := strings.Repeat("all concrete shall be mixed on site ", 5)
	l := line(1, 700, bodyRun(50, long))
	if _, ok := headingCandidate(l, 10, 1.15); ok {
		t.Fatalf("long body line must not become a heading")
	}
}

func TestHeadingCandidateTieBreakPrefersLargerFont(t *testing.T) {
	l := line(1, 700,
		run("Helvetica-Bold", 12, 50, "SECTION 03"),
		run("Helvetica-Bold", 16, 140, "CONCRETE"),
	)
	heading, ok := headingCandidate(l, 10, 1.15)
	if !ok {
		t.Fatalf("expected heading")
	}
	if heading != "CONCRETE" {
		t.Fatalf("larger font span should win the tie-break, got %q", heading)
	}
}

func TestHeadingCandidateTieBreakEqualFontPrefersLeftmost(t *testing.T) {
	l := line(1, 700,
		run("Helvetica-Bold", 14, 50, "DIVISION 3"),
		run("Helvetica-Bold", 14, 150, "CONCRETE"),
	)
	heading, ok := headingCandidate(l, 10, 1.15)
	if !ok {
		t.Fatalf("expected heading")
	}
	if heading != "DIVISION 3" {
		t.Fatalf("left-most span should win an equal-size tie, got %q", heading)
	}
}

func TestBuildLinesGroupsByBaselineAndOrdersLeftToRight(t *testing.T) {
	runs := []textRun{
		run("Helvetica", 10, 120, "world"),
		run("Helvetica", 10, 50, "hello"),
		run("Helvetica", 10, 50, "below"),
	}
	runs[0].y = 700
	runs[1].y = 700.5
	runs[2].y = 650

	lines := buildLines(1, runs)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if got := lines[0].text(); !strings.HasPrefix(got, "hello") || !strings.Contains(got, "world") {
		t.Fatalf("unexpected first line %q", got)
	}
	if got := lines[1].text(); got != "below" {
		t.Fatalf("unexpected second line %q", got)
	}
}

func TestSniffMetadata(t *testing.T) {
	text := "TECHNICAL SPECIFICATIONS\nProject No: ABC-1234\nDate: 03/15/2024\nRev: B\n"
	meta := sniffMetadata(text)
	if meta.DocumentType != "specifications" {
		t.Fatalf("unexpected document type %q", meta.DocumentType)
	}
	if meta.ProjectNumber != "ABC-1234" {
		t.Fatalf("unexpected project number %q", meta.ProjectNumber)
	}
	if meta.DocumentDate != "03/15/2024" {
		t.Fatalf("unexpected date %q", meta.DocumentDate)
	}
	if meta.Revision != "B" {
		t.Fatalf("unexpected revision %q", meta.Revision)
	}
}

func TestDominantBodySizeWeightsByTextLength(t *testing.T) {
	lines := []textLine{
		line(1, 700, run("Helvetica-Bold", 16, 50, "Short Heading")),
		line(1, 680, bodyRun(50, "A much longer body line that dominates the character count of this page.")),
		line(1, 660, bodyRun(50, "Another long body line with plenty of characters in the body font size.")),
	}
	if got := dominantBodySize(lines); got != 10 {
		t.Fatalf("expected body size 10, got %g", got)
	}
}
