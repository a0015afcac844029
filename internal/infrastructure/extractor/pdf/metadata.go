package pdf

import (
	"regexp"
	"strings"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// Numbering conventions of construction specifications: CSI-style section
// numbers, articles, and decimal clause numbering.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i:section)\s+\d+`),
	regexp.MustCompile(`^(?i:article)\s+\d+`),
	regexp.MustCompile(`^\d+\.\d+\s+[A-Z]`),
	regexp.MustCompile(`^\d+\.\s+[A-Z]`),
}

func matchesHeadingPattern(line string) bool {
	for _, p := range headingPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

var documentTypeKeywords = []struct {
	docType  string
	keywords []string
}{
	{"contract", []string{"agreement", "contract", "general conditions"}},
	{"specifications", []string{"technical specifications", "specifications", "spec"}},
	{"drawing", []string{"drawing", "plan", "detail"}},
	{"permit", []string{"permit", "certification", "approval"}},
	{"submittal", []string{"submittal", "shop drawing", "material data"}},
	{"estimate", []string{"estimate", "budget", "cost analysis"}},
	{"schedule", []string{"schedule", "timeline", "project timeline"}},
	{"inspection", []string{"inspection report", "site inspection", "field report"}},
	{"change_order", []string{"change order", "work change directive", "modification"}},
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Date:\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`Issued:\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`Rev\s*Date:\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
	regexp.MustCompile(`Effective\s*Date:\s*(\d{1,2}[-/]\d{1,2}[-/]\d{2,4})`),
}

var projectNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Project\s*(?:No|Number|#)[:.]?\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`Project\s*ID[:.]?\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`Contract\s*(?:No|Number|#)[:.]?\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`Job\s*(?:No|Number|#)[:.]?\s*([A-Za-z0-9-]+)`),
}

var revisionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Rev(?:ision)?\s*(?:No|Number|#)?[:.]\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`Version\s*[:.]\s*([A-Za-z0-9-]+)`),
	regexp.MustCompile(`(?:Rev|Revision)\s+([A-Za-z0-9-]+)`),
}

// sniffMetadata pulls construction-document fields from first-page text.
// Every field is best effort; absence is an empty string, never an error.
func sniffMetadata(firstPage string) domain.DocumentMetadata {
	return domain.DocumentMetadata{
		DocumentType:  identifyDocumentType(firstPage),
		DocumentDate:  firstMatch(datePatterns, firstPage),
		ProjectNumber: firstMatch(projectNumberPatterns, firstPage),
		Revision:      firstMatch(revisionPatterns, firstPage),
	}
}

func identifyDocumentType(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range documentTypeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.docType
			}
		}
	}
	return "unspecified"
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
