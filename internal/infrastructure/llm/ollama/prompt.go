package ollama

import (
	"fmt"
	"strings"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// buildAnswerPrompt lays out recent conversation, the retrieved sections
// with their provenance, and the question. The model is told to stay inside
// the provided context so citations remain honest.
func buildAnswerPrompt(question string, history []domain.Turn, candidates []domain.RetrievalCandidate) string {
	var b strings.Builder

	b.WriteString("You are a construction document assistant. Answer the question using only the document sections below.\n")
	b.WriteString("If the sections do not contain the answer, say so directly.\n\n")

	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			b.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
		}
		b.WriteByte('\n')
	}

	if len(candidates) > 0 {
		b.WriteString("Relevant sections:\n")
		for i, c := range candidates {
			heading := c.Heading
			if heading == "" {
				heading = "(untitled section)"
			}
			b.WriteString(fmt.Sprintf("[%d] %s (pages %d-%d, document %s, score %.3f)\n%s\n\n",
				i+1, heading, c.PageStart, c.PageEnd, c.DocumentID, c.Score, c.Body))
		}
	} else {
		b.WriteString("No relevant sections were found in the indexed documents.\n\n")
	}

	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteByte('\n')
	return b.String()
}
