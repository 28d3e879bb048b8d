package generator

import (
	"fmt"
	"strings"

	"github.com/lexforge/lexrag/internal/models"
)

// Disclaimer is appended to answers that are not fully grounded in retrieved
// statute text, so callers never mistake a degraded answer for legal advice.
const Disclaimer = "Note: this answer is for general information only and is not legal advice. Consult a qualified advocate for your specific situation."

const systemPrompt = `You are a legal research assistant answering questions about Indian law.
Answer strictly from the numbered statutory passages provided. Cite the passage
numbers you rely on, e.g. [1]. If the passages do not contain the answer, say so
plainly instead of guessing.`

const systemPromptUngrounded = `You are a legal research assistant answering questions about Indian law.
No statutory passages were retrieved for this question. Answer from general legal
knowledge, state clearly that the answer is not backed by retrieved statute text,
and keep it brief.`

// buildMessages renders the system and user messages for a query.
// Passages are numbered in rank order with their citations so the model can
// reference them and the orchestrator can map citations back to chunk ids.
func buildMessages(query string, pc *models.PromptContext) (system, user string) {
	if pc == nil || pc.Empty() {
		return systemPromptUngrounded, query
	}

	var b strings.Builder
	b.WriteString("Statutory passages:\n\n")
	for i, p := range pc.Passages {
		fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, p.SourceCitation, p.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return systemPrompt, b.String()
}

// WithDisclaimer appends the legal disclaimer unless the text already carries it.
func WithDisclaimer(answer string) string {
	if strings.Contains(answer, "not legal advice") {
		return answer
	}
	return strings.TrimRight(answer, "\n ") + "\n\n" + Disclaimer
}
