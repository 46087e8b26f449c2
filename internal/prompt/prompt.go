package prompt

import (
	"fmt"
	"strings"

	"medrag/internal/domain"
)

// Fallback is the sentence the model is told to use when the context does not hold the answer.
const Fallback = "I don't have enough information in my knowledge base to answer this accurately."

const unlabeledFocus = "GeneralResponse"

// Compose renders the candidates, in order, into the instruction sent to the generator.
// It is deterministic in its inputs.
func Compose(query string, candidates []domain.Candidate) string {
	var context strings.Builder
	for i, c := range candidates {
		focus := c.Focus
		if focus == "" {
			focus = unlabeledFocus
		}
		fmt.Fprintf(&context, "Source %d (Focus: %s):\n", i+1, focus)
		fmt.Fprintf(&context, "Q: %s\n", c.Question)
		fmt.Fprintf(&context, "A: %s\n\n", c.Answer)
	}

	var b strings.Builder
	b.WriteString("You are a trusted healthcare assistant. Use the following medical context to answer the user's question.\n")
	b.WriteString(`If the answer is not contained in the context, say "` + Fallback + `" and advise them to consult a doctor.` + "\n")
	b.WriteString("Do not hallucinate information.\n\n")
	b.WriteString("User Question: " + query + "\n\n")
	b.WriteString("Context:\n")
	b.WriteString(context.String())
	b.WriteString("\n\nAnswer:")
	return b.String()
}
