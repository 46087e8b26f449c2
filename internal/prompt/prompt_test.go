package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

func TestComposeLayout(t *testing.T) {
	candidates := []domain.Candidate{
		{Record: domain.Record{Focus: "Influenza", Question: "What are the symptoms of the flu?", Answer: "Fever and cough."}},
		{Record: domain.Record{Question: "Is it contagious?", Answer: "Yes."}},
	}
	want := "You are a trusted healthcare assistant. Use the following medical context to answer the user's question.\n" +
		"If the answer is not contained in the context, say \"I don't have enough information in my knowledge base to answer this accurately.\" and advise them to consult a doctor.\n" +
		"Do not hallucinate information.\n\n" +
		"User Question: flu?\n\n" +
		"Context:\n" +
		"Source 1 (Focus: Influenza):\nQ: What are the symptoms of the flu?\nA: Fever and cough.\n\n" +
		"Source 2 (Focus: GeneralResponse):\nQ: Is it contagious?\nA: Yes.\n\n" +
		"\n\nAnswer:"
	require.Equal(t, want, Compose("flu?", candidates))
}

func TestComposeIsDeterministic(t *testing.T) {
	candidates := []domain.Candidate{
		{Record: domain.Record{Focus: "A", Question: "q1", Answer: "a1"}, RerankScore: 0.5},
		{Record: domain.Record{Focus: "B", Question: "q2", Answer: "a2"}, RerankScore: 0.1},
	}
	first := Compose("query", candidates)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Compose("query", candidates))
	}
}

func TestComposeWithoutCandidates(t *testing.T) {
	got := Compose("anything", nil)
	require.Contains(t, got, "Context:\n\n\nAnswer:")
	require.Contains(t, got, Fallback)
}
