package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"medrag/internal/corpus"
	"medrag/internal/textutil"
)

func TestExcerptShortAnswerUnchanged(t *testing.T) {
	e := NewExcerpter(2)
	require.Equal(t, "One. Two.", e.Excerpt("q", "One.  Two."))
	require.Equal(t, "no punctuation", e.Excerpt("q", "  no punctuation "))
	require.Empty(t, e.Excerpt("q", "   "))
}

func TestExcerptKeepsOriginalOrder(t *testing.T) {
	text := corpus.SampleRecords[1].Answer
	got := NewExcerpter(2).Excerpt("How does the flu spread?", text)
	sentences := []string{
		"Most experts believe that flu viruses spread mainly by tiny droplets made when people with flu cough, sneeze or talk.",
		"These droplets can land in the mouths or noses of people who are nearby.",
		"Less often, a person might get flu by touching a surface or object that has flu virus on it and then touching their own mouth, nose, or possibly their eyes.",
	}
	require.Contains(t, got, sentences[0])
	last := -1
	count := 0
	for _, s := range sentences {
		if i := strings.Index(got, s); i >= 0 {
			require.Greater(t, i, last)
			last = i
			count++
		}
	}
	require.Equal(t, 2, count)
}

func TestExcerptDefaultsSentenceCount(t *testing.T) {
	got := NewExcerpter(0).Excerpt("", "A one. B two. C three. D four.")
	require.Len(t, textutil.Sentences(got), 2)
}

func TestExcerptWeighsQueryTerms(t *testing.T) {
	text := "Apples are red. Apples are sweet. Bananas grow here."
	e := NewExcerpter(1)
	require.Equal(t, "Apples are red.", e.Excerpt("", text))
	require.Equal(t, "Bananas grow here.", e.Excerpt("Where do bananas grow?", text))
}
