package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var corpus = []string{
	"Focus: Influenza. Question: What are the symptoms of the flu?.",
	"Focus: Influenza. Question: How does the flu spread?.",
	"Focus: Diabetes. Question: What is type 2 diabetes?.",
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func TestEmbedRequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "flu")
	require.Error(t, err)
}

func TestPrepareRejectsEmptyCorpus(t *testing.T) {
	require.Error(t, NewEmbedder().Prepare(nil))
	require.Error(t, NewEmbedder().Prepare([]string{"the of and"}))
}

func TestEmbedIsNormalizedAndFixedDimension(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	require.Positive(t, e.Dimension())

	v, err := e.Embed(context.Background(), "symptoms of flu")
	require.NoError(t, err)
	require.Len(t, v, e.Dimension())
	require.InDelta(t, 1.0, norm(v), 1e-9)

	unknown, err := e.Embed(context.Background(), "zzz qqq")
	require.NoError(t, err)
	require.Len(t, unknown, e.Dimension())
	require.Zero(t, norm(unknown))
}

func TestStateRoundTripEmbedsIdentically(t *testing.T) {
	fitted := NewEmbedder()
	require.NoError(t, fitted.Prepare(corpus))
	data, err := fitted.MarshalState()
	require.NoError(t, err)

	restored := NewEmbedder()
	require.NoError(t, restored.RestoreState(data))
	require.Equal(t, fitted.Dimension(), restored.Dimension())

	for _, q := range []string{"flu symptoms", "type 2 diabetes", "spread"} {
		a, err := fitted.Embed(context.Background(), q)
		require.NoError(t, err)
		b, err := restored.Embed(context.Background(), q)
		require.NoError(t, err)
		require.Equal(t, a, b, q)
	}
}

func TestRestoreStateRejectsGarbage(t *testing.T) {
	require.Error(t, NewEmbedder().RestoreState([]byte("{")))
	require.Error(t, NewEmbedder().RestoreState([]byte(`{"terms":["a"],"idf":[]}`)))
	_, err := NewEmbedder().MarshalState()
	require.Error(t, err)
}
