package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"medrag/internal/textutil"
)

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	prepared   bool
	stopwords  map[string]struct{}
}

// state is the persisted form of a prepared Embedder. Terms are in vocabulary order.
type state struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary: make(map[string]int),
		stopwords:  textutil.Stopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Sorted terms keep the vector layout stable across builds of the same corpus.
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.load(terms, idf)
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized TF-IDF embedding for the given text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// MarshalState serializes the fitted vocabulary and IDF weights.
func (e *Embedder) MarshalState() ([]byte, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	terms := make([]string, len(e.vocabulary))
	for term, idx := range e.vocabulary {
		terms[idx] = term
	}
	return json.Marshal(state{Terms: terms, IDF: e.idf})
}

// RestoreState loads state produced by MarshalState.
func (e *Embedder) RestoreState(data []byte) error {
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode tfidf state: %w", err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return fmt.Errorf("invalid tfidf state: %d terms, %d weights", len(st.Terms), len(st.IDF))
	}
	e.load(st.Terms, st.IDF)
	return nil
}

func (e *Embedder) load(terms []string, idf []float64) {
	e.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = i
	}
	e.idf = idf
	e.dimension = len(terms)
	e.prepared = true
}

func (e *Embedder) tokenize(text string) []string {
	raw := textutil.Words(text)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}
