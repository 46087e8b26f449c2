package summarizer

import (
	"math"
	"sort"
	"strings"

	"medrag/internal/textutil"
)

// Excerpter picks the most representative sentences of an answer for the sources panel.
// Sentences are ranked by normalised term frequency; terms of the user's question weigh double.
type Excerpter struct {
	maxSentences int
	stopwords    map[string]struct{}
}

func NewExcerpter(maxSentences int) *Excerpter {
	if maxSentences <= 0 {
		maxSentences = 2
	}
	return &Excerpter{maxSentences: maxSentences, stopwords: textutil.Stopwords()}
}

// Excerpt returns at most maxSentences sentences of text in their original order.
func (e *Excerpter) Excerpt(query, text string) string {
	sentences := textutil.Sentences(text)
	if len(sentences) <= e.maxSentences {
		return strings.Join(sentences, " ")
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range textutil.Words(sent) {
			if _, ok := e.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	qset := textutil.ContentSet(query, e.stopwords)
	for k, v := range freq {
		if maxF > 0 {
			v /= maxF
		}
		freq[k] = v
		if _, ok := qset[k]; ok {
			freq[k] *= 2
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := textutil.Words(sent)
		s := 0.0
		for _, tok := range toks {
			s += freq[tok]
		}
		if len(toks) > 0 {
			s /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, e.maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}
