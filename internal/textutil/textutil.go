package textutil

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Words returns the lower-cased word tokens of s.
func Words(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// Sentences splits s on terminal punctuation. Trailing text without punctuation is kept as
// the last sentence.
func Sentences(s string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(s, -1) {
		if sent := strings.TrimSpace(s[loc[0]:loc[1]]); sent != "" {
			out = append(out, sent)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(s[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Stopwords returns the English function words ignored by lexical scoring.
func Stopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// ContentSet returns the distinct non-stopword tokens of s.
func ContentSet(s string, stop map[string]struct{}) map[string]struct{} {
	tokens := Words(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := stop[t]; ok {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}
