package rerank

import (
	"context"
	"math"

	"medrag/internal/textutil"
)

// questionWords are ignored on top of the regular stopwords so that the interrogative
// framing shared by every FAQ entry does not count as overlap.
var questionWords = []string{
	"what", "how", "does", "do", "did", "which", "who", "whom", "whose", "why", "when", "where",
	"i", "me", "my", "you", "your", "we", "our", "there", "any", "has", "have", "had",
}

// Lexical scores a passage by the Ochiai coefficient between the content words of the
// query and the passage: |A∩B| / sqrt(|A|·|B|).
type Lexical struct {
	stopwords map[string]struct{}
}

func NewLexical() *Lexical {
	stop := textutil.Stopwords()
	for _, w := range questionWords {
		stop[w] = struct{}{}
	}
	return &Lexical{stopwords: stop}
}

func (l *Lexical) Name() string { return "lexical" }

// Score never fails; an empty query scores every passage 0.
func (l *Lexical) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	qset := textutil.ContentSet(query, l.stopwords)
	scores := make([]float64, len(passages))
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[i] = ochiai(qset, textutil.ContentSet(p, l.stopwords))
	}
	return scores, nil
}

func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
