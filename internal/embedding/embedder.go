package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// StatefulEmbedder is an Embedder whose prepared state must be persisted next to the index
// so that queries are encoded into the same space the corpus was.
type StatefulEmbedder interface {
	Embedder
	MarshalState() ([]byte, error)
	RestoreState(data []byte) error
}

// ModelID identifies the encoding model persisted alongside an index. Embedders that wrap a
// named remote model expose it through a Model method.
func ModelID(e Embedder) string {
	if m, ok := e.(interface{ Model() string }); ok && m.Model() != "" {
		return e.Name() + ":" + m.Model()
	}
	return e.Name()
}

// Text is the string embedded for a corpus row.
func Text(focus, question string) string {
	return "Focus: " + focus + ". Question: " + question + "."
}
