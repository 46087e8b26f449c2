package domain

import "context"

// DefaultFocus is substituted when a source document carries no topic label.
const DefaultFocus = "General Health"

// Record is one FAQ entry of the corpus.
type Record struct {
	Focus    string `json:"focus"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Source   string `json:"source"`
}

// Row is a Record together with its position in the corpus snapshot the index was built from.
type Row struct {
	ID int `json:"id"`
	Record
}

// Neighbor is a single hit of a nearest-neighbour search.
type Neighbor struct {
	ID       int
	Distance float64
}

// Candidate is a Record scored by the two retrieval stages.
type Candidate struct {
	Record
	ID           int
	InitialScore float64
	RerankScore  float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of the chat transcript.
type ConversationTurn struct {
	Role    Role
	Content string
}

// Reranker scores (query, passage) pairs jointly. Higher scores mean more relevant.
type Reranker interface {
	Name() string
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}
