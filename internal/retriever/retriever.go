package retriever

import (
	"context"
	"sort"

	"medrag/internal/apperrors"
	"medrag/internal/domain"
)

const (
	DefaultTopK       = 10
	DefaultRerankTopK = 3
)

// Retriever runs the two retrieval stages: exact vector search, then pairwise reranking
// of the survivors.
type Retriever struct {
	res *Resources
}

func New(res *Resources) *Retriever {
	return &Retriever{res: res}
}

// Retrieve returns at most rerankTopK candidates drawn from the topK nearest rows, ordered by
// rerank score descending with ties kept in search order. It returns an empty result and no
// error while the index is not ready.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK, rerankTopK int) ([]domain.Candidate, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if rerankTopK <= 0 {
		rerankTopK = DefaultRerankTopK
	}
	rows, err := r.res.index(ctx)
	if err != nil {
		return nil, nil
	}

	vec, err := r.res.cfg.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "encode query", err)
	}
	neighbors, err := r.res.cfg.Store.Search(ctx, vec, topK)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "vector search", err)
	}
	candidates := make([]domain.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.ID < 0 || n.ID >= len(rows) {
			continue
		}
		row := rows[n.ID]
		candidates = append(candidates, domain.Candidate{Record: row.Record, ID: row.ID, InitialScore: n.Distance})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	reranker, err := r.res.rerankerFor()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "load reranker", err)
	}
	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Question + " " + c.Answer
	}
	scores, err := reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "rerank", err)
	}
	if len(scores) != len(candidates) {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "rerank returned wrong number of scores", nil)
	}
	for i := range candidates {
		candidates[i].RerankScore = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})
	if len(candidates) > rerankTopK {
		candidates = candidates[:rerankTopK]
	}
	return candidates, nil
}
