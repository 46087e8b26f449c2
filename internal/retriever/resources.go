package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"medrag/internal/domain"
	"medrag/internal/embedding"
	"medrag/internal/index"
	"medrag/internal/vectorstore"
)

// ResourcesConfig wires the shared objects a Resources holder loads into.
type ResourcesConfig struct {
	Embedder     embedding.Embedder
	Store        vectorstore.Storage
	MetadataPath string
	// NewReranker is called at most once per holder generation.
	NewReranker func() (domain.Reranker, error)
	Logger      *slog.Logger
}

// Resources holds the loaded index+metadata pair and the reranker. Each is loaded at most
// once; a failed load is remembered until Invalidate is called.
type Resources struct {
	cfg    ResourcesConfig
	logger *slog.Logger

	mu         sync.Mutex
	indexTried bool
	rows       []domain.Row
	indexErr   error

	rerankTried bool
	reranker    domain.Reranker
	rerankErr   error
}

func NewResources(cfg ResourcesConfig) *Resources {
	return &Resources{cfg: cfg, logger: cfg.Logger.With("component", "retriever.resources")}
}

// Ready reports whether a consistent index and metadata pair is loaded.
func (r *Resources) Ready(ctx context.Context) bool {
	_, err := r.index(ctx)
	return err == nil
}

// Invalidate drops everything loaded so the next call reloads from disk.
func (r *Resources) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexTried = false
	r.rows = nil
	r.indexErr = nil
	r.rerankTried = false
	r.reranker = nil
	r.rerankErr = nil
}

func (r *Resources) index(ctx context.Context) ([]domain.Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.indexTried {
		r.indexTried = true
		r.rows, r.indexErr = r.loadIndex(ctx)
		if r.indexErr != nil {
			r.logger.Warn("index not ready", "error", r.indexErr)
		} else {
			r.logger.Info("index loaded", "rows", len(r.rows), "model", embedding.ModelID(r.cfg.Embedder))
		}
	}
	return r.rows, r.indexErr
}

func (r *Resources) loadIndex(ctx context.Context) ([]domain.Row, error) {
	meta, err := index.ReadMetadata(r.cfg.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}
	want := embedding.ModelID(r.cfg.Embedder)
	if meta.Model != want {
		return nil, fmt.Errorf("index built with %q, configured embedder is %q", meta.Model, want)
	}
	if se, ok := r.cfg.Embedder.(embedding.StatefulEmbedder); ok {
		if len(meta.EmbedderState) == 0 {
			return nil, errors.New("metadata carries no embedder state")
		}
		if err := se.RestoreState(meta.EmbedderState); err != nil {
			return nil, err
		}
	}
	model, err := r.cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if model != "" && model != meta.Model {
		return nil, fmt.Errorf("index model %q does not match metadata model %q", model, meta.Model)
	}
	n, err := r.cfg.Store.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	if n != len(meta.Rows) {
		return nil, fmt.Errorf("index has %d vectors, metadata has %d rows", n, len(meta.Rows))
	}
	if d := r.cfg.Store.Dimension(); d != meta.Dimension {
		return nil, fmt.Errorf("index dimension %d, metadata dimension %d", d, meta.Dimension)
	}
	// Remote embedders learn their dimension on first use.
	if d := r.cfg.Embedder.Dimension(); d != 0 && d != meta.Dimension {
		return nil, fmt.Errorf("embedder dimension %d, index dimension %d", d, meta.Dimension)
	}
	return meta.Rows, nil
}

func (r *Resources) rerankerFor() (domain.Reranker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.rerankTried {
		r.rerankTried = true
		if r.cfg.NewReranker == nil {
			r.rerankErr = errors.New("no reranker configured")
		} else {
			r.reranker, r.rerankErr = r.cfg.NewReranker()
		}
		if r.rerankErr != nil {
			r.logger.Error("reranker unavailable", "error", r.rerankErr)
		} else {
			r.logger.Info("reranker loaded", "reranker", r.reranker.Name())
		}
	}
	return r.reranker, r.rerankErr
}
