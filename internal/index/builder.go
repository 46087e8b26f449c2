package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"medrag/internal/apperrors"
	"medrag/internal/corpus"
	"medrag/internal/domain"
	"medrag/internal/embedding"
	"medrag/internal/fsutil"
	"medrag/internal/vectorstore"
)

// Builder embeds a corpus snapshot and persists the vector index and its row metadata.
// The same embedder must be used for every build served by one index location.
type Builder struct {
	embedder     embedding.Embedder
	store        vectorstore.Storage
	metadataPath string
	logger       *slog.Logger
}

func NewBuilder(emb embedding.Embedder, store vectorstore.Storage, metadataPath string, logger *slog.Logger) *Builder {
	return &Builder{
		embedder:     emb,
		store:        store,
		metadataPath: metadataPath,
		logger:       logger.With("component", "index.builder"),
	}
}

// Build rebuilds the index from the corpus file. It returns false with a missing_input error
// when the corpus does not exist and false with a no_data error when no row is embeddable;
// in both cases previously persisted state is left untouched.
func (b *Builder) Build(ctx context.Context, corpusPath string) (bool, error) {
	if !fsutil.Exists(corpusPath) {
		return false, apperrors.Wrap(apperrors.CodeMissing, fmt.Sprintf("corpus file %s not found", corpusPath), nil)
	}
	records, err := corpus.ReadCSV(corpusPath)
	if err != nil {
		return false, fmt.Errorf("load corpus: %w", err)
	}

	rows := make([]domain.Row, 0, len(records))
	texts := make([]string, 0, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
			continue
		}
		rows = append(rows, domain.Row{ID: i, Record: r})
		texts = append(texts, embedding.Text(r.Focus, r.Question))
	}
	if len(rows) == 0 {
		return false, apperrors.Wrap(apperrors.CodeNoData, "corpus has no rows with both question and answer", nil)
	}

	start := time.Now()
	model := embedding.ModelID(b.embedder)
	b.logger.Info("building index", "rows", len(rows), "skipped", len(records)-len(rows), "model", model)

	if err := b.embedder.Prepare(texts); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIndex, "prepare embedder", err)
	}
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		v, err := b.embedder.Embed(ctx, text)
		if err != nil {
			return false, apperrors.Wrap(apperrors.CodeIndex, fmt.Sprintf("embed row %d", rows[i].ID), err)
		}
		if i > 0 && len(v) != len(vectors[0]) {
			return false, apperrors.Wrap(apperrors.CodeIndex, fmt.Sprintf("embed row %d: dimension %d differs from %d", rows[i].ID, len(v), len(vectors[0])), nil)
		}
		vectors[i] = v
		if (i+1)%500 == 0 {
			b.logger.Debug("embedding progress", "done", i+1, "total", len(texts))
		}
	}
	dimension := len(vectors[0])

	var state []byte
	if se, ok := b.embedder.(embedding.StatefulEmbedder); ok {
		if state, err = se.MarshalState(); err != nil {
			return false, apperrors.Wrap(apperrors.CodeIndex, "snapshot embedder state", err)
		}
	}

	// Metadata goes first so a failure below leaves the pair visibly incomplete.
	if err := os.Remove(b.metadataPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, apperrors.Wrap(apperrors.CodeIndex, "remove stale metadata", err)
	}
	if err := b.store.Init(ctx, dimension); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIndex, "init index", err)
	}
	if err := b.store.Add(ctx, vectors); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIndex, "add vectors", err)
	}
	if err := b.store.Save(ctx, model); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIndex, "save index", err)
	}
	meta := Metadata{
		Model:         model,
		Dimension:     dimension,
		BuiltAt:       time.Now().UTC(),
		Rows:          rows,
		EmbedderState: state,
	}
	if err := WriteMetadata(b.metadataPath, meta); err != nil {
		return false, apperrors.Wrap(apperrors.CodeIndex, "save metadata", err)
	}
	b.logger.Info("index built", "rows", len(rows), "dimension", dimension, "elapsed", time.Since(start).Truncate(time.Millisecond).String())
	return true, nil
}
