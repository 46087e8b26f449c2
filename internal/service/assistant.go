package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"medrag/internal/apperrors"
	"medrag/internal/corpus"
	"medrag/internal/domain"
	"medrag/internal/generator"
	"medrag/internal/index"
	"medrag/internal/prompt"
	"medrag/internal/retriever"
)

// NoResultsMessage is shown when retrieval finds nothing, typically because no index is built.
const NoResultsMessage = "I couldn't find any relevant information in the database. Please try another question or ensure the database is indexed."

// Status classifies how an Ask call ended.
type Status string

const (
	StatusAnswered       Status = "answered"
	StatusNoResults      Status = "no_results"
	StatusConfigError    Status = "config_error"
	StatusRetrievalError Status = "retrieval_error"
	StatusLLMError       Status = "llm_error"
)

// Response is the outcome of one question. Answer always renders to displayable text.
type Response struct {
	Query   string
	Answer  generator.Result
	Sources []domain.Candidate
	Status  Status
}

// GeneratorFactory builds a generator for the given credential. It must fail with a
// config error when the credential is empty.
type GeneratorFactory func(apiKey string) (generator.Generator, error)

// Options configures an Assistant.
type Options struct {
	XMLDir       string
	CorpusPath   string
	TopK         int
	RerankTopK   int
	APIKey       string
	NewGenerator GeneratorFactory
}

// Assistant orchestrates ingestion, index builds and question answering.
// Questions run concurrently with each other but never with Seed, Ingest or Build.
type Assistant struct {
	opts      Options
	loader    *corpus.Loader
	builder   *index.Builder
	resources *retriever.Resources
	retriever *retriever.Retriever
	logger    *slog.Logger

	mu sync.RWMutex

	genMu  sync.Mutex
	apiKey string
	gen    generator.Generator
}

func NewAssistant(opts Options, loader *corpus.Loader, builder *index.Builder, res *retriever.Resources, logger *slog.Logger) *Assistant {
	return &Assistant{
		opts:      opts,
		loader:    loader,
		builder:   builder,
		resources: res,
		retriever: retriever.New(res),
		apiKey:    strings.TrimSpace(opts.APIKey),
		logger:    logger.With("component", "service.assistant"),
	}
}

// Ask answers query from the indexed corpus. The credential is checked before retrieval.
func (a *Assistant) Ask(ctx context.Context, query string) Response {
	resp := Response{Query: query}
	gen, err := a.generator()
	if err != nil {
		resp.Status = StatusConfigError
		resp.Answer = generator.Failed(err)
		return resp
	}

	start := time.Now()
	a.mu.RLock()
	candidates, err := a.retriever.Retrieve(ctx, query, a.opts.TopK, a.opts.RerankTopK)
	a.mu.RUnlock()
	if err != nil {
		a.logger.Error("retrieval failed", "error", err)
		resp.Status = StatusRetrievalError
		resp.Answer = generator.Failed(err)
		return resp
	}
	if len(candidates) == 0 {
		resp.Status = StatusNoResults
		resp.Answer = generator.Result{Text: NoResultsMessage}
		return resp
	}
	resp.Sources = candidates
	a.logger.Debug("retrieved", "candidates", len(candidates), "elapsed", time.Since(start).String())

	resp.Answer = generator.Answer(ctx, gen, prompt.Compose(query, candidates))
	if resp.Answer.OK() {
		resp.Status = StatusAnswered
	} else {
		a.logger.Error("generation failed", "generator", gen.Name(), "error", resp.Answer.Err)
		resp.Status = StatusLLMError
	}
	return resp
}

// SetCredential replaces the generation credential for subsequent questions.
func (a *Assistant) SetCredential(key string) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	a.apiKey = strings.TrimSpace(key)
	a.gen = nil
}

func (a *Assistant) generator() (generator.Generator, error) {
	a.genMu.Lock()
	defer a.genMu.Unlock()
	if a.gen != nil {
		return a.gen, nil
	}
	if a.opts.NewGenerator == nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "no answer generator configured", nil)
	}
	gen, err := a.opts.NewGenerator(a.apiKey)
	if err != nil {
		return nil, err
	}
	a.gen = gen
	return gen, nil
}

// Seed writes the built-in sample corpus unless one exists.
func (a *Assistant) Seed(context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	written, err := corpus.Seed(a.opts.CorpusPath)
	if err != nil {
		return false, err
	}
	a.logger.Info("seed", "path", a.opts.CorpusPath, "written", written)
	return written, nil
}

// Ingest converts the XML documents under dir (the configured directory when empty) into the corpus.
func (a *Assistant) Ingest(ctx context.Context, dir string) (int, bool, error) {
	if dir == "" {
		dir = a.opts.XMLDir
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loader.LoadDirectory(ctx, dir, a.opts.CorpusPath)
}

// Build rebuilds the index from the corpus and drops the loaded resources.
func (a *Assistant) Build(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ok, err := a.builder.Build(ctx, a.opts.CorpusPath)
	// A failed build may already have removed the old metadata.
	a.resources.Invalidate()
	return ok, err
}

// Ready reports whether questions can be answered from an index.
func (a *Assistant) Ready(ctx context.Context) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.resources.Ready(ctx)
}
