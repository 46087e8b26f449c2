package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"medrag/internal/apperrors"
	"medrag/internal/config"
	"medrag/internal/corpus"
	"medrag/internal/domain"
	"medrag/internal/embedding"
	"medrag/internal/embedding/openai"
	"medrag/internal/embedding/tfidf"
	"medrag/internal/generator"
	"medrag/internal/generator/gemini"
	genopenai "medrag/internal/generator/openai"
	"medrag/internal/index"
	"medrag/internal/rerank"
	"medrag/internal/retriever"
	"medrag/internal/service"
	"medrag/internal/summarizer"
	"medrag/internal/vectorstore"
	"medrag/internal/vectorstore/flat"
	"medrag/internal/vectorstore/qdrant"
)

// App is the assembled pipeline.
type App struct {
	Config    *config.AppConfig
	Assistant *service.Assistant
	Excerpter *summarizer.Excerpter
	Logger    *slog.Logger
}

// New wires every component selected by cfg. apiKey overrides the generator credential
// read from the environment.
func New(cfg *config.AppConfig, logger *slog.Logger, apiKey string) (*App, error) {
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(cfg.VectorStore, cfg.Data.IndexPath)
	if err != nil {
		return nil, err
	}
	if _, err := NewReranker(cfg.Reranker); err != nil {
		return nil, err
	}

	res := retriever.NewResources(retriever.ResourcesConfig{
		Embedder:     emb,
		Store:        store,
		MetadataPath: cfg.Data.MetadataPath,
		NewReranker:  func() (domain.Reranker, error) { return NewReranker(cfg.Reranker) },
		Logger:       logger,
	})
	builder := index.NewBuilder(emb, store, cfg.Data.MetadataPath, logger)
	assistant := service.NewAssistant(service.Options{
		XMLDir:       cfg.Data.XMLDir,
		CorpusPath:   cfg.Data.CorpusPath,
		TopK:         cfg.Retrieval.TopK,
		RerankTopK:   cfg.Retrieval.RerankTopK,
		APIKey:       ResolveAPIKey(cfg.Generator, apiKey),
		NewGenerator: GeneratorFactory(cfg.Generator),
	}, corpus.NewLoader(logger), builder, res, logger)

	logger.Debug("pipeline assembled",
		"embedder", embedding.ModelID(emb),
		"vector_store", typeOr(cfg.VectorStore.Type, "flat"),
		"reranker", typeOr(cfg.Reranker.Type, "lexical"),
		"generator", typeOr(cfg.Generator.Type, "gemini"))
	return &App{
		Config:    cfg,
		Assistant: assistant,
		Excerpter: summarizer.NewExcerpter(cfg.Summarizer.MaxSentences),
		Logger:    logger,
	}, nil
}

func NewEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "openai embedder config missing", nil)
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "openai embedder init failed", err)
		}
		return client, nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("unknown embedder: %s", cfg.Type), nil)
	}
}

func NewStore(cfg config.VectorStoreConfig, indexPath string) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "flat", "":
		return flat.NewStorage(indexPath), nil
	case "qdrant":
		if cfg.Qdrant == nil || strings.TrimSpace(cfg.Qdrant.URL) == "" {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "qdrant config missing", nil)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("unknown vector store: %s", cfg.Type), nil)
	}
}

func NewReranker(cfg config.RerankerConfig) (domain.Reranker, error) {
	switch cfg.Type {
	case "lexical", "":
		return rerank.NewLexical(), nil
	case "http":
		if cfg.HTTP == nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "http reranker config missing", nil)
		}
		r, err := rerank.NewHTTP(rerank.HTTPConfig{
			URL:       cfg.HTTP.URL,
			Model:     cfg.HTTP.Model,
			APIKeyEnv: cfg.HTTP.APIKeyEnv,
			Timeout:   time.Duration(cfg.HTTP.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "http reranker init failed", err)
		}
		return r, nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("unknown reranker: %s", cfg.Type), nil)
	}
}

// GeneratorFactory returns a constructor for the configured generator. Constructors fail
// with a config error on an empty key.
func GeneratorFactory(cfg config.GeneratorConfig) service.GeneratorFactory {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return func(apiKey string) (generator.Generator, error) {
		switch cfg.Type {
		case "gemini", "":
			c, err := gemini.New(gemini.Config{
				APIKey:      apiKey,
				APIKeyEnv:   cfg.APIKeyEnv,
				Model:       cfg.Model,
				BaseURL:     cfg.BaseURL,
				Temperature: cfg.Temperature,
				Timeout:     timeout,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		case "openai":
			c, err := genopenai.New(genopenai.Config{
				APIKey:      apiKey,
				APIKeyEnv:   cfg.APIKeyEnv,
				Model:       cfg.Model,
				BaseURL:     cfg.BaseURL,
				Temperature: cfg.Temperature,
				Timeout:     timeout,
			})
			if err != nil {
				return nil, err
			}
			return c, nil
		default:
			return nil, apperrors.Wrap(apperrors.CodeConfig, fmt.Sprintf("unknown generator: %s", cfg.Type), nil)
		}
	}
}

// ResolveAPIKey prefers an explicit key over the configured environment variable.
func ResolveAPIKey(cfg config.GeneratorConfig, override string) string {
	if k := strings.TrimSpace(override); k != "" {
		return k
	}
	if cfg.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
}

func typeOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
