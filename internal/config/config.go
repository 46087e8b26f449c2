package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataConfig locates the source documents and the persisted pipeline state.
type DataConfig struct {
	XMLDir       string `yaml:"xml_dir"`
	CorpusPath   string `yaml:"corpus_path"`
	IndexPath    string `yaml:"index_path"`
	MetadataPath string `yaml:"metadata_path"`
	LogPath      string `yaml:"log_path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HTTPRerankerConfig points at a cross-encoder served behind a /rerank endpoint.
type HTTPRerankerConfig struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RerankerConfig selects the pairwise relevance model.
type RerankerConfig struct {
	Type string              `yaml:"type"`
	HTTP *HTTPRerankerConfig `yaml:"http,omitempty"`
}

// RetrievalConfig holds the two-stage retrieval fan-out.
type RetrievalConfig struct {
	TopK       int `yaml:"top_k"`
	RerankTopK int `yaml:"rerank_top_k"`
}

// GeneratorConfig selects and configures the answer generation service.
type GeneratorConfig struct {
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float32 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// SummarizerConfig configures answer excerpts shown next to sources.
type SummarizerConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Data        DataConfig        `yaml:"data"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/medrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/medrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig { return defaultConfig() }

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "medrag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Data:        defaultData("data"),
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "flat"},
		Reranker:    RerankerConfig{Type: "lexical"},
		Retrieval:   RetrievalConfig{TopK: 10, RerankTopK: 3},
		Generator: GeneratorConfig{
			Type:        "gemini",
			Model:       "gemini-1.5-flash",
			APIKeyEnv:   "GOOGLE_API_KEY",
			TimeoutSecs: 60,
		},
		Summarizer: SummarizerConfig{MaxSentences: 2},
	}
	return cfg
}

func defaultData(dir string) DataConfig {
	return DataConfig{
		XMLDir:       dir,
		CorpusPath:   filepath.Join(dir, "medquad.csv"),
		IndexPath:    filepath.Join(dir, "index.bin"),
		MetadataPath: filepath.Join(dir, "metadata.json"),
		LogPath:      filepath.Join(dir, "medrag.log"),
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	data := defaultData("data")
	if cfg.Data.XMLDir == "" {
		cfg.Data.XMLDir = data.XMLDir
	}
	if cfg.Data.CorpusPath == "" {
		cfg.Data.CorpusPath = data.CorpusPath
	}
	if cfg.Data.IndexPath == "" {
		cfg.Data.IndexPath = data.IndexPath
	}
	if cfg.Data.MetadataPath == "" {
		cfg.Data.MetadataPath = data.MetadataPath
	}
	if cfg.Data.LogPath == "" {
		cfg.Data.LogPath = data.LogPath
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 10
	}
	if cfg.Retrieval.RerankTopK == 0 {
		cfg.Retrieval.RerankTopK = 3
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 2
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "medquad"
		}
	}
	switch cfg.Generator.Type {
	case "gemini", "":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gemini-1.5-flash"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "GOOGLE_API_KEY"
		}
	case "openai":
		if cfg.Generator.Model == "" {
			cfg.Generator.Model = "gpt-4o-mini"
		}
		if cfg.Generator.APIKeyEnv == "" {
			cfg.Generator.APIKeyEnv = "OPENAI_API_KEY"
		}
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
}

// applyEnvOverrides rebases every data path under MEDRAG_DATA_DIR when it is set.
func applyEnvOverrides(cfg *AppConfig) {
	dir := strings.TrimSpace(os.Getenv("MEDRAG_DATA_DIR"))
	if dir == "" {
		return
	}
	cfg.Data = defaultData(dir)
}
