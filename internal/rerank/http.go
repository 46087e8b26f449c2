package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var maxResponseBytes int64 = 4 << 20

// HTTPConfig configures a cross-encoder served behind a /rerank endpoint.
type HTTPConfig struct {
	URL       string
	Model     string
	APIKeyEnv string
	Timeout   time.Duration
}

// HTTP calls a remote cross-encoder. It speaks the text-embeddings-inference API and the
// Cohere/Jina style API; the request carries the fields of both.
type HTTP struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("reranker url is empty")
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &HTTP{
		url:    strings.TrimRight(cfg.URL, "/"),
		model:  cfg.Model,
		apiKey: key,
		client: &http.Client{Timeout: t},
	}, nil
}

func (h *HTTP) Name() string {
	if h.model == "" {
		return "http"
	}
	return "http:" + h.model
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	Documents []string `json:"documents"`
	RawScores bool     `json:"raw_scores"`
	TopN      int      `json:"top_n"`
}

type rankedItem struct {
	Index          int      `json:"index"`
	Score          *float64 `json:"score"`
	RelevanceScore *float64 `json:"relevance_score"`
}

// Score returns one score per passage in input order.
func (h *HTTP) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rerankRequest{
		Model:     h.model,
		Query:     query,
		Texts:     passages,
		Documents: passages,
		RawScores: true,
		TopN:      len(passages),
	})
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/rerank", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if int64(len(payload)) > maxResponseBytes {
		return nil, fmt.Errorf("rerank response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank failed: %s", resp.Status)
	}
	items, err := decodeRanked(payload)
	if err != nil {
		return nil, err
	}
	return alignScores(items, len(passages))
}

// decodeRanked accepts a bare array (text-embeddings-inference) or {"results":[...]}.
func decodeRanked(payload []byte) ([]rankedItem, error) {
	var items []rankedItem
	if err := json.Unmarshal(payload, &items); err == nil {
		return items, nil
	}
	var wrapped struct {
		Results []rankedItem `json:"results"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return wrapped.Results, nil
}

func alignScores(items []rankedItem, n int) ([]float64, error) {
	scores := make([]float64, n)
	seen := make([]bool, n)
	for _, it := range items {
		if it.Index < 0 || it.Index >= n {
			return nil, fmt.Errorf("rerank response index %d out of range", it.Index)
		}
		switch {
		case it.Score != nil:
			scores[it.Index] = *it.Score
		case it.RelevanceScore != nil:
			scores[it.Index] = *it.RelevanceScore
		default:
			return nil, fmt.Errorf("rerank response item %d has no score", it.Index)
		}
		seen[it.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response missing passage %d", i)
		}
	}
	return scores, nil
}
