package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medrag/internal/domain"
)

// upsertBatch bounds the number of points sent per request.
const upsertBatch = 256

// Storage is a minimal REST client to Qdrant. Points use the corpus row id as their
// integer id and the collection uses Euclid distance, so scores are L2 distances.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	count      int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init drops the collection and recreates it empty; rebuilds are always full.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil && !isNotFound(err) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Euclid",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	s.count = 0
	return nil
}

func (s *Storage) Add(ctx context.Context, vectors [][]float64) error {
	for start := 0; start < len(vectors); start += upsertBatch {
		end := start + upsertBatch
		if end > len(vectors) {
			end = len(vectors)
		}
		points := make([]map[string]any, 0, end-start)
		for i := start; i < end; i++ {
			if len(vectors[i]) != s.dimension {
				return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vectors[i]), s.dimension)
			}
			id := s.count + i
			points = append(points, map[string]any{
				"id":      id,
				"vector":  vectors[i],
				"payload": map[string]any{"row": id},
			})
		}
		body := map[string]any{"points": points}
		if err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
			return err
		}
	}
	s.count += len(vectors)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.Neighbor, error) {
	if topK <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": false,
	}
	var resp struct {
		Result []struct {
			ID    json.RawMessage `json:"id"`
			Score float64         `json:"score"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Neighbor, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, err := strconv.Atoi(string(r.ID))
		if err != nil {
			// uuid ids are not written by this package
			continue
		}
		out = append(out, domain.Neighbor{ID: id, Distance: r.Score})
	}
	return out, nil
}

func (s *Storage) Len(ctx context.Context) (int, error) {
	if err := s.refresh(ctx); err != nil {
		return 0, err
	}
	return s.count, nil
}

func (s *Storage) Dimension() int { return s.dimension }

// Save is a no-op: points are written with wait=true.
func (s *Storage) Save(context.Context, string) error { return nil }

// Load reads collection size and dimension. Qdrant does not record the model identifier.
func (s *Storage) Load(ctx context.Context) (string, error) {
	return "", s.refresh(ctx)
}

func (s *Storage) refresh(ctx context.Context) error {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &resp); err != nil {
		return err
	}
	s.count = resp.Result.PointsCount
	s.dimension = resp.Result.Config.Params.Vectors.Size
	return nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (s *Storage) do(ctx context.Context, method, url string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode qdrant request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("build qdrant request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
