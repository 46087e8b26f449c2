package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/domain"
)

// fakeQdrant implements the handful of endpoints the client uses.
type fakeQdrant struct {
	mu       sync.Mutex
	exists   bool
	size     int
	distance string
	points   map[int][]float64
	apiKeys  []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	switch {
	case r.Method == http.MethodDelete && r.URL.Path == "/collections/medquad":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists = false
		f.points = nil
	case r.Method == http.MethodPut && r.URL.Path == "/collections/medquad":
		var body struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists = true
		f.size = body.Vectors.Size
		f.distance = body.Vectors.Distance
		f.points = map[int][]float64{}
	case r.Method == http.MethodPut && r.URL.Path == "/collections/medquad/points":
		var body struct {
			Points []struct {
				ID     int       `json:"id"`
				Vector []float64 `json:"vector"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			f.points[p.ID] = p.Vector
		}
	case r.Method == http.MethodGet && r.URL.Path == "/collections/medquad":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"points_count":` + itoa(len(f.points)) + `,"config":{"params":{"vectors":{"size":` + itoa(f.size) + `,"distance":"Euclid"}}}}}`))
		return
	case r.Method == http.MethodPost && r.URL.Path == "/collections/medquad/points/search":
		_, _ = w.Write([]byte(`{"result":[{"id":2,"score":0.5},{"id":"2f0c1c1e-0000-0000-0000-000000000000","score":0.7},{"id":0,"score":1.25}]}`))
		return
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	_, _ = w.Write([]byte(`{"result":true}`))
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestInitAddLenSearch(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Collection: "medquad"})
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	require.Equal(t, "Euclid", fake.distance)

	vectors := make([][]float64, upsertBatch+5)
	for i := range vectors {
		vectors[i] = []float64{float64(i), 1}
	}
	require.NoError(t, s.Add(ctx, vectors))
	require.Len(t, fake.points, upsertBatch+5)
	require.Equal(t, []float64{float64(upsertBatch + 4), 1}, fake.points[upsertBatch+4])

	n, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, upsertBatch+5, n)

	hits, err := s.Search(ctx, []float64{0, 1}, 3)
	require.NoError(t, err)
	require.Equal(t, []domain.Neighbor{{ID: 2, Distance: 0.5}, {ID: 0, Distance: 1.25}}, hits)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "k", k)
	}
}

func TestInitRecreatesExistingCollection(t *testing.T) {
	fake := &fakeQdrant{exists: true, points: map[int][]float64{7: {1, 1}}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "medquad"})
	require.NoError(t, s.Init(context.Background(), 3))
	require.Empty(t, fake.points)
	require.Equal(t, 3, fake.size)
}

func TestAddRejectsWrongDimension(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "medquad"})
	require.NoError(t, s.Init(context.Background(), 2))
	require.Error(t, s.Add(context.Background(), [][]float64{{1, 2, 3}}))
}

func TestLoadMissingCollection(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "medquad"})
	model, err := s.Load(context.Background())
	require.Error(t, err)
	require.True(t, isNotFound(err))
	require.Empty(t, model)
}

func TestLoadReadsDimension(t *testing.T) {
	fake := &fakeQdrant{exists: true, size: 4, points: map[int][]float64{0: {1, 2, 3, 4}}}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "medquad"})
	_, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, s.Dimension())
}
