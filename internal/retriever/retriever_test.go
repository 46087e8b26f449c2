package retriever

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/apperrors"
	"medrag/internal/corpus"
	"medrag/internal/domain"
	"medrag/internal/embedding"
	embedopenai "medrag/internal/embedding/openai"
	"medrag/internal/embedding/tfidf"
	"medrag/internal/index"
	"medrag/internal/logger"
	"medrag/internal/rerank"
	"medrag/internal/vectorstore/flat"
)

type fixture struct {
	dir, corpus, index, meta string
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	return fixture{
		dir:    dir,
		corpus: filepath.Join(dir, "medquad.csv"),
		index:  filepath.Join(dir, "index.bin"),
		meta:   filepath.Join(dir, "metadata.json"),
	}
}

func (f fixture) build(t *testing.T, records []domain.Record) {
	t.Helper()
	require.NoError(t, corpus.WriteCSV(f.corpus, records))
	b := index.NewBuilder(tfidf.NewEmbedder(), flat.NewStorage(f.index), f.meta, logger.Discard())
	ok, err := b.Build(context.Background(), f.corpus)
	require.NoError(t, err)
	require.True(t, ok)
}

// resources returns a holder over fresh objects, as a new process would see the files.
func (f fixture) resources(newReranker func() (domain.Reranker, error)) *Resources {
	if newReranker == nil {
		newReranker = func() (domain.Reranker, error) { return rerank.NewLexical(), nil }
	}
	return NewResources(ResourcesConfig{
		Embedder:     tfidf.NewEmbedder(),
		Store:        flat.NewStorage(f.index),
		MetadataPath: f.meta,
		NewReranker:  newReranker,
		Logger:       logger.Discard(),
	})
}

type constReranker struct {
	err   error
	calls int
}

func (c *constReranker) Name() string { return "const" }

func (c *constReranker) Score(_ context.Context, _ string, passages []string) ([]float64, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return make([]float64, len(passages)), nil
}

func TestRetrieveFluSymptoms(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	r := New(f.resources(nil))

	got, err := r.Retrieve(context.Background(), "What are the symptoms of the flu?", 10, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "What are the symptoms of the flu?", got[0].Question)
	require.Equal(t, "How does the flu spread?", got[1].Question)
	require.Equal(t, "Influenza", got[0].Focus)
	require.Equal(t, "Influenza", got[1].Focus)
	require.NotEqual(t, "Influenza", got[2].Focus)
	for i := 1; i < len(got); i++ {
		require.GreaterOrEqual(t, got[i-1].RerankScore, got[i].RerankScore)
	}
	require.Equal(t, 0, got[0].ID)
	require.Equal(t, "cdc_gov_flu.xml", got[0].Source)
}

func TestRetrieveDefaultsAndBounds(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	r := New(f.resources(nil))

	got, err := r.Retrieve(context.Background(), "flu", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultRerankTopK)

	got, err = r.Retrieve(context.Background(), "flu", 1, 3)
	require.NoError(t, err)
	require.Len(t, got, 1, "results are drawn from the top_k search set")
}

func TestRetrieveStableOnTies(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	rr := &constReranker{}
	r := New(f.resources(func() (domain.Reranker, error) { return rr, nil }))

	got, err := r.Retrieve(context.Background(), "diabetes blood sugar", 10, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "Diabetes", got[0].Focus, "equal rerank scores keep search order")
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].InitialScore, got[i].InitialScore)
	}
}

func TestRetrieveNotReadyWithoutPersistedState(t *testing.T) {
	f := newFixture(t)
	res := f.resources(nil)
	require.False(t, res.Ready(context.Background()))
	got, err := New(res).Retrieve(context.Background(), "flu", 10, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestEmptySourceDirectoryLeavesRetrieverEmpty(t *testing.T) {
	f := newFixture(t)
	n, ok, err := corpus.NewLoader(logger.Discard()).LoadDirectory(context.Background(), f.dir, f.corpus)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, n)

	got, err := New(f.resources(nil)).Retrieve(context.Background(), "flu", 10, 3)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFailedLoadIsCachedUntilInvalidate(t *testing.T) {
	f := newFixture(t)
	res := f.resources(nil)
	require.False(t, res.Ready(context.Background()))

	f.build(t, corpus.SampleRecords)
	require.False(t, res.Ready(context.Background()))

	res.Invalidate()
	require.True(t, res.Ready(context.Background()))
}

func TestMismatchedStateIsNotReady(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	meta, err := index.ReadMetadata(f.meta)
	require.NoError(t, err)

	short := meta
	short.Rows = meta.Rows[:2]
	require.NoError(t, index.WriteMetadata(f.meta, short))
	require.False(t, f.resources(nil).Ready(context.Background()), "row count differs from index")

	other := meta
	other.Model = "openai:text-embedding-3-small"
	require.NoError(t, index.WriteMetadata(f.meta, other))
	require.False(t, f.resources(nil).Ready(context.Background()), "model differs from configured embedder")

	require.NoError(t, index.WriteMetadata(f.meta, meta))
	require.True(t, f.resources(nil).Ready(context.Background()))
}

func TestRerankFailureIsRetrievalError(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	rr := &constReranker{err: errors.New("model offline")}
	_, err := New(f.resources(func() (domain.Reranker, error) { return rr, nil })).Retrieve(context.Background(), "flu", 10, 3)
	require.True(t, apperrors.IsCode(err, apperrors.CodeRetrieval))
	require.ErrorContains(t, err, "model offline")
}

func TestRerankerLoadedOnce(t *testing.T) {
	f := newFixture(t)
	f.build(t, corpus.SampleRecords)
	loads := 0
	rr := &constReranker{}
	r := New(f.resources(func() (domain.Reranker, error) {
		loads++
		return rr, nil
	}))
	for i := 0; i < 3; i++ {
		_, err := r.Retrieve(context.Background(), "flu", 10, 3)
		require.NoError(t, err)
	}
	require.Equal(t, 1, loads)
	require.Equal(t, 3, rr.calls)
}

// embeddingServer encodes text as [flu mentions, diabetes mentions, 1].
func embeddingServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		text := strings.ToLower(body.Input)
		fmt.Fprintf(w, `{"data":[{"embedding":[%d,%d,1]}]}`,
			strings.Count(text, "flu"), strings.Count(text, "diabetes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func remoteEmbedder(t *testing.T, url string) embedding.Embedder {
	t.Helper()
	c, err := embedopenai.NewClient(embedopenai.Config{BaseURL: url, APIKeyEnv: "MEDRAG_TEST_EMBED_KEY", Model: "mini"})
	require.NoError(t, err)
	return c
}

func TestConcurrentRetrieveWithRemoteEmbedder(t *testing.T) {
	t.Setenv("MEDRAG_TEST_EMBED_KEY", "secret")
	srv := embeddingServer(t)
	f := newFixture(t)
	require.NoError(t, corpus.WriteCSV(f.corpus, corpus.SampleRecords))
	b := index.NewBuilder(remoteEmbedder(t, srv.URL), flat.NewStorage(f.index), f.meta, logger.Discard())
	ok, err := b.Build(context.Background(), f.corpus)
	require.NoError(t, err)
	require.True(t, ok)

	r := New(NewResources(ResourcesConfig{
		Embedder:     remoteEmbedder(t, srv.URL),
		Store:        flat.NewStorage(f.index),
		MetadataPath: f.meta,
		NewReranker:  func() (domain.Reranker, error) { return rerank.NewLexical(), nil },
		Logger:       logger.Discard(),
	}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.Retrieve(context.Background(), "What are the symptoms of the flu?", 10, 3)
			assert.NoError(t, err)
			if assert.NotEmpty(t, got) {
				assert.Equal(t, "Influenza", got[0].Focus)
			}
		}()
	}
	wg.Wait()
}
