package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medrag/internal/apperrors"
	"medrag/internal/generator"
)

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection reset by peer")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{APIKey: "  "})
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
	require.ErrorContains(t, err, "GOOGLE_API_KEY")
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		var req generateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Contents, 1) && assert.Len(t, req.Contents[0].Parts, 1) {
			assert.Equal(t, "the prompt", req.Contents[0].Parts[0].Text)
		}
		assert.Nil(t, req.GenerationConfig)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Rest "},{"text":"and fluids."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	require.Equal(t, "gemini:gemini-1.5-flash", c.Name())
	text, err := c.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	require.Equal(t, "Rest and fluids.", text)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "Resource has been exhausted")
}

func TestGenerateBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL, Temperature: 0.2})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "SAFETY")
}

func TestTransportFailureBecomesDisplayableText(t *testing.T) {
	c, err := New(Config{APIKey: "secret", BaseURL: "http://gemini.invalid"})
	require.NoError(t, err)
	c.httpClient.Transport = failingTransport{}

	res := generator.Answer(context.Background(), c, "a valid prompt")
	require.False(t, res.OK())
	require.Contains(t, res.Display(), "Error generating answer")
	require.Contains(t, res.Display(), "connection reset by peer")
	require.NotContains(t, res.Display(), "secret")
}

func TestGenerateRejectsOversizedResponse(t *testing.T) {
	old := maxResponseBytes
	maxResponseBytes = 64
	t.Cleanup(func() { maxResponseBytes = old })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"` + strings.Repeat("a", 256) + `"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p")
	require.ErrorContains(t, err, "exceeds 64 bytes")
}
