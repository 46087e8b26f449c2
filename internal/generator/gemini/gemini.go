package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medrag/internal/generator"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var maxResponseBytes int64 = 8 << 20

// Config configures the Gemini client. APIKeyEnv only names the key's origin in errors.
type Config struct {
	APIKey      string
	APIKeyEnv   string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// Client calls the generateContent REST endpoint.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	httpClient  *http.Client
}

// New fails with a config error when the key is empty, before any network use.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		env := cfg.APIKeyEnv
		if env == "" {
			env = "GOOGLE_API_KEY"
		}
		return nil, generator.MissingCredential(env)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: t},
	}, nil
}

func (c *Client) Name() string { return "gemini:" + c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature *float32 `json:"temperature,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and joins the text parts of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	if c.temperature > 0 {
		t := c.temperature
		req.GenerationConfig = &generationConfig{Temperature: &t}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}
	endpoint := c.baseURL + "/models/" + url.PathEscape(c.model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// header rather than ?key= so transport errors never echo the key
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request generate content: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read generate response: %w", err)
	}
	if int64(len(body)) > maxResponseBytes {
		return "", fmt.Errorf("generate response exceeds %d bytes", maxResponseBytes)
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("gemini request failed: status=%d %s: %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini request failed: status=%d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if len(out.Candidates) == 0 {
		if out.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
		}
		return "", errors.New("no candidates returned")
	}
	var b strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 && out.Candidates[0].FinishReason != "" {
		return "", fmt.Errorf("no text returned (finish reason %s)", out.Candidates[0].FinishReason)
	}
	return b.String(), nil
}
