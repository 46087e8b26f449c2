package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medrag/internal/generator"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config configures the chat completions client.
type Config struct {
	APIKey      string
	APIKeyEnv   string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// Message mirrors the OpenAI chat message structure.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the payload sent to the chat completions API.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
}

// ChatCompletionResponse captures the response for non streaming calls.
type ChatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Client performs HTTP requests against an OpenAI-compatible chat endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float32
	httpClient  *http.Client
}

// New fails with a config error when the key is empty.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		env := cfg.APIKeyEnv
		if env == "" {
			env = "OPENAI_API_KEY"
		}
		return nil, generator.MissingCredential(env)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: t},
	}, nil
}

func (c *Client) Name() string { return "openai:" + c.model }

// Generate sends prompt as a single user message.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// CreateChatCompletion triggers a sync chat completion call.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (ChatCompletionResponse, error) {
	var out ChatCompletionResponse
	payload, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("encode chat completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("build chat completion request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("request chat completion: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, fmt.Errorf("chat completion failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode chat completion: %w", err)
	}
	return out, nil
}
