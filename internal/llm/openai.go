package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDoer abstracts HTTP clients used by providers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenAIConfig configures an OpenAI-compatible chat-completions client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Client      HTTPDoer
}

// OpenAIClient calls any OpenAI-compatible /chat/completions endpoint,
// such as Blackbox.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      HTTPDoer
}

// NewOpenAIClient validates cfg and constructs a client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrMissingCredentials)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &OpenAIClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		client:      cfg.Client,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func wireRole(r Role) string {
	switch r {
	case RoleAgent:
		return "assistant"
	case RoleUser:
		return "user"
	default:
		return string(r)
	}
}

// Chat posts the conversation and returns the first choice's content.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	body := chatRequest{Model: c.model, Temperature: c.temperature}
	for _, m := range messages {
		body.Messages = append(body.Messages, chatMessage{Role: wireRole(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransport(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: truncate(string(data), 2048)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: "decode response: " + err.Error()}
	}
	if len(out.Choices) == 0 {
		return "", &ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: "response has no choices"}
	}
	return out.Choices[0].Message.Content, nil
}
