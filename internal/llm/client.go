package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hetulpatel/pdfvalidator/internal/config"
)

const (
	defaultRemoteModel = "gpt-4o-mini"
	defaultLocalURL    = "http://localhost:1234/v1"
	defaultLocalModel  = "local-model"

	// LM Studio does not check credentials but the client insists on one.
	localPlaceholderKey = "lm-studio"
)

// Config holds settings for an OpenAI-compatible endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client wraps an OpenAI-compatible chat completions API.
type Client struct {
	api      *openai.Client
	provider string
	model    string
	jsonMode bool
}

// NewRemote creates a client for the hosted OpenAI API. The API key is
// required; BaseURL is optional and overrides the public endpoint.
func NewRemote(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultRemoteModel
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		openaiCfg.BaseURL = baseURL
	}
	return &Client{
		api:      openai.NewClientWithConfig(openaiCfg),
		provider: config.ProviderOpenAI,
		model:    model,
		jsonMode: true,
	}, nil
}

// NewLocal creates a client for a locally served OpenAI-compatible endpoint
// such as LM Studio. Local servers are not asked for JSON mode.
func NewLocal(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultLocalURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultLocalModel
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = localPlaceholderKey
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	openaiCfg.BaseURL = baseURL
	return &Client{
		api:      openai.NewClientWithConfig(openaiCfg),
		provider: config.ProviderLMStudio,
		model:    model,
		jsonMode: false,
	}, nil
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) Model() string { return c.model }

// Complete sends a single-shot prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("llm: client is nil")
	}
	if systemPrompt == "" || userPrompt == "" {
		return "", fmt.Errorf("llm: prompts must be provided")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: Temperature,
	}
	if c.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
