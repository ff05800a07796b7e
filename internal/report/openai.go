package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultModel    = "gpt-3.5-turbo"
	maxReportTokens = 500
)

// OpenAICompleter generates reports through an OpenAI-compatible
// chat-completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter builds a completer. baseURL may point at any
// compatible gateway; empty uses the OpenAI default.
func NewOpenAICompleter(apiKey, baseURL, model string, timeout time.Duration) (*OpenAICompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   maxReportTokens,
	})
	if err != nil {
		return "", fmt.Errorf("report completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("report completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
