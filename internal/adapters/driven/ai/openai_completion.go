package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Ensure OpenAICompletion implements CompletionService
var _ driven.CompletionService = (*OpenAICompletion)(nil)

// OpenAICompletion implements CompletionService using OpenAI's chat
// completions API. One provider call per Complete; the synthesizer owns
// the retry loop.
type OpenAICompletion struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAICompletion creates a new OpenAI completion service.
func NewOpenAICompletion(apiKey, model, baseURL string) (driven.CompletionService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: %w", domain.ErrInvalidConfig)
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAICompletion{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// chatMessage is one message in the chat completions payload
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the request body for the chat completions API
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// completionResponse is the response from the chat completions API
type completionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Complete sends the conversation to the model and returns the reply.
func (c *OpenAICompletion) Complete(ctx context.Context, messages []domain.ConversationTurn, opts driven.CompleteOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages to complete: %w", domain.ErrInvalidArgument)
	}

	reqBody := completionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]chatMessage, len(messages)),
	}
	for i, m := range messages {
		reqBody.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("completion request timed out: %v: %w", err, domain.ErrTimeout)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", apiError(respBody, resp.StatusCode)
	}

	var compResp completionResponse
	if err := json.Unmarshal(respBody, &compResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if compResp.Error != nil {
		return "", fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			compResp.Error.Message, compResp.Error.Type, compResp.Error.Code)
	}
	if len(compResp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return compResp.Choices[0].Message.Content, nil
}

// Model returns the model name being used.
func (c *OpenAICompletion) Model() string {
	return c.model
}

// Ping verifies the completion service is reachable.
// Lists models rather than burning a completion.
func (c *OpenAICompletion) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources held by the completion service.
func (c *OpenAICompletion) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
