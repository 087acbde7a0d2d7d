package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

// OpenAIEmbedding implements EmbeddingService using OpenAI's embedding API.
// Transient provider failures (429, 5xx, network errors) are retried with
// exponential backoff; a request that stays failed surfaces as an
// EmbeddingError naming every input index, never a partial result.
type OpenAIEmbedding struct {
	apiKey     string
	model      string
	baseURL    string
	dimensions int
	retry      domain.RetryPolicy
	client     *http.Client
}

// Model dimensions for OpenAI embedding models
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewOpenAIEmbedding creates a new OpenAI embedding service.
func NewOpenAIEmbedding(apiKey, model, baseURL string, retry domain.RetryPolicy) (driven.EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required: %w", domain.ErrInvalidConfig)
	}

	if model == "" {
		model = "text-embedding-3-small"
	}

	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	dimensions, ok := openAIModelDimensions[model]
	if !ok {
		// Default to 1536 for unknown models
		dimensions = 1536
	}

	if retry.MaxAttempts <= 0 {
		retry = domain.DefaultRetryPolicy()
	}

	return &OpenAIEmbedding{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
		retry:      retry,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// embeddingRequest is the request body for OpenAI embedding API
type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

// embeddingResponse is the response from OpenAI embedding API
type embeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// maxInputsPerRequest bounds inputs per embeddings call, per the OpenAI
// input limit. Larger slices are split deterministically and reassembled
// in order.
const maxInputsPerRequest = 2048

// Embed generates embeddings for multiple texts.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += maxInputsPerRequest {
		end := min(start+maxInputsPerRequest, len(texts))
		if err := e.embedSlice(ctx, texts[start:end], embeddings[start:end]); err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("embedding request timed out: %v: %w", err, domain.ErrTimeout)
			}
			return nil, embeddingFailure(start, end, err)
		}
	}

	return embeddings, nil
}

// embedSlice embeds one provider-sized batch into out, so out[i] matches
// batch[i] regardless of the order the provider returns them in.
func (e *OpenAIEmbedding) embedSlice(ctx context.Context, batch []string, out [][]float32) error {
	reqBody := embeddingRequest{
		Input:          batch,
		Model:          e.model,
		EncodingFormat: "float",
	}

	resp, err := e.doRequestWithRetry(ctx, reqBody)
	if err != nil {
		return err
	}

	if len(resp.Data) != len(batch) {
		return fmt.Errorf("provider returned %d embeddings for %d inputs", len(resp.Data), len(batch))
	}
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return fmt.Errorf("provider returned out-of-range index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return fmt.Errorf("provider returned no embedding for input %d", i)
		}
	}
	return nil
}

// EmbedQuery generates an embedding for a search query.
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size.
func (e *OpenAIEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used.
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// Ping verifies the embedding service is reachable.
func (e *OpenAIEmbedding) Ping(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "ping")
	return err
}

// Close releases resources held by the embedding service.
func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// doRequestWithRetry retries transient failures per the retry policy.
func (e *OpenAIEmbedding) doRequestWithRetry(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		resp, retryable, err := e.doRequest(ctx, reqBody)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable || e.retry.Exhausted(attempt) || ctx.Err() != nil {
			return nil, lastErr
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.retry.Delay(attempt)):
		}
	}
}

// doRequest makes one request to the OpenAI embedding API.
// The second return reports whether a failure is worth retrying.
func (e *OpenAIEmbedding) doRequest(ctx context.Context, reqBody embeddingRequest) (*embeddingResponse, bool, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, apiError(respBody, resp.StatusCode)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(respBody, &embResp); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if embResp.Error != nil {
		return nil, false, fmt.Errorf("OpenAI API error: %s (type: %s, code: %s)",
			embResp.Error.Message, embResp.Error.Type, embResp.Error.Code)
	}

	return &embResp, false, nil
}

// embeddingFailure wraps a provider error as an EmbeddingError naming the
// input indices of the failed batch.
func embeddingFailure(start, end int, cause error) error {
	indices := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		indices = append(indices, i)
	}
	return &domain.EmbeddingError{Indices: indices, Cause: cause}
}

// isTimeout reports whether an error is a deadline expiry rather than a
// provider rejection.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// apiError extracts the provider error message from a non-200 body.
func apiError(body []byte, status int) error {
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return fmt.Errorf("OpenAI API error (status %d): %s (type: %s, code: %s)",
			status, parsed.Error.Message, parsed.Error.Type, parsed.Error.Code)
	}
	return fmt.Errorf("OpenAI API returned status %d", status)
}
