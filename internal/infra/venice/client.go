package venice

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

	"github.com/cenkalti/backoff/v4"

	"ba6-ai-server/internal/domain"
	apperrors "ba6-ai-server/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.venice.ai/api/v1"
	DefaultTimeout = 60 * time.Second

	maxErrorBody = 64 << 10
)

// Client talks to the Venice OpenAI-style API. It serves chat completions,
// image generation and the model catalog.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     domain.Logger
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithCatalogBackOff sets the retry policy for catalog fetches.
func WithCatalogBackOff(fn func() backoff.BackOff) Option {
	return func(client *Client) {
		client.newBackOff = fn
	}
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger domain.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		newBackOff: defaultCatalogBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultCatalogBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(bo, 3)
}

type chatCompletionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage json.RawMessage `json:"usage"`
}

// Complete runs one chat completion. The content is empty when the upstream
// returns no choices.
func (c *Client) Complete(ctx context.Context, modelID string, messages []domain.ChatMessage) (*domain.Completion, error) {
	var resp chatCompletionResponse
	if err := c.postJSON(ctx, "/chat/completions", chatCompletionRequest{Model: modelID, Messages: messages}, &resp); err != nil {
		return nil, err
	}

	completion := &domain.Completion{ModelID: resp.Model}
	if len(resp.Choices) > 0 {
		completion.Content = resp.Choices[0].Message.Content
	}
	if len(resp.Usage) > 0 && string(resp.Usage) != "null" {
		completion.Usage = resp.Usage
	}
	return completion, nil
}

type imageGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

type imageGenerateResponse struct {
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

// GenerateImage returns the first generated image as base64. A response
// without images yields an empty ImageBase64.
func (c *Client) GenerateImage(ctx context.Context, req domain.ImageGeneration) (*domain.GeneratedImage, error) {
	var resp imageGenerateResponse
	body := imageGenerateRequest{
		Model:  req.ModelID,
		Prompt: req.Prompt,
		Width:  req.Width,
		Height: req.Height,
		Format: req.Format,
	}
	if err := c.postJSON(ctx, "/image/generate", body, &resp); err != nil {
		return nil, err
	}

	image := &domain.GeneratedImage{ModelID: resp.Model}
	if len(resp.Images) > 0 {
		image.ImageBase64 = resp.Images[0]
	}
	return image, nil
}

// ListModels fetches the full catalog, retrying transient failures.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelDescriptor, error) {
	var models []domain.ModelDescriptor
	attempt := 0

	operation := func() error {
		attempt++
		var payload interface{}
		err := c.do(ctx, http.MethodGet, "/models", nil, &payload)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			c.logger.Warn("Model catalog fetch failed, retrying", "attempt", attempt, "error", err.Error())
			return err
		}

		records, ok := catalogRecords(payload)
		if !ok {
			return backoff.Permanent(fmt.Errorf("%w: unexpected models response", domain.ErrCatalogUnavailable))
		}
		models = make([]domain.ModelDescriptor, 0, len(records))
		for _, rec := range records {
			raw, ok := rec.(map[string]interface{})
			if !ok {
				continue
			}
			if desc, ok := domain.NewModelDescriptor(raw); ok {
				models = append(models, desc)
			}
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return models, nil
}

// catalogRecords accepts the list under data, models, items or results, or
// a bare array.
func catalogRecords(payload interface{}) ([]interface{}, bool) {
	switch v := payload.(type) {
	case []interface{}:
		return v, true
	case map[string]interface{}:
		for _, key := range []string{"data", "models", "items", "results"} {
			if list, ok := v[key].([]interface{}); ok {
				return list, true
			}
		}
		return nil, false
	default:
		return nil, false
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if c.apiKey == "" {
		return domain.ErrMissingCredentials
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("venice %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Venice request failed", "path", path, "status", resp.StatusCode)
		return apperrors.NewUpstreamError(
			resp.StatusCode,
			errorBody(raw),
			fmt.Errorf("venice %s %s: status %d", method, path, resp.StatusCode),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewUpstreamError(
			http.StatusBadGateway,
			"Invalid response from upstream",
			fmt.Errorf("venice %s %s: decode response: %w", method, path, err),
		)
	}
	return nil
}

// errorBody extracts the "error" member of a JSON error payload, falling back
// to the whole payload or its text.
func errorBody(raw []byte) interface{} {
	var data interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return http.StatusText(http.StatusBadGateway)
		}
		return text
	}
	if obj, ok := data.(map[string]interface{}); ok {
		if inner, ok := obj["error"]; ok && inner != nil {
			return inner
		}
	}
	return data
}

// retryable reports transport failures, throttling and 5xx responses.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrMissingCredentials) {
		return false
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode == http.StatusTooManyRequests || appErr.StatusCode >= http.StatusInternalServerError
	}
	return true
}
