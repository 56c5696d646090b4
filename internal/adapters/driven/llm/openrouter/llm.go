// Package openrouter provides a chat model adapter using the OpenRouter
// OpenAI-compatible API, including token streaming over SSE.
package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sakhedingi/recall/internal/core/domain"
	"github.com/sakhedingi/recall/internal/core/ports/driven"
)

// Ensure ModelService implements the interface.
var _ driven.ModelService = (*ModelService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultTimeout = 120 * time.Second

	// maxResponseTokens caps completion length per request.
	maxResponseTokens = 2000
)

// Config holds configuration for the OpenRouter model service.
type Config struct {
	// APIKey is the OpenRouter API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://openrouter.ai/api/v1).
	// Can be changed for any OpenAI-compatible endpoint.
	BaseURL string

	// Timeout is the request timeout (default: 120s). Streaming requests
	// are bounded by context, not by this timeout.
	Timeout time.Duration
}

// ModelService invokes chat models through OpenRouter. The model is
// chosen per call, so one client serves every configured model.
type ModelService struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
	apiKey       string
}

// chatCompletionRequest is the OpenAI-compatible /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
	TopP        float64             `json:"top_p,omitempty"`
	Stream      bool                `json:"stream,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the non-streaming response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// streamChunk is one SSE data payload of a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// NewModelService creates a new OpenRouter model service.
func NewModelService(cfg Config) (*ModelService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openrouter: API key is required", domain.ErrInvalidCredential)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &ModelService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		// No client timeout on streams: a slow model pushing tokens for
		// minutes is normal. Cancellation comes from the context.
		streamClient: &http.Client{},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
	}, nil
}

// Chat sends the full message sequence and returns the response text.
func (s *ModelService) Chat(ctx context.Context, modelID string, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	resp, err := s.send(ctx, s.client, modelID, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return "", err
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices returned", domain.ErrProviderUnavailable)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ChatStream sends the message sequence and delivers the response token
// by token through fn. It returns after the provider's [DONE] marker,
// a transport error, or fn returning a non-nil error.
func (s *ModelService) ChatStream(ctx context.Context, modelID string, messages []domain.ChatMessage, opts driven.ChatOptions, fn driven.StreamFunc) error {
	resp, err := s.send(ctx, s.streamClient, modelID, messages, opts, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
		}
		return statusError(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	// Tokens are small but a single SSE line can carry a long delta.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			return nil
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Providers interleave comments and keep-alives; skip them.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}

		if err := fn(token); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: reading stream: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}

// Close releases resources.
func (s *ModelService) Close() error {
	// HTTP clients don't need explicit cleanup
	return nil
}

func (s *ModelService) send(ctx context.Context, client *http.Client, modelID string, messages []domain.ChatMessage, opts driven.ChatOptions, stream bool) (*http.Response, error) {
	chatMessages := make([]chatCompletionMsg, len(messages))
	for i, msg := range messages {
		chatMessages[i] = chatCompletionMsg{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Model:       modelID,
		Messages:    chatMessages,
		MaxTokens:   maxResponseTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return resp, nil
}

// statusError maps provider HTTP status codes to domain error kinds, so
// callers can distinguish billing, credential, and throttling failures.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", domain.ErrInsufficientCredits, string(body))
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrInvalidCredential, string(body))
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, string(body))
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrProviderUnavailable, status, string(body))
	}
}
