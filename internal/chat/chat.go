// Package chat forwards conversations to an OpenAI compatible
// chat-completions endpoint.
package chat

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
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout stays below the hosting platform's 30s request ceiling.
	DefaultTimeout = 25 * time.Second
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("chat API key is not configured")
	// ErrTimeout is returned when the completion exceeds the client timeout.
	ErrTimeout = errors.New("chat completion timed out")
)

// Client calls the completions endpoint.
type Client struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	// Timeout defaults to DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// APIError is a non-2xx completion response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completion: %d %s", e.StatusCode, e.Message)
}

// Complete sends messages, prefixed with the system prompt, and returns the
// assistant message of the first choice. tools, when non-empty, are passed
// through as function definitions.
func (c *Client) Complete(ctx context.Context, messages []json.RawMessage, tools []json.RawMessage) (json.RawMessage, error) {
	if c == nil || c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer cancel()

	req := struct {
		Model    string            `json:"model"`
		Messages []json.RawMessage `json:"messages"`
		Tools    []json.RawMessage `json:"tools,omitempty"`
	}{Model: c.Model, Tools: tools}
	if req.Model == "" {
		req.Model = DefaultModel
	}
	if c.SystemPrompt != "" {
		sys, err := json.Marshal(map[string]string{"role": "system", "content": c.SystemPrompt})
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, sys)
	}
	req.Messages = append(req.Messages, messages...)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Authorization", "Bearer "+c.APIKey)
	hreq.Header.Set("Content-Type", "application/json")
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(hreq)
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		if errors.Is(context.Cause(ctx), ErrTimeout) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error.Message != "" {
			msg = e.Error.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	var out struct {
		Choices []struct {
			Message json.RawMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	return out.Choices[0].Message, nil
}
