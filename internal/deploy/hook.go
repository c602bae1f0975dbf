// Triggers a build through the platform's deploy hook.

package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Hook is a deploy hook endpoint. A POST to URL queues a build of the
// configured branch.
type Hook struct {
	URL    string
	Client *http.Client
}

// Job is the queued build reported by the hook.
type Job struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Trigger queues a deployment.
func (h *Hook) Trigger(ctx context.Context) (*Job, error) {
	if h == nil || h.URL == "" {
		return nil, ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client(h.Client).Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger deploy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	var r struct {
		Job Job `json:"job"`
	}
	// Hooks are fire-and-forget; an unexpected body is not an error.
	_ = json.Unmarshal(body, &r)
	return &r.Job, nil
}

func client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 15 * time.Second}
}
