package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing key")
		}
		var req struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
			Tools    []json.RawMessage `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if req.Model != "gpt-test" || len(req.Messages) != 2 || len(req.Tools) != 1 {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Done."}}]}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-test", SystemPrompt: "You edit the site."}
	msg, err := c.Complete(t.Context(),
		[]json.RawMessage{json.RawMessage(`{"role":"user","content":"Make the title blue"}`)},
		[]json.RawMessage{json.RawMessage(`{"type":"function","function":{"name":"read_file"}}`)})
	if err != nil {
		t.Fatal(err)
	}
	var m struct{ Content string }
	if err := json.Unmarshal(msg, &m); err != nil || m.Content != "Done." {
		t.Fatalf("message = %s", msg)
	}
}

func TestComplete_Errors(t *testing.T) {
	t.Run("not_configured", func(t *testing.T) {
		if _, err := (&Client{}).Complete(t.Context(), nil, nil); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)
		c := &Client{BaseURL: srv.URL, APIKey: "k", Timeout: 20 * time.Millisecond}
		if _, err := c.Complete(t.Context(), nil, nil); !errors.Is(err, ErrTimeout) {
			t.Fatalf("got %v", err)
		}
	})
	t.Run("upstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer srv.Close()
		_, err := (&Client{BaseURL: srv.URL, APIKey: "k"}).Complete(t.Context(), nil, nil)
		var ae *APIError
		if !errors.As(err, &ae) || ae.StatusCode != http.StatusUnauthorized || ae.Message != "bad key" {
			t.Fatalf("got %v", err)
		}
	})
}
