package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/havenrealty/sitekeeper/internal/chat"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

func TestChatHandler_Complete(t *testing.T) {
	ctx := t.Context()
	msgs := []json.RawMessage{json.RawMessage(`{"role":"user","content":"Change the phone number on the contact page"}`)}

	t.Run("not_configured", func(t *testing.T) {
		svc, _ := newTestServices(t)
		_, err := NewChatHandler(svc, nil).Complete(ctx, &dto.ChatRequest{Messages: msgs})
		wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeNotConfigured)
	})

	t.Run("ok", func(t *testing.T) {
		var sent struct {
			Model    string            `json:"model"`
			Messages []json.RawMessage `json:"messages"`
			Tools    []json.RawMessage `json:"tools"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("path = %s", r.URL.Path)
			}
			b, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(b, &sent); err != nil {
				t.Error(err)
			}
			_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Done."}}]}`))
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Chat = &chat.Client{BaseURL: srv.URL, APIKey: "sk-test", Model: "m", SystemPrompt: "You edit a real estate site."}
		files := NewFileHandler(svc, &Config{})
		reg := NewToolRegistry(files, NewActivityHandler(svc), NewDeployHandler(svc, &Config{}))
		resp, err := NewChatHandler(svc, reg).Complete(ctx, &dto.ChatRequest{Messages: msgs})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(resp.Message), `"Done."`) {
			t.Fatalf("Message = %s", resp.Message)
		}
		if sent.Model != "m" || len(sent.Messages) != 2 || len(sent.Tools) != 6 {
			t.Fatalf("request = %+v", sent)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Chat = &chat.Client{BaseURL: srv.URL, APIKey: "sk-test", Timeout: 50 * time.Millisecond}
		_, err := NewChatHandler(svc, nil).Complete(ctx, &dto.ChatRequest{Messages: msgs})
		wantAPIError(t, err, http.StatusGatewayTimeout, dto.ErrorCodeTimeout)
	})

	t.Run("upstream_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Chat = &chat.Client{BaseURL: srv.URL, APIKey: "sk-test"}
		_, err := NewChatHandler(svc, nil).Complete(ctx, &dto.ChatRequest{Messages: msgs})
		wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeUpstreamError)
	})
}
