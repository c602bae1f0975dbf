package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/havenrealty/sitekeeper/internal/deploy"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

func TestDeployHandler_Trigger(t *testing.T) {
	ctx := t.Context()
	t.Run("not_configured", func(t *testing.T) {
		svc, _ := newTestServices(t)
		_, err := NewDeployHandler(svc, &Config{}).Trigger(ctx, &dto.TriggerDeployRequest{})
		wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeNotConfigured)
	})
	t.Run("queued", func(t *testing.T) {
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"job":{"id":"job_1","state":"PENDING"}}`))
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Hook = &deploy.Hook{URL: srv.URL, Client: srv.Client()}
		resp, err := NewDeployHandler(svc, &Config{}).Trigger(ctx, &dto.TriggerDeployRequest{Message: "Publish new listings"})
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Success || resp.JobID != "job_1" || hits != 1 {
			t.Fatalf("Trigger = %+v (hits %d)", resp, hits)
		}
		entries, _ := svc.Activity.List(ctx)
		if len(entries) != 1 || entries[0].Action != "deploy" || entries[0].Description != "Publish new listings" {
			t.Fatalf("activity = %+v", entries)
		}
	})
	t.Run("hook_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Hook = &deploy.Hook{URL: srv.URL, Client: srv.Client()}
		_, err := NewDeployHandler(svc, &Config{}).Trigger(ctx, &dto.TriggerDeployRequest{})
		wantAPIError(t, err, http.StatusInternalServerError, dto.ErrorCodeUpstreamError)
	})
}

func TestDeployHandler_Status(t *testing.T) {
	ctx := t.Context()
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		url    string
	}{
		{"building", 200, `{"deployments":[{"uid":"d1","url":"site-abc.vercel.app","readyState":"BUILDING","createdAt":1706012345000}]}`, "building", "https://site-abc.vercel.app"},
		{"ready", 200, `{"deployments":[{"uid":"d1","readyState":"READY"}]}`, "ready", ""},
		{"canceled", 200, `{"deployments":[{"uid":"d1","state":"CANCELED"}]}`, "error", ""},
		{"none", 200, `{"deployments":[]}`, "ready", ""},
		{"api_error", 500, `{"error":"down"}`, "ready", ""},
		{"garbage", 200, `not json`, "ready", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			svc, _ := newTestServices(t)
			svc.Platform = &deploy.Vercel{BaseURL: srv.URL, Token: "t", ProjectID: "p", Client: srv.Client()}
			resp, err := NewDeployHandler(svc, &Config{}).Status(ctx, &dto.DeploymentStatusRequest{})
			if err != nil {
				t.Fatalf("Status must not fail: %v", err)
			}
			if resp.Status != tt.want || resp.URL != tt.url {
				t.Fatalf("Status = %+v", resp)
			}
		})
	}
	t.Run("not_configured", func(t *testing.T) {
		svc, _ := newTestServices(t)
		resp, err := NewDeployHandler(svc, &Config{}).Status(ctx, &dto.DeploymentStatusRequest{})
		if err != nil || resp.Status != "ready" {
			t.Fatalf("Status = %+v, %v", resp, err)
		}
	})
	t.Run("created_at", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"deployments":[{"uid":"d1","readyState":"READY","createdAt":1706012345000}]}`))
		}))
		defer srv.Close()
		svc, _ := newTestServices(t)
		svc.Platform = &deploy.Vercel{BaseURL: srv.URL, Token: "t", ProjectID: "p", Client: srv.Client()}
		resp, _ := NewDeployHandler(svc, &Config{}).Status(ctx, &dto.DeploymentStatusRequest{})
		if resp.CreatedAt != "2024-01-23T12:19:05Z" {
			t.Fatalf("CreatedAt = %q", resp.CreatedAt)
		}
	})
}

func TestDeployHandler_Webhook(t *testing.T) {
	ctx := t.Context()
	body := []byte(`{"id":"evt_1","type":"deployment.succeeded","createdAt":1706012345000,"payload":{"deployment":{"id":"dpl_1","url":"site-abc.vercel.app"}}}`)
	svc, _ := newTestServices(t)

	newReq := func(sig string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/webhooks/deployment", bytes.NewReader(body))
		if sig != "" {
			r.Header.Set(deploy.SignatureHeader, sig)
		}
		return r
	}

	t.Run("signature_mismatch", func(t *testing.T) {
		h := NewDeployHandler(svc, &Config{WebhookSecret: "s3cret"})
		_, err := h.Webhook(ctx, newReq(deploy.Sign(body, "other")), body)
		wantAPIError(t, err, http.StatusUnauthorized, dto.ErrorCodeUnauthorized)
		_, err = h.Webhook(ctx, newReq(""), body)
		wantAPIError(t, err, http.StatusUnauthorized, dto.ErrorCodeUnauthorized)
	})
	t.Run("mismatch_not_parsed", func(t *testing.T) {
		h := NewDeployHandler(svc, &Config{WebhookSecret: "s3cret"})
		garbage := []byte("not json")
		_, err := h.Webhook(ctx, newReq("00"), garbage)
		wantAPIError(t, err, http.StatusUnauthorized, dto.ErrorCodeUnauthorized)
	})
	t.Run("signed", func(t *testing.T) {
		h := NewDeployHandler(svc, &Config{WebhookSecret: "s3cret"})
		resp, err := h.Webhook(ctx, newReq(deploy.Sign(body, "s3cret")), body)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Received || resp.DeploymentID != "dpl_1" || resp.Status != "ready" {
			t.Fatalf("Webhook = %+v", resp)
		}
	})
	t.Run("no_secret", func(t *testing.T) {
		h := NewDeployHandler(svc, &Config{})
		resp, err := h.Webhook(ctx, newReq(""), body)
		if err != nil || !resp.Received {
			t.Fatalf("Webhook = %+v, %v", resp, err)
		}
	})
	t.Run("bad_payload", func(t *testing.T) {
		h := NewDeployHandler(svc, &Config{})
		_, err := h.Webhook(ctx, newReq(""), []byte(`{"id":"x"}`))
		wantAPIError(t, err, http.StatusBadRequest, dto.ErrorCodeValidationFailed)
	})
}

func TestDeployHandler_Notification(t *testing.T) {
	h := NewDeployHandler(&Services{}, &Config{SiteURL: "https://havenrealty.example"})
	if _, ok := h.notification(&deploy.Event{State: deploy.StateBuilding}); ok {
		t.Fatal("building must not notify")
	}
	m, ok := h.notification(&deploy.Event{State: deploy.StateError})
	if !ok || m.URL != "https://havenrealty.example" || m.Title != "Deployment failed" {
		t.Fatalf("error = %+v, %v", m, ok)
	}
	m, ok = h.notification(&deploy.Event{State: deploy.StateReady, DeploymentURL: "site-abc.vercel.app"})
	if !ok || m.URL != "https://site-abc.vercel.app" {
		t.Fatalf("ready = %+v, %v", m, ok)
	}
}
