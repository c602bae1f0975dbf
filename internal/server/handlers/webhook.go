// Receives deployment lifecycle webhooks from the hosting platform.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/havenrealty/sitekeeper/internal/deploy"
	"github.com/havenrealty/sitekeeper/internal/notify"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// Webhook verifies and records a deployment event. With a secret configured
// an unsigned or mis-signed body is rejected before it is parsed.
func (h *DeployHandler) Webhook(ctx context.Context, r *http.Request, body []byte) (*dto.WebhookResponse, error) {
	if h.cfg.WebhookSecret != "" {
		if !deploy.VerifySignature(body, r.Header.Get(deploy.SignatureHeader), h.cfg.WebhookSecret) {
			return nil, dto.Unauthorized("Invalid webhook signature")
		}
	} else {
		slog.WarnContext(ctx, "Webhook secret not configured; accepting unsigned deployment event")
	}
	ev, err := deploy.ParseEvent(body)
	if err != nil {
		return nil, dto.BadRequest("Invalid webhook payload").Wrap(err)
	}
	slog.InfoContext(ctx, "Deployment event", "type", ev.Type, "deployment", ev.DeploymentID, "state", ev.State)
	if m, ok := h.notification(ev); ok {
		h.svc.Push.Notify(ctx, m)
	}
	return &dto.WebhookResponse{
		Received:     true,
		DeploymentID: ev.DeploymentID,
		Status:       string(ev.State),
	}, nil
}

// notification returns the push message for terminal deployment states.
func (h *DeployHandler) notification(ev *deploy.Event) (notify.Message, bool) {
	url := h.cfg.SiteURL
	if ev.DeploymentURL != "" {
		url = "https://" + ev.DeploymentURL
	}
	switch ev.State {
	case deploy.StateReady:
		return notify.Message{Title: "Site updated", Body: "Your latest changes are live.", URL: url}, true
	case deploy.StateError:
		return notify.Message{Title: "Deployment failed", Body: "The latest deployment did not complete.", URL: url}, true
	default:
		return notify.Message{}, false
	}
}
