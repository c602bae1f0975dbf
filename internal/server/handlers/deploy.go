// Handles deployment trigger and status endpoints.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/deploy"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// DeployHandler handles deployment endpoints and the platform webhook.
type DeployHandler struct {
	svc *Services
	cfg *Config
}

// NewDeployHandler creates a new deploy handler.
func NewDeployHandler(svc *Services, cfg *Config) *DeployHandler {
	return &DeployHandler{svc: svc, cfg: cfg}
}

// Trigger queues a deployment through the deploy hook.
func (h *DeployHandler) Trigger(ctx context.Context, req *dto.TriggerDeployRequest) (*dto.TriggerDeployResponse, error) {
	job, err := h.svc.Hook.Trigger(ctx)
	if errors.Is(err, deploy.ErrNotConfigured) {
		return nil, dto.NotConfigured("Deploy hook")
	}
	if err != nil {
		return nil, dto.UpstreamError("Deploy hook", err)
	}
	desc := req.Message
	if desc == "" {
		desc = "Deployment triggered"
	}
	h.svc.Activity.Record(ctx, activity.Entry{Action: "deploy", Description: desc})
	return &dto.TriggerDeployResponse{
		Success: true,
		Message: "Deployment triggered successfully",
		JobID:   job.ID,
	}, nil
}

// Status reports the latest deployment. It never fails: when the platform
// cannot be queried the site is reported ready.
func (h *DeployHandler) Status(ctx context.Context, req *dto.DeploymentStatusRequest) (*dto.DeploymentStatusResponse, error) {
	st, err := h.svc.Platform.Latest(ctx)
	if err != nil {
		if !errors.Is(err, deploy.ErrNotConfigured) {
			slog.WarnContext(ctx, "Deployment status unavailable", "err", err)
		}
		return &dto.DeploymentStatusResponse{Status: string(deploy.StateReady), Message: "Deployment status unavailable"}, nil
	}
	if st == nil {
		return &dto.DeploymentStatusResponse{Status: string(deploy.StateReady), Message: "No deployments found"}, nil
	}
	resp := &dto.DeploymentStatusResponse{
		Status:  string(st.State),
		Message: statusMessage(st.State),
		URL:     st.URL,
	}
	if !st.CreatedAt.IsZero() {
		resp.CreatedAt = st.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

func statusMessage(s deploy.State) string {
	switch s {
	case deploy.StateQueued:
		return "Deployment queued"
	case deploy.StateBuilding:
		return "Deployment in progress"
	case deploy.StateError:
		return "Deployment failed"
	default:
		return "Site is live"
	}
}
