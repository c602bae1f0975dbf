// Liveness endpoint.

package handlers

import (
	"context"

	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// HealthHandler answers GET /api/health for uptime checks.
type HealthHandler struct {
	version string
}

// NewHealthHandler reports version, the build stamp from the binary.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health reports "ok" and the running version. It never touches the content
// store.
func (h *HealthHandler) Health(ctx context.Context, req *dto.HealthRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Version: h.version}, nil
}
