// Handles the activity log endpoints.

package handlers

import (
	"context"

	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// ActivityHandler handles activity log endpoints.
type ActivityHandler struct {
	log *activity.Log
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(svc *Services) *ActivityHandler {
	return &ActivityHandler{log: svc.Activity}
}

// List returns the log, most recent first. A missing log is empty.
func (h *ActivityHandler) List(ctx context.Context, req *dto.ListActivityRequest) (*dto.ListActivityResponse, error) {
	entries, err := h.log.List(ctx)
	if err != nil {
		return nil, storeError("read activity log", h.log.Path(), err)
	}
	if req.Limit > 0 && len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return &dto.ListActivityResponse{Activities: activitiesToDTO(entries)}, nil
}

// Append records an entry supplied by the caller.
func (h *ActivityHandler) Append(ctx context.Context, req *dto.AppendActivityRequest) (*dto.AppendActivityResponse, error) {
	e, err := h.log.Append(ctx, activity.Entry{
		Action:      req.Action,
		Description: req.Description,
		Files:       req.Files,
		Status:      req.Status,
	})
	if err != nil {
		return nil, storeError("write activity log", h.log.Path(), err)
	}
	return &dto.AppendActivityResponse{Success: true, Activity: activityToDTO(e)}, nil
}

// Clear empties the log. Clearing a missing log succeeds.
func (h *ActivityHandler) Clear(ctx context.Context, req *dto.ClearActivityRequest) (*dto.ClearActivityResponse, error) {
	cleared, err := h.log.Clear(ctx)
	if err != nil {
		return nil, storeError("clear activity log", h.log.Path(), err)
	}
	msg := "Activity log cleared"
	if !cleared {
		msg = "Activity log is already empty"
	}
	return &dto.ClearActivityResponse{Success: true, Message: msg}, nil
}
