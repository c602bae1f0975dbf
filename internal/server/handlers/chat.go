// Proxies chat completions for the editing assistant.

package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/havenrealty/sitekeeper/internal/agenttools"
	"github.com/havenrealty/sitekeeper/internal/chat"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// ChatHandler forwards conversations to the completion API with the agent
// tools attached.
type ChatHandler struct {
	client *chat.Client
	tools  *agenttools.Registry
}

// NewChatHandler creates a new chat handler. tools may be nil.
func NewChatHandler(svc *Services, tools *agenttools.Registry) *ChatHandler {
	return &ChatHandler{client: svc.Chat, tools: tools}
}

// Complete returns the assistant's next message.
func (h *ChatHandler) Complete(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	var defs []json.RawMessage
	if h.tools != nil {
		defs = h.tools.RawDefinitions()
	}
	msg, err := h.client.Complete(ctx, req.Messages, defs)
	switch {
	case errors.Is(err, chat.ErrNotConfigured):
		return nil, dto.NotConfigured("Chat API")
	case errors.Is(err, chat.ErrTimeout):
		return nil, dto.Timeout("Chat completion").Wrap(err)
	case err != nil:
		return nil, dto.UpstreamError("Chat completion", err)
	}
	return &dto.ChatResponse{Message: msg}, nil
}
