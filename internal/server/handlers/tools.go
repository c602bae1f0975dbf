// Exposes file, activity and deploy operations as agent tools.

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/havenrealty/sitekeeper/internal/agenttools"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// ToolHandler lists and runs agent tools. Tools call the same handler
// methods as the HTTP endpoints, so the path policy applies identically.
type ToolHandler struct {
	reg *agenttools.Registry
}

// NewToolRegistry registers list_files, read_file, write_file, delete_file,
// log_activity and trigger_deploy.
func NewToolRegistry(files *FileHandler, act *ActivityHandler, dep *DeployHandler) *agenttools.Registry {
	r := agenttools.New()
	agenttools.MustRegister(r, "list_files", "List the files and directories at a path of the website repository.", tool(files.List))
	agenttools.MustRegister(r, "read_file", "Read a file of the website repository. Returns its content and sha.", tool(files.Read))
	agenttools.MustRegister(r, "write_file", "Create or replace a file of the website repository. Pass the sha from read_file to avoid overwriting concurrent edits.", tool(files.Write))
	agenttools.MustRegister(r, "delete_file", "Delete a file of the website repository.", tool(files.Delete))
	agenttools.MustRegister(r, "log_activity", "Record a change in the activity log.", tool(act.Append))
	agenttools.MustRegister(r, "trigger_deploy", "Publish the current state of the repository.", tool(dep.Trigger))
	return r
}

// tool adapts a handler method to an agent tool.
func tool[In, Out any](fn func(context.Context, *In) (*Out, error)) func(context.Context, *In) (any, error) {
	return func(ctx context.Context, in *In) (any, error) {
		out, err := fn(ctx, in)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// NewToolHandler creates a new tool handler.
func NewToolHandler(reg *agenttools.Registry) *ToolHandler {
	return &ToolHandler{reg: reg}
}

// List returns every tool definition.
func (h *ToolHandler) List(ctx context.Context, req *dto.ListToolsRequest) (*dto.ListToolsResponse, error) {
	return &dto.ListToolsResponse{Tools: h.reg.RawDefinitions()}, nil
}

// Call runs the tool named in the path with the request body as arguments.
// Arguments are checked against the tool's schema before it runs.
func (h *ToolHandler) Call(ctx context.Context, r *http.Request, body []byte) (*dto.ToolCallResponse, error) {
	name := r.PathValue("name")
	res, err := h.reg.Call(ctx, name, body)
	if err != nil {
		var argErr *agenttools.ArgumentError
		switch {
		case errors.Is(err, agenttools.ErrUnknownTool):
			return nil, dto.NotFound("Tool " + name)
		case errors.As(err, &argErr):
			var apiErr *dto.APIError
			if errors.As(argErr.Err, &apiErr) {
				return nil, apiErr
			}
			return nil, dto.BadRequest("Invalid tool arguments").WithDetail("reason", argErr.Err.Error())
		}
		return nil, err
	}
	return &dto.ToolCallResponse{Tool: name, Result: res}, nil
}
