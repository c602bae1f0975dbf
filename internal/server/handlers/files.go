// Handles reading, writing and deleting repository files.

package handlers

import (
	"context"
	"encoding/base64"
	"unicode/utf8"

	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/pathpolicy"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// FileHandler handles file endpoints.
type FileHandler struct {
	svc *Services
	cfg *Config
}

// NewFileHandler creates a new file handler.
func NewFileHandler(svc *Services, cfg *Config) *FileHandler {
	return &FileHandler{svc: svc, cfg: cfg}
}

// List returns the entries of a directory. Entries the path policy would
// refuse to read are omitted.
func (h *FileHandler) List(ctx context.Context, req *dto.ListFilesRequest) (*dto.ListFilesResponse, error) {
	p := pathpolicy.Normalize(req.Path)
	if p != "" {
		var err error
		if p, err = checkPath(h.svc.Policy, p, pathpolicy.Read); err != nil {
			return nil, err
		}
	}
	entries, err := h.svc.Store.List(ctx, p)
	if err != nil {
		return nil, storeError("list directory", p, err)
	}
	files := make([]dto.FileInfo, 0, len(entries))
	for i := range entries {
		if !h.svc.Policy.Check(entries[i].Path, pathpolicy.Read).Allowed {
			continue
		}
		files = append(files, entryToDTO(&entries[i]))
	}
	return &dto.ListFilesResponse{Path: p, Files: files}, nil
}

// Read returns one file with its version token.
func (h *FileHandler) Read(ctx context.Context, req *dto.ReadFileRequest) (*dto.ReadFileResponse, error) {
	p, err := checkPath(h.svc.Policy, req.Path, pathpolicy.Read)
	if err != nil {
		return nil, err
	}
	f, err := h.svc.Store.Get(ctx, p)
	if err != nil {
		return nil, storeError("read file", p, err)
	}
	resp := &dto.ReadFileResponse{Path: f.Path, SHA: f.SHA, Size: f.Size}
	if utf8.Valid(f.Content) {
		resp.Content = string(f.Content)
	} else {
		resp.Content = base64.StdEncoding.EncodeToString(f.Content)
		resp.Encoding = "base64"
	}
	return resp, nil
}

// Write creates or updates a file. With a SHA the write is a single
// compare-and-swap; without one it overwrites whatever is current.
func (h *FileHandler) Write(ctx context.Context, req *dto.WriteFileRequest) (*dto.WriteFileResponse, error) {
	p, err := checkPath(h.svc.Policy, req.Path, pathpolicy.Write)
	if err != nil {
		return nil, err
	}
	content := []byte(*req.Content)
	created := false
	if req.SHA != nil {
		c, err := h.svc.Store.Put(ctx, p, content, req.Message, req.SHA)
		if err != nil {
			return nil, storeError("write file", p, err)
		}
		return h.written(ctx, p, c.SHA, c.CommitSHA, false), nil
	}
	c, err := h.svc.Writer.Update(ctx, p, req.Message, func(_ []byte, exists bool) ([]byte, error) {
		created = !exists
		return content, nil
	}, nil)
	if err != nil {
		return nil, storeError("write file", p, err)
	}
	return h.written(ctx, p, c.SHA, c.CommitSHA, created), nil
}

func (h *FileHandler) written(ctx context.Context, p, sha, commit string, created bool) *dto.WriteFileResponse {
	action, verb := "edit", "updated"
	if created {
		action, verb = "create", "created"
	}
	h.svc.Activity.Record(ctx, activity.Entry{
		Action:      action,
		Description: "File " + verb + ": " + p,
		Files:       []string{p},
	})
	return &dto.WriteFileResponse{
		Success: true,
		Path:    p,
		SHA:     sha,
		Commit:  commit,
		Message: "File " + verb + " successfully",
	}
}

// Delete removes a file at its current version.
func (h *FileHandler) Delete(ctx context.Context, req *dto.DeleteFileRequest) (*dto.DeleteFileResponse, error) {
	p, err := checkPath(h.svc.Policy, req.Path, pathpolicy.Delete)
	if err != nil {
		return nil, err
	}
	f, err := h.svc.Store.Get(ctx, p)
	if err != nil {
		return nil, storeError("delete file", p, err)
	}
	msg := req.Message
	if msg == "" {
		msg = "Delete " + p
	}
	if _, err := h.svc.Store.Delete(ctx, p, f.SHA, msg); err != nil {
		return nil, storeError("delete file", p, err)
	}
	h.svc.Activity.Record(ctx, activity.Entry{
		Action:      "delete",
		Description: "File deleted: " + p,
		Files:       []string{p},
	})
	return &dto.DeleteFileResponse{
		Success: true,
		Message: "File deleted successfully",
		Path:    p,
	}, nil
}
