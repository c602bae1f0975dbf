// Handles binary asset uploads.

package handlers

import (
	"context"
	"encoding/base64"
	"path"
	"strings"

	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/pathpolicy"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// Upload stores an image under the asset directory. The destination is
// derived from the sanitized filename.
func (h *FileHandler) Upload(ctx context.Context, req *dto.UploadRequest) (*dto.UploadResponse, error) {
	if d := pathpolicy.CheckUpload(req.ContentType, 0); !d.Allowed {
		return nil, dto.UploadRejected(d.Reason)
	}
	data, err := decodeUpload(req.Content)
	if err != nil {
		return nil, dto.InvalidField("content", "not valid base64")
	}
	if d := pathpolicy.CheckUpload(req.ContentType, len(data)); !d.Allowed {
		return nil, dto.UploadRejected(d.Reason).WithDetail("size", len(data))
	}
	p, err := pathpolicy.UploadPath(h.cfg.UploadDir, req.Filename)
	if err != nil {
		return nil, dto.InvalidField("filename", err.Error())
	}
	name := path.Base(p)
	if _, err := h.svc.Writer.Overwrite(ctx, p, data, "Upload "+name); err != nil {
		return nil, storeError("upload file", p, err)
	}
	h.svc.Activity.Record(ctx, activity.Entry{
		Action:      "upload",
		Description: "Uploaded " + name,
		Files:       []string{p},
	})
	return &dto.UploadResponse{
		Success:  true,
		Path:     p,
		Filename: name,
		Message:  "File uploaded successfully",
	}, nil
}

// decodeUpload decodes standard base64, tolerating a data URL prefix.
func decodeUpload(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if _, after, ok := strings.Cut(s, ","); ok {
			s = after
		}
	}
	return base64.StdEncoding.DecodeString(s)
}
