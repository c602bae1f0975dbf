// Maps domain errors onto API errors.

package handlers

import (
	"errors"

	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/pathpolicy"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// storeError converts a content store error for op on path.
func storeError(op, path string, err error) error {
	var ce *contentstore.ConflictError
	switch {
	case errors.Is(err, contentstore.ErrNotFound):
		return dto.NotFound("File "+path).WithDetail("path", path)
	case errors.Is(err, contentstore.ErrIsDirectory):
		return dto.BadRequest("Path is a directory, not a file").WithDetail("path", path)
	case errors.Is(err, contentstore.ErrNotDirectory):
		return dto.BadRequest("Path is a file, not a directory").WithDetail("path", path)
	case errors.As(err, &ce):
		e := dto.Conflict(path).Wrap(err)
		if ce.Current != "" {
			e.WithDetail("currentSha", ce.Current)
		}
		return e
	default:
		return dto.StorageError(op, err)
	}
}

// checkPath normalizes p and applies the path policy for op.
func checkPath(pol *pathpolicy.Policy, p string, op pathpolicy.Op) (string, error) {
	p = pathpolicy.Normalize(p)
	if d := pol.Check(p, op); !d.Allowed {
		return p, dto.PolicyRejection(p, d.Reason)
	}
	return p, nil
}
