// Defines the content store interface and its error surface.

// Package contentstore is the sole gateway to the version-controlled file
// host backing the site.
//
// A Store is bound at construction to one repository and one branch; callers
// cannot change either per call. Every mutation requires the version token
// (the object SHA) last observed by the caller, or an explicit absence of
// token to create a new file.
package contentstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the path does not exist.
	ErrNotFound = errors.New("not found")
	// ErrIsDirectory is returned when a file was expected but the path is a directory.
	ErrIsDirectory = errors.New("path is a directory")
	// ErrNotDirectory is returned when a directory was expected but the path is a file.
	ErrNotDirectory = errors.New("path is not a directory")
	// ErrConflict is matched by *ConflictError.
	ErrConflict = errors.New("version conflict")
)

// ConflictError reports a mutation whose version token no longer matches
// the stored object.
type ConflictError struct {
	Path string
	// Expected is the token supplied by the caller, empty for a create.
	Expected string
	// Current is the stored token when known.
	Current string
}

func (e *ConflictError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("version conflict on %s: file already exists", e.Path)
	}
	return fmt.Sprintf("version conflict on %s: expected %s", e.Path, e.Expected)
}

// Is reports whether target is ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// EntryType is the kind of a directory entry.
type EntryType string

const (
	// TypeFile is a regular file.
	TypeFile EntryType = "file"
	// TypeDir is a directory.
	TypeDir EntryType = "dir"
)

// File is one stored object with its decoded content.
type File struct {
	Path    string
	Content []byte
	SHA     string
	Size    int64
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	Size int64     `json:"size"`
}

// Commit is the result of a successful mutation.
type Commit struct {
	// SHA is the new version token of the object; empty after a delete.
	SHA string
	// CommitSHA identifies the commit that recorded the mutation.
	CommitSHA string
	// URL is a browsable link to the commit when the store provides one.
	URL string
}

// Store is implemented by every content backend.
type Store interface {
	// Get returns the file at path.
	Get(ctx context.Context, path string) (*File, error)
	// List returns the entries of the directory at path; "" is the root.
	List(ctx context.Context, path string) ([]Entry, error)
	// Put creates or replaces the file at path. A nil ifMatch means the
	// file must not exist yet.
	Put(ctx context.Context, path string, content []byte, message string, ifMatch *string) (*Commit, error)
	// Delete removes the file at path, which must currently be at sha.
	Delete(ctx context.Context, path, sha, message string) (*Commit, error)
}

// Token returns a pointer to sha for use as Put's ifMatch argument, or nil
// when f is nil.
func Token(f *File) *string {
	if f == nil {
		return nil
	}
	s := f.SHA
	return &s
}
