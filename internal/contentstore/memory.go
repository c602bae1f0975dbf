// In-process Store with git-compatible object hashes.

package contentstore

import (
	"context"
	"crypto/sha1" //nolint:gosec // G505: git object ids are SHA-1
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// Memory is a Store held in memory. Version tokens are git blob hashes, so a
// file's SHA matches what GitHub would report for the same content.
//
// It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	files   map[string][]byte
	commits int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// BlobSHA returns the git blob object id of content.
func BlobSHA(content []byte) string {
	h := sha1.New() //nolint:gosec // G401: git object ids are SHA-1
	h.Write([]byte("blob " + strconv.Itoa(len(content)) + "\x00"))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, path string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.files[path]; ok {
		return &File{Path: path, Content: slices.Clone(b), SHA: BlobSHA(b), Size: int64(len(b))}, nil
	}
	if m.isDir(path) {
		return nil, ErrIsDirectory
	}
	return nil, ErrNotFound
}

// List implements Store.
func (m *Memory) List(_ context.Context, path string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = strings.Trim(path, "/")
	if _, ok := m.files[path]; ok && path != "" {
		return nil, ErrNotDirectory
	}
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	seen := make(map[string]bool)
	var out []Entry
	for p, b := range m.files {
		rest, ok := strings.CutPrefix(p, prefix)
		if !ok {
			continue
		}
		name, _, isDir := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		e := Entry{Name: name, Path: prefix + name, Type: TypeFile, Size: int64(len(b))}
		if isDir {
			e.Type = TypeDir
			e.Size = 0
		}
		out = append(out, e)
	}
	if len(out) == 0 && path != "" {
		return nil, ErrNotFound
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, path string, content []byte, _ string, ifMatch *string) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isDir(path) {
		return nil, ErrIsDirectory
	}
	cur, exists := m.files[path]
	switch {
	case exists && ifMatch == nil:
		return nil, &ConflictError{Path: path, Current: BlobSHA(cur)}
	case exists && *ifMatch != BlobSHA(cur):
		return nil, &ConflictError{Path: path, Expected: *ifMatch, Current: BlobSHA(cur)}
	case !exists && ifMatch != nil:
		return nil, &ConflictError{Path: path, Expected: *ifMatch}
	}
	m.files[path] = slices.Clone(content)
	return &Commit{SHA: BlobSHA(content), CommitSHA: m.nextCommit()}, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, path, sha, _ string) (*Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	if BlobSHA(cur) != sha {
		return nil, &ConflictError{Path: path, Expected: sha, Current: BlobSHA(cur)}
	}
	delete(m.files, path)
	return &Commit{CommitSHA: m.nextCommit()}, nil
}

func (m *Memory) isDir(path string) bool {
	prefix := strings.Trim(path, "/") + "/"
	for p := range m.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (m *Memory) nextCommit() string {
	m.commits++
	return BlobSHA([]byte(fmt.Sprintf("commit %d", m.commits)))
}
