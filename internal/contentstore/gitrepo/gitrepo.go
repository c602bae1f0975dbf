// Implements contentstore.Store on a local git repository using go-git.

// Package gitrepo stores site content in a local git working tree.
//
// Reads are served from the tip of the configured branch and every mutation
// becomes one commit, so version tokens are git blob hashes exactly as the
// hosted store reports them. It is meant for offline development.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/havenrealty/sitekeeper/internal/contentstore"
)

// Options configures Open.
type Options struct {
	// Dir is the working tree. It is created and initialized when missing.
	Dir string
	// Branch defaults to "main".
	Branch string
	// Name and Email sign every commit.
	Name  string
	Email string
}

// Repo is a contentstore.Store backed by a local git repository.
type Repo struct {
	dir    string
	branch plumbing.ReferenceName
	name   string
	email  string
	repo   *gogit.Repository
	mu     sync.Mutex
}

// Open opens or initializes the repository at opts.Dir.
func Open(opts Options) (*Repo, error) {
	if opts.Dir == "" {
		return nil, errors.New("repository directory is required")
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	if opts.Name == "" {
		opts.Name = "sitekeeper"
	}
	if opts.Email == "" {
		opts.Email = "sitekeeper@localhost"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil { //nolint:gosec // G301: working tree is world readable
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	branch := plumbing.NewBranchReferenceName(opts.Branch)
	repo, err := gogit.PlainOpen(opts.Dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.PlainInitWithOptions(opts.Dir, &gogit.PlainInitOptions{
			InitOptions: gogit.InitOptions{DefaultBranch: branch},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	head, err := repo.Head()
	switch {
	case err == nil:
		if head.Name() != branch {
			return nil, fmt.Errorf("repository is on %s, want %s", head.Name().Short(), opts.Branch)
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// No commits yet: point HEAD at the configured branch.
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branch)); err != nil {
			return nil, fmt.Errorf("failed to set HEAD: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return &Repo{dir: opts.Dir, branch: branch, name: opts.Name, email: opts.Email, repo: repo}, nil
}

// Get implements contentstore.Store.
func (r *Repo) Get(ctx context.Context, path string) (*contentstore.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tree()
	if err != nil {
		return nil, err
	}
	e, err := findEntry(t, path)
	if err != nil {
		return nil, err
	}
	if e.Mode == filemode.Dir {
		return nil, contentstore.ErrIsDirectory
	}
	f, err := t.TreeEntryFile(e)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &contentstore.File{Path: path, Content: []byte(s), SHA: f.Hash.String(), Size: f.Size}, nil
}

// List implements contentstore.Store.
func (r *Repo) List(ctx context.Context, path string) ([]contentstore.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	path = strings.Trim(path, "/")
	t, err := r.tree()
	if err != nil {
		return nil, err
	}
	if t == nil {
		if path == "" {
			return []contentstore.Entry{}, nil
		}
		return nil, contentstore.ErrNotFound
	}
	prefix := ""
	if path != "" {
		e, err := findEntry(t, path)
		if err != nil {
			return nil, err
		}
		if e.Mode != filemode.Dir {
			return nil, contentstore.ErrNotDirectory
		}
		if t, err = t.Tree(path); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		prefix = path + "/"
	}
	out := make([]contentstore.Entry, 0, len(t.Entries))
	for _, e := range t.Entries {
		entry := contentstore.Entry{Name: e.Name, Path: prefix + e.Name, Type: contentstore.TypeFile}
		if e.Mode == filemode.Dir {
			entry.Type = contentstore.TypeDir
		} else if entry.Size, err = t.Size(e.Name); err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Path, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Put implements contentstore.Store.
func (r *Repo) Put(ctx context.Context, path string, content []byte, message string, ifMatch *string) (*contentstore.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	local, err := localPath(path)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.current(path)
	if err != nil {
		return nil, err
	}
	switch {
	case cur != "" && ifMatch == nil:
		return nil, &contentstore.ConflictError{Path: path, Current: cur}
	case ifMatch != nil && *ifMatch != cur:
		return nil, &contentstore.ConflictError{Path: path, Expected: *ifMatch, Current: cur}
	}
	full := filepath.Join(r.dir, local)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil { //nolint:gosec // G301: working tree is world readable
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil { //nolint:gosec // G306: site content is public
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Add(path); err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", path, err)
	}
	hash, err := r.commit(w, message)
	if err != nil {
		return nil, err
	}
	return &contentstore.Commit{
		SHA:       plumbing.ComputeHash(plumbing.BlobObject, content).String(),
		CommitSHA: hash,
	}, nil
}

// Delete implements contentstore.Store.
func (r *Repo) Delete(ctx context.Context, path, sha, message string) (*contentstore.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := localPath(path); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, err := r.current(path)
	if err != nil {
		return nil, err
	}
	if cur == "" {
		return nil, contentstore.ErrNotFound
	}
	if cur != sha {
		return nil, &contentstore.ConflictError{Path: path, Expected: sha, Current: cur}
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := w.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	hash, err := r.commit(w, message)
	if err != nil {
		return nil, err
	}
	return &contentstore.Commit{CommitSHA: hash}, nil
}

// tree returns the tree at the branch tip, or nil before the first commit.
func (r *Repo) tree() (*object.Tree, error) {
	ref, err := r.repo.Reference(r.branch, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", r.branch.Short(), err)
	}
	c, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}
	return c.Tree()
}

// current returns the blob hash at path, or "" when absent.
func (r *Repo) current(path string) (string, error) {
	t, err := r.tree()
	if err != nil {
		return "", err
	}
	e, err := findEntry(t, path)
	if errors.Is(err, contentstore.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if e.Mode == filemode.Dir {
		return "", contentstore.ErrIsDirectory
	}
	return e.Hash.String(), nil
}

func (r *Repo) commit(w *gogit.Worktree, message string) (string, error) {
	status, err := w.Status()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		ref, err := r.repo.Reference(r.branch, true)
		if err != nil {
			return "", fmt.Errorf("failed to resolve %s: %w", r.branch.Short(), err)
		}
		return ref.Hash().String(), nil
	}
	sig := &object.Signature{Name: r.name, Email: r.email, When: time.Now()}
	h, err := w.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return h.String(), nil
}

func findEntry(t *object.Tree, path string) (*object.TreeEntry, error) {
	if t == nil {
		return nil, contentstore.ErrNotFound
	}
	e, err := t.FindEntry(strings.Trim(path, "/"))
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, contentstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return e, nil
}

// localPath converts a repository path to a path under the working tree.
func localPath(path string) (string, error) {
	l := filepath.FromSlash(path)
	if !filepath.IsLocal(l) {
		return "", fmt.Errorf("path %q escapes the repository", path)
	}
	return l, nil
}
