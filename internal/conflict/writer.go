// Package conflict applies read-modify-write updates to a content store,
// retrying when another writer got there first.
package conflict

import (
	"context"
	"errors"
	"fmt"

	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/retry"
)

// DefaultAttempts is the number of tries before a conflict is surfaced.
const DefaultAttempts = 3

// ErrSkip may be returned by a Transform to finish without writing.
var ErrSkip = errors.New("skip write")

// Transform derives the new content of a file from its current content.
// exists is false when the file does not exist yet.
type Transform func(current []byte, exists bool) ([]byte, error)

// Writer performs conflict-resolving writes against Store.
type Writer struct {
	Store contentstore.Store
	// Attempts defaults to DefaultAttempts.
	Attempts int
	// Backoff defaults to retry.DefaultBackoff.
	Backoff retry.Backoff
}

// New returns a Writer with default attempts and backoff.
func New(s contentstore.Store) *Writer {
	return &Writer{Store: s, Attempts: DefaultAttempts, Backoff: retry.DefaultBackoff}
}

// Update reads path, applies fn and writes the result with the token it just
// read. When the write loses a race it starts over from a fresh read.
//
// seed, when non-nil, is used in place of the first read. A nil return with
// a nil error means fn returned ErrSkip.
func (w *Writer) Update(ctx context.Context, path, message string, fn Transform, seed *contentstore.File) (*contentstore.Commit, error) {
	attempts := w.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	b := w.Backoff
	if b == (retry.Backoff{}) {
		b = retry.DefaultBackoff
	}
	c, err := retry.Do(ctx, attempts, b, isConflict, func(ctx context.Context, attempt int) (*contentstore.Commit, error) {
		cur := seed
		if attempt > 0 || cur == nil {
			f, err := w.Store.Get(ctx, path)
			switch {
			case errors.Is(err, contentstore.ErrNotFound):
				cur = nil
			case err != nil:
				return nil, err
			default:
				cur = f
			}
		}
		var content []byte
		if cur != nil {
			content = cur.Content
		}
		next, err := fn(content, cur != nil)
		if err != nil {
			return nil, err
		}
		return w.Store.Put(ctx, path, next, message, contentstore.Token(cur))
	})
	if errors.Is(err, ErrSkip) {
		return nil, nil
	}
	if isConflict(err) {
		return nil, fmt.Errorf("gave up on %s after %d attempts: %w", path, attempts, err)
	}
	return c, err
}

// Overwrite replaces path with content regardless of what another writer
// stored in between.
func (w *Writer) Overwrite(ctx context.Context, path string, content []byte, message string) (*contentstore.Commit, error) {
	return w.Update(ctx, path, message, func([]byte, bool) ([]byte, error) { return content, nil }, nil)
}

func isConflict(err error) bool {
	return errors.Is(err, contentstore.ErrConflict)
}
