// Package activity keeps the capped audit trail of site edits in the
// content store.
//
// The log is a single JSON document holding the most recent entries first.
// Every append is a conflict-resolving read-modify-write, so concurrent
// requests never drop one another's entries.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/maruel/ksid"

	"github.com/havenrealty/sitekeeper/internal/conflict"
	"github.com/havenrealty/sitekeeper/internal/contentstore"
)

const (
	// DefaultPath is where the log lives in the repository.
	DefaultPath = "data/activity-log.json"
	// MaxEntries is the retention cap.
	MaxEntries = 100
	// StatusCompleted is the only status currently recorded.
	StatusCompleted = "completed"
)

// Entry is one audit record.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	Files       []string  `json:"files"`
	Status      string    `json:"status"`
}

// Parse decodes a stored log. Both the bare array and the legacy
// {"activities": [...]} wrapper are accepted; empty content is an empty log.
func Parse(data []byte) ([]Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Entry{}, nil
	}
	var entries []Entry
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("invalid activity log: %w", err)
		}
	case '{':
		var w struct {
			Activities []Entry `json:"activities"`
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("invalid activity log: %w", err)
		}
		entries = w.Activities
	default:
		return nil, errors.New("invalid activity log: expected an array or object")
	}
	if entries == nil {
		entries = []Entry{}
	}
	for i := range entries {
		if entries[i].Files == nil {
			entries[i].Files = []string{}
		}
	}
	return entries, nil
}

// Encode serializes entries in the canonical bare array form.
func Encode(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Log reads and writes the activity log at one repository path.
type Log struct {
	store  contentstore.Store
	writer *conflict.Writer
	path   string
	now    func() time.Time
}

// New returns a Log stored at path through w. An empty path uses
// DefaultPath.
func New(w *conflict.Writer, path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{store: w.Store, writer: w, path: path, now: time.Now}
}

// Path returns the repository path of the log.
func (l *Log) Path() string {
	return l.path
}

// Append prepends e to the log and trims it to MaxEntries. ID, Timestamp
// and Status are set by the log; caller provided values are ignored except
// for a non-empty Status.
func (l *Log) Append(ctx context.Context, e Entry) (*Entry, error) {
	e.ID = ksid.NewID().String()
	e.Timestamp = l.now().UTC()
	if e.Status == "" {
		e.Status = StatusCompleted
	}
	if e.Files == nil {
		e.Files = []string{}
	}
	_, err := l.writer.Update(ctx, l.path, "Log activity: "+e.Action, func(cur []byte, _ bool) ([]byte, error) {
		entries, err := Parse(cur)
		if err != nil {
			return nil, err
		}
		entries = slices.Insert(entries, 0, e)
		if len(entries) > MaxEntries {
			entries = entries[:MaxEntries]
		}
		return Encode(entries)
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}
	return &e, nil
}

// Record appends e and discards the outcome. Failures are logged and never
// reach the caller; the write outlives the request context.
func (l *Log) Record(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if _, err := l.Append(ctx, e); err != nil {
		slog.WarnContext(ctx, "activity log write failed", "action", e.Action, "err", err)
	}
}

// List returns the log, most recent first. A missing log is empty.
func (l *Log) List(ctx context.Context) ([]Entry, error) {
	f, err := l.store.Get(ctx, l.path)
	if errors.Is(err, contentstore.ErrNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read activity log: %w", err)
	}
	return Parse(f.Content)
}

// Clear empties the log. It reports false when there was no log to clear.
func (l *Log) Clear(ctx context.Context) (bool, error) {
	f, err := l.store.Get(ctx, l.path)
	if errors.Is(err, contentstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read activity log: %w", err)
	}
	c, err := l.writer.Update(ctx, l.path, "Clear activity log", func(_ []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, conflict.ErrSkip
		}
		return Encode(nil)
	}, f)
	if err != nil {
		return false, fmt.Errorf("clear activity log: %w", err)
	}
	return c != nil, nil
}
