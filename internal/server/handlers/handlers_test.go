package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/server/dto"
)

// fakeStore records every call and forwards to an in-memory store unless a
// hook intercepts it.
type fakeStore struct {
	*contentstore.Memory

	mu    sync.Mutex
	calls []string

	get func(path string) (*contentstore.File, error)
	put func(path string) error
	del func(path, sha string) (*contentstore.Commit, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{Memory: contentstore.NewMemory()}
}

func (s *fakeStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeStore) Get(ctx context.Context, path string) (*contentstore.File, error) {
	s.record("get " + path)
	if s.get != nil {
		if f, err := s.get(path); f != nil || err != nil {
			return f, err
		}
	}
	return s.Memory.Get(ctx, path)
}

func (s *fakeStore) List(ctx context.Context, path string) ([]contentstore.Entry, error) {
	s.record("list " + path)
	return s.Memory.List(ctx, path)
}

func (s *fakeStore) Put(ctx context.Context, path string, content []byte, message string, ifMatch *string) (*contentstore.Commit, error) {
	s.record("put " + path)
	if s.put != nil {
		if err := s.put(path); err != nil {
			return nil, err
		}
	}
	return s.Memory.Put(ctx, path, content, message, ifMatch)
}

func (s *fakeStore) Delete(ctx context.Context, path, sha, message string) (*contentstore.Commit, error) {
	s.record("delete " + path + " " + sha)
	if s.del != nil {
		return s.del(path, sha)
	}
	return s.Memory.Delete(ctx, path, sha, message)
}

func newTestServices(t *testing.T) (*Services, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	return NewServices(st, nil, ""), st
}

// wantAPIError fails unless err is an *dto.APIError with status and code.
func wantAPIError(t *testing.T, err error, status int, code dto.ErrorCode) *dto.APIError {
	t.Helper()
	var apiErr *dto.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *dto.APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode() != status || apiErr.Code() != code {
		t.Fatalf("got %d %s (%v), want %d %s", apiErr.StatusCode(), apiErr.Code(), err, status, code)
	}
	return apiErr
}

func ptr[T any](v T) *T {
	return &v
}
