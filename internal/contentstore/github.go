// Implements Store over the GitHub REST Contents API.

package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultGitHubURL is the public GitHub REST API endpoint.
const DefaultGitHubURL = "https://api.github.com"

// maxResponseBytes bounds how much of a GitHub response body is read.
const maxResponseBytes = 64 << 20

// UpstreamError is a non-2xx GitHub response that is neither a missing
// object nor a version conflict.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("github: %d %s", e.StatusCode, e.Message)
}

// GitHubOptions configures a GitHub store.
type GitHubOptions struct {
	// BaseURL defaults to DefaultGitHubURL.
	BaseURL string
	Owner   string
	Repo    string
	// Branch defaults to "main".
	Branch string
	// TokenSource authenticates every request. Required.
	TokenSource oauth2.TokenSource
	// HTTPClient's transport is wrapped with TokenSource. Defaults to a
	// client with a 30s timeout.
	HTTPClient *http.Client
}

// GitHub is a Store bound to one repository branch on GitHub.
type GitHub struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	client  *http.Client
}

// NewGitHub returns a GitHub store for opts.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, errors.New("github owner and repo are required")
	}
	if opts.TokenSource == nil {
		return nil, errors.New("github token source is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultGitHubURL
	}
	if opts.Branch == "" {
		opts.Branch = "main"
	}
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	client := *base
	client.Transport = &oauth2.Transport{Source: opts.TokenSource, Base: base.Transport}
	return &GitHub{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		owner:   opts.Owner,
		repo:    opts.Repo,
		branch:  opts.Branch,
		client:  &client,
	}, nil
}

// Branch returns the branch the store is bound to.
func (g *GitHub) Branch() string {
	return g.branch
}

type contentObject struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type mutationResponse struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"commit"`
}

// Get implements Store.
func (g *GitHub) Get(ctx context.Context, path string) (*File, error) {
	status, body, err := g.do(ctx, http.MethodGet, g.contentsURL(path), nil)
	if err != nil {
		return nil, err
	}
	if err := g.check(status, body, path, nil); err != nil {
		return nil, err
	}
	if isArray(body) {
		return nil, ErrIsDirectory
	}
	var obj contentObject
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("decode contents of %s: %w", path, err)
	}
	if obj.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, obj.Type)
	}
	if obj.Encoding == "none" || (obj.Content == "" && obj.Size > 0) {
		if obj.Content, err = g.blob(ctx, obj.SHA); err != nil {
			return nil, err
		}
	}
	content, err := decodeBase64(obj.Content)
	if err != nil {
		return nil, fmt.Errorf("decode contents of %s: %w", path, err)
	}
	return &File{Path: path, Content: content, SHA: obj.SHA, Size: int64(len(content))}, nil
}

// List implements Store.
func (g *GitHub) List(ctx context.Context, path string) ([]Entry, error) {
	status, body, err := g.do(ctx, http.MethodGet, g.contentsURL(path), nil)
	if err != nil {
		return nil, err
	}
	if err := g.check(status, body, path, nil); err != nil {
		return nil, err
	}
	if !isArray(body) {
		return nil, ErrNotDirectory
	}
	var objs []contentObject
	if err := json.Unmarshal(body, &objs); err != nil {
		return nil, fmt.Errorf("decode listing of %q: %w", path, err)
	}
	out := make([]Entry, 0, len(objs))
	for _, o := range objs {
		e := Entry{Name: o.Name, Path: o.Path, Type: TypeFile, Size: o.Size}
		if o.Type == "dir" {
			e.Type = TypeDir
		}
		out = append(out, e)
	}
	return out, nil
}

// Put implements Store.
func (g *GitHub) Put(ctx context.Context, path string, content []byte, message string, ifMatch *string) (*Commit, error) {
	req := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  g.branch,
	}
	if ifMatch != nil {
		req["sha"] = *ifMatch
	}
	return g.mutate(ctx, http.MethodPut, path, req, ifMatch)
}

// Delete implements Store.
func (g *GitHub) Delete(ctx context.Context, path, sha, message string) (*Commit, error) {
	req := map[string]string{
		"message": message,
		"sha":     sha,
		"branch":  g.branch,
	}
	return g.mutate(ctx, http.MethodDelete, path, req, &sha)
}

func (g *GitHub) mutate(ctx context.Context, method, path string, req map[string]string, ifMatch *string) (*Commit, error) {
	status, body, err := g.do(ctx, method, g.contentsURL(path), req)
	if err != nil {
		return nil, err
	}
	if err := g.check(status, body, path, ifMatch); err != nil {
		return nil, err
	}
	var resp mutationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response for %s: %w", method, path, err)
	}
	c := &Commit{CommitSHA: resp.Commit.SHA, URL: resp.Commit.HTMLURL}
	if resp.Content != nil {
		c.SHA = resp.Content.SHA
	}
	return c, nil
}

func (g *GitHub) blob(ctx context.Context, sha string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/git/blobs/%s", g.baseURL, url.PathEscape(g.owner), url.PathEscape(g.repo), url.PathEscape(sha))
	status, body, err := g.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	if err := g.check(status, body, sha, nil); err != nil {
		return "", err
	}
	var b struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.Unmarshal(body, &b); err != nil {
		return "", fmt.Errorf("decode blob %s: %w", sha, err)
	}
	if b.Encoding != "base64" {
		return "", fmt.Errorf("blob %s: unexpected encoding %q", sha, b.Encoding)
	}
	return b.Content, nil
}

// check maps a GitHub status code to the store's error surface.
func (g *GitHub) check(status int, body []byte, path string, ifMatch *string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := errorMessage(body)
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict,
		status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "sha"):
		e := &ConflictError{Path: path}
		if ifMatch != nil {
			e.Expected = *ifMatch
		}
		return e
	}
	return &UpstreamError{StatusCode: status, Message: msg}
}

func (g *GitHub) do(ctx context.Context, method, u string, payload any) (int, []byte, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("github %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("github %s: read response: %w", method, err)
	}
	return resp.StatusCode, b, nil
}

func (g *GitHub) contentsURL(path string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents", g.baseURL, url.PathEscape(g.owner), url.PathEscape(g.repo))
	if path = strings.Trim(path, "/"); path != "" {
		segs := strings.Split(path, "/")
		for i, s := range segs {
			segs[i] = url.PathEscape(s)
		}
		u += "/" + strings.Join(segs, "/")
	}
	return u + "?ref=" + url.QueryEscape(g.branch)
}

func isArray(body []byte) bool {
	b := bytes.TrimSpace(body)
	return len(b) > 0 && b[0] == '['
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

// decodeBase64 decodes GitHub's line-wrapped base64.
func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("\n", "", "\r", "").Replace(s)
	return base64.StdEncoding.DecodeString(s)
}
