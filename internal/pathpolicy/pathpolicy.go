// Decides which repository paths the API may read, write or delete.

// Package pathpolicy gates every repository path touched through the API.
//
// All functions are pure: they never perform I/O and never panic. A rejected
// path comes with a human readable reason suitable for an API response.
package pathpolicy

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
)

// Op is the kind of access being requested.
type Op int

const (
	// Read is a file or directory read.
	Read Op = iota
	// Write creates or overwrites a file.
	Write
	// Delete removes a file.
	Delete
)

func (o Op) String() string {
	switch o {
	case Read:
		return "read"
	case Write:
		return "write"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// WriteExtensions lists the text and source extensions that may be written.
var WriteExtensions = []string{
	".html", ".htm", ".css", ".js", ".jsx", ".mjs", ".ts", ".tsx",
	".json", ".md", ".txt", ".svg",
}

// DeleteExtensions lists the extensions that may be deleted: everything
// writable plus raster images.
var DeleteExtensions = append(slices.Clone(WriteExtensions),
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".avif",
)

// sensitive matches paths that are never exposed, whatever the operation.
var sensitive = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)\.env(\.[^/]*)?$`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)\.(pem|key|p12|pfx)$`),
	regexp.MustCompile(`(^|/)\.git(/|$)`),
}

// protected matches paths that may be read but never modified.
var protected = []*regexp.Regexp{
	regexp.MustCompile(`^api(/|$)`),
	regexp.MustCompile(`(^|/)package(-lock)?\.json$`),
	regexp.MustCompile(`(^|/)node_modules(/|$)`),
}

// deployConfig is the hosting platform's build configuration file.
const deployConfig = "vercel.json"

// Policy holds the rule set. The zero value is not usable; use New.
type Policy struct {
	extraDeny []*regexp.Regexp
}

// New returns a Policy with the built-in rules plus extra deny patterns.
func New(extraDeny ...string) (*Policy, error) {
	p := &Policy{}
	for _, s := range extraDeny {
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", s, err)
		}
		p.extraDeny = append(p.extraDeny, re)
	}
	return p, nil
}

// Default returns a Policy with only the built-in rules.
func Default() *Policy {
	return &Policy{}
}

// Normalize strips surrounding spaces and a single leading or trailing slash.
// It never cleans "." or ".." segments; Check rejects those.
func Normalize(p string) string {
	p = strings.TrimPrefix(strings.TrimSpace(p), "/")
	return strings.TrimSuffix(p, "/")
}

// Check decides whether op is permitted on p.
func (pol *Policy) Check(p string, op Op) Decision {
	if p == "" {
		return deny("path is required")
	}
	if strings.Contains(p, "..") {
		return deny("path traversal is not allowed")
	}
	if strings.Contains(p, "//") {
		return deny("path contains an empty segment")
	}
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." {
			return deny("path traversal is not allowed")
		}
	}
	if path.Clean(p) != p {
		return deny("path %q is not canonical", p)
	}
	for _, re := range sensitive {
		if re.MatchString(p) {
			return deny("access to sensitive file %q is not allowed", p)
		}
	}
	for _, re := range pol.extraDeny {
		if re.MatchString(p) {
			return deny("access to %q is blocked by site policy", p)
		}
	}
	if op == Read {
		return allow()
	}
	for _, re := range protected {
		if re.MatchString(p) {
			return deny("cannot %s protected path %q", op, p)
		}
	}
	ext := strings.ToLower(path.Ext(p))
	switch op {
	case Write:
		if !slices.Contains(WriteExtensions, ext) {
			return deny("file type %q cannot be written", ext)
		}
	case Delete:
		if path.Base(p) == deployConfig {
			return deny("cannot delete deployment configuration %q", p)
		}
		if !slices.Contains(DeleteExtensions, ext) {
			return deny("file type %q cannot be deleted", ext)
		}
	default:
		return deny("unknown operation")
	}
	return allow()
}
