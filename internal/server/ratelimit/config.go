// Defines rate limit tiers and maps API routes onto them.

package ratelimit

import (
	"strings"
	"time"
)

// Tier is a named limiter. A Tier with a nil Limiter never limits.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds the limiter of every tier.
type Config struct {
	Write Tier
	Read  Tier
	Chat  Tier
}

// NewConfig returns tiers allowing the given requests per minute per client
// IP. A zero or negative rate disables the tier.
func NewConfig(writePerMinute, readPerMinute, chatPerMinute int) *Config {
	return &Config{
		Write: newTier("write", writePerMinute),
		Read:  newTier("read", readPerMinute),
		Chat:  newTier("chat", chatPerMinute),
	}
}

func newTier(name string, perMinute int) Tier {
	t := Tier{Name: name}
	if perMinute > 0 {
		t.Limiter = NewLimiter(perMinute, time.Minute, max(perMinute/6, 1))
	}
	return t
}

// readPOSTs are POST routes that do not mutate anything.
var readPOSTs = map[string]bool{
	"/api/github/list": true,
	"/api/github/read": true,
}

// Match returns the tier for a request, or nil when it is not limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil {
		return nil
	}
	var t *Tier
	switch {
	case path == "/api/health", path == "/api/webhooks/deployment":
		return nil
	case path == "/api/chat", strings.HasPrefix(path, "/api/agent/tools/") && method == "POST":
		t = &c.Chat
	case method == "POST" && readPOSTs[path]:
		t = &c.Read
	case method == "POST", method == "DELETE":
		t = &c.Write
	case method == "GET":
		t = &c.Read
	}
	if t == nil || t.Limiter == nil {
		return nil
	}
	return t
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	for _, t := range []Tier{c.Write, c.Read, c.Chat} {
		if t.Limiter != nil {
			t.Limiter.Close()
		}
	}
}
