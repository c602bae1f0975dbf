// Defines shared service dependencies for handlers.

// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"github.com/havenrealty/sitekeeper/internal/activity"
	"github.com/havenrealty/sitekeeper/internal/chat"
	"github.com/havenrealty/sitekeeper/internal/conflict"
	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/deploy"
	"github.com/havenrealty/sitekeeper/internal/notify"
	"github.com/havenrealty/sitekeeper/internal/pathpolicy"
)

// Services holds all service dependencies for handlers.
type Services struct {
	Store    contentstore.Store
	Writer   *conflict.Writer
	Activity *activity.Log
	Policy   *pathpolicy.Policy
	Hook     *deploy.Hook    // may be nil
	Platform *deploy.Vercel  // may be nil
	Push     *notify.WebPush // may be nil
	Chat     *chat.Client    // may be nil
}

// NewServices wires the content store, its conflict-resolving writer and the
// activity log. A nil policy uses the built-in rules.
func NewServices(store contentstore.Store, policy *pathpolicy.Policy, activityPath string) *Services {
	if policy == nil {
		policy = pathpolicy.Default()
	}
	w := conflict.New(store)
	return &Services{
		Store:    store,
		Writer:   w,
		Activity: activity.New(w, activityPath),
		Policy:   policy,
	}
}

// Config holds configuration values needed by handlers.
type Config struct {
	Version string
	// UploadDir is the repository directory for uploaded assets.
	UploadDir string
	// WebhookSecret verifies deployment webhooks; empty accepts unsigned events.
	WebhookSecret string
	// SiteURL is linked from push notifications.
	SiteURL string
	// MaxRequestBodyBytes bounds every request body; zero disables the limit.
	MaxRequestBodyBytes int64
	// Debug includes wrapped causes in 5xx responses.
	Debug bool
}
