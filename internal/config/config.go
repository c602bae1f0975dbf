// Package config holds the sitekeeper server configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an
// optional YAML file, the process environment, then a .env file in the
// data directory. Command line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/havenrealty/sitekeeper/internal/notify"
)

// Store backends.
const (
	StoreGitHub = "github"
	StoreGit    = "git"
	StoreMemory = "memory"
)

// Config is the complete server configuration. It is immutable once the
// server starts.
type Config struct {
	HTTP     string `yaml:"http"`
	LogLevel string `yaml:"log_level"`
	// Debug includes wrapped causes in 5xx responses.
	Debug   bool   `yaml:"debug"`
	SiteURL string `yaml:"site_url"`
	// MaxRequestBodyBytes bounds every request body.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes"`

	Store    StoreConfig    `yaml:"store"`
	GitHub   GitHubConfig   `yaml:"github"`
	Chat     ChatConfig     `yaml:"chat"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Activity ActivityConfig `yaml:"activity"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Policy   PolicyConfig   `yaml:"policy"`
	Push     PushConfig     `yaml:"push"`
	Limits   LimitsConfig   `yaml:"rate_limits"`
}

// StoreConfig selects the content backend.
type StoreConfig struct {
	// Backend is one of StoreGitHub, StoreGit or StoreMemory.
	Backend string `yaml:"backend"`
	// Dir is the working tree of the git backend.
	Dir string `yaml:"dir"`
}

// GitHubConfig addresses the repository and its credentials. Either Token
// or the three App fields must be set.
type GitHubConfig struct {
	BaseURL        string `yaml:"base_url"`
	Owner          string `yaml:"owner"`
	Repo           string `yaml:"repo"`
	Branch         string `yaml:"branch"`
	Token          string `yaml:"token"`
	AppID          int64  `yaml:"app_id"`
	InstallationID int64  `yaml:"installation_id"`
	// PrivateKey is the App key, either PEM text or a path to a PEM file.
	PrivateKey string `yaml:"private_key"`
}

// UsesApp reports whether GitHub App credentials are configured.
func (g *GitHubConfig) UsesApp() bool {
	return g.AppID != 0 || g.InstallationID != 0 || g.PrivateKey != ""
}

// PrivateKeyPEM returns the App key bytes, reading it from disk when
// PrivateKey is a path.
func (g *GitHubConfig) PrivateKeyPEM() ([]byte, error) {
	if strings.Contains(g.PrivateKey, "-----BEGIN") {
		// Keys pasted into .env often carry literal \n.
		return []byte(strings.ReplaceAll(g.PrivateKey, `\n`, "\n")), nil
	}
	return os.ReadFile(g.PrivateKey) //nolint:gosec // G304: path comes from operator configuration
}

// ChatConfig configures the completion proxy.
type ChatConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DeployConfig configures the hosting platform.
type DeployConfig struct {
	HookURL       string `yaml:"hook_url"`
	APIURL        string `yaml:"api_url"`
	Token         string `yaml:"token"`
	ProjectID     string `yaml:"project_id"`
	TeamID        string `yaml:"team_id"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// ActivityConfig locates the audit log.
type ActivityConfig struct {
	Path string `yaml:"path"`
}

// UploadsConfig locates uploaded assets.
type UploadsConfig struct {
	Dir string `yaml:"dir"`
}

// PolicyConfig extends the built-in path rules.
type PolicyConfig struct {
	// Deny holds extra regular expressions of paths that are never touched.
	Deny []string `yaml:"deny"`
}

// PushConfig configures deployment notifications.
type PushConfig struct {
	VAPIDPublicKey  string                `yaml:"vapid_public_key"`
	VAPIDPrivateKey string                `yaml:"vapid_private_key"`
	Subscriber      string                `yaml:"subscriber"`
	Subscriptions   []notify.Subscription `yaml:"subscriptions"`
}

// LimitsConfig sets per client IP token buckets. A zero rate disables the
// tier.
type LimitsConfig struct {
	WritePerMinute int `yaml:"write_per_minute"`
	ReadPerMinute  int `yaml:"read_per_minute"`
	ChatPerMinute  int `yaml:"chat_per_minute"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP:                "localhost:8080",
		LogLevel:            "info",
		MaxRequestBodyBytes: 12 << 20,
		Store:               StoreConfig{Backend: StoreGitHub, Dir: "./site"},
		GitHub:              GitHubConfig{Branch: "main"},
		Chat:                ChatConfig{Timeout: 25 * time.Second},
		Activity:            ActivityConfig{Path: "data/activity-log.json"},
		Uploads:             UploadsConfig{Dir: "public/uploads"},
		Limits:              LimitsConfig{WritePerMinute: 30, ReadPerMinute: 300, ChatPerMinute: 20},
	}
}

// LoadFile decodes the YAML file at path over c. Unknown keys are errors.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the -config flag
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	d := yaml.NewDecoder(f)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the recognized environment keys. Empty
// values are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	str := map[string]*string{
		"HTTP":                   &c.HTTP,
		"LOG_LEVEL":              &c.LogLevel,
		"SITE_URL":               &c.SiteURL,
		"STORE":                  &c.Store.Backend,
		"GITHUB_API_URL":         &c.GitHub.BaseURL,
		"GITHUB_TOKEN":           &c.GitHub.Token,
		"GITHUB_OWNER":           &c.GitHub.Owner,
		"GITHUB_REPO":            &c.GitHub.Repo,
		"GITHUB_BRANCH":          &c.GitHub.Branch,
		"GITHUB_APP_PRIVATE_KEY": &c.GitHub.PrivateKey,
		"OPENAI_API_KEY":         &c.Chat.APIKey,
		"OPENAI_BASE_URL":        &c.Chat.BaseURL,
		"OPENAI_MODEL":           &c.Chat.Model,
		"VERCEL_DEPLOY_HOOK_URL": &c.Deploy.HookURL,
		"VERCEL_TOKEN":           &c.Deploy.Token,
		"VERCEL_PROJECT_ID":      &c.Deploy.ProjectID,
		"VERCEL_TEAM_ID":         &c.Deploy.TeamID,
		"VERCEL_WEBHOOK_SECRET":  &c.Deploy.WebhookSecret,
		"VAPID_PUBLIC_KEY":       &c.Push.VAPIDPublicKey,
		"VAPID_PRIVATE_KEY":      &c.Push.VAPIDPrivateKey,
	}
	for k, p := range str {
		if v := env[k]; v != "" {
			*p = v
		}
	}
	ints := map[string]*int64{
		"GITHUB_APP_ID":              &c.GitHub.AppID,
		"GITHUB_APP_INSTALLATION_ID": &c.GitHub.InstallationID,
	}
	for k, p := range ints {
		if v := env[k]; v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", k, err)
			}
			*p = n
		}
	}
	return nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("unknown log level: %q", c.LogLevel)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return errors.New("max_request_body_bytes must be positive")
	}
	switch c.Store.Backend {
	case StoreGitHub:
		g := &c.GitHub
		if g.Owner == "" || g.Repo == "" {
			return errors.New("GITHUB_OWNER and GITHUB_REPO are required for the github store")
		}
		if g.UsesApp() {
			if g.AppID == 0 || g.InstallationID == 0 || g.PrivateKey == "" {
				return errors.New("GITHUB_APP_ID, GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY must all be set")
			}
		} else if g.Token == "" {
			return errors.New("GITHUB_TOKEN or GitHub App credentials are required for the github store")
		}
	case StoreGit:
		if c.Store.Dir == "" {
			return errors.New("store.dir is required for the git store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if (c.Push.VAPIDPublicKey == "") != (c.Push.VAPIDPrivateKey == "") {
		return errors.New("VAPID public and private keys must both be set or both be empty")
	}
	return nil
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
