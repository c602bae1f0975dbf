// Package main is the entry point for the sitekeeper server.
//
// sitekeeper lets non-technical staff edit a static website whose source
// lives in a GitHub repository. It serves a JSON API for reading and writing
// repository files, keeps an activity log in the repository itself, triggers
// and reports deployments and proxies an editing assistant. Configuration is
// read from CLI flags, a .env file, the process environment and an optional
// YAML file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"golang.org/x/oauth2"

	"github.com/havenrealty/sitekeeper/internal/chat"
	"github.com/havenrealty/sitekeeper/internal/config"
	"github.com/havenrealty/sitekeeper/internal/contentstore"
	"github.com/havenrealty/sitekeeper/internal/contentstore/gitrepo"
	"github.com/havenrealty/sitekeeper/internal/deploy"
	"github.com/havenrealty/sitekeeper/internal/notify"
	"github.com/havenrealty/sitekeeper/internal/pathpolicy"
	"github.com/havenrealty/sitekeeper/internal/server"
	"github.com/havenrealty/sitekeeper/internal/server/handlers"
	"github.com/havenrealty/sitekeeper/internal/server/ratelimit"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "sitekeeper: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	version := flag.Bool("version", false, "Print version and exit")
	configFile := flag.String("config", "", "Optional YAML configuration file")
	dataDir := flag.String("data-dir", ".", "Directory holding the .env file")
	httpAddr := flag.String("http", "", "Address to listen on (e.g., localhost:8080, :8080). Overrides HTTP.")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error). Overrides LOG_LEVEL.")
	debugErrs := flag.Bool("debug", false, "Include wrapped error causes in 5xx responses")
	storeBackend := flag.String("store", "", "Content backend (github, git, memory). Overrides store.backend.")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	if *version {
		printVersion()
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFile, config.Environ(), filepath.Join(*dataDir, ".env"))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTP = *httpAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "debug":
			cfg.Debug = *debugErrs
		case "store":
			cfg.Store.Backend = *storeBackend
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch cfg.LogLevel {
	case "debug":
		ll.Set(slog.LevelDebug)
	case "info":
	case "warn":
		ll.Set(slog.LevelWarn)
	case "error":
		ll.Set(slog.LevelError)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	policy, err := pathpolicy.New(cfg.Policy.Deny...)
	if err != nil {
		return fmt.Errorf("invalid path policy: %w", err)
	}

	svc := handlers.NewServices(store, policy, cfg.Activity.Path)
	svc.Hook = &deploy.Hook{URL: cfg.Deploy.HookURL}
	svc.Platform = &deploy.Vercel{
		BaseURL:   cfg.Deploy.APIURL,
		Token:     cfg.Deploy.Token,
		ProjectID: cfg.Deploy.ProjectID,
		TeamID:    cfg.Deploy.TeamID,
	}
	svc.Push = &notify.WebPush{
		PublicKey:     cfg.Push.VAPIDPublicKey,
		PrivateKey:    cfg.Push.VAPIDPrivateKey,
		Subscriber:    cfg.Push.Subscriber,
		Subscriptions: cfg.Push.Subscriptions,
	}
	svc.Chat = &chat.Client{
		BaseURL:      cfg.Chat.BaseURL,
		APIKey:       cfg.Chat.APIKey,
		Model:        cfg.Chat.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		Timeout:      cfg.Chat.Timeout,
	}
	if cfg.Deploy.WebhookSecret == "" {
		slog.WarnContext(ctx, "Deployment webhook secret not set; webhooks are accepted unsigned")
	}
	if !svc.Push.Enabled() {
		slog.InfoContext(ctx, "Push notifications disabled")
	}

	limits := ratelimit.NewConfig(cfg.Limits.WritePerMinute, cfg.Limits.ReadPerMinute, cfg.Limits.ChatPerMinute)
	defer limits.Close()

	// Restart on a new executable or configuration.
	watched := []string{}
	if exe, err := executablePath(); err == nil {
		watched = append(watched, exe)
	} else {
		slog.WarnContext(ctx, "Cannot locate executable", "err", err)
	}
	if *configFile != "" {
		watched = append(watched, *configFile)
	}
	if err := watchFiles(ctx, stop, watched...); err != nil {
		return fmt.Errorf("failed to watch files: %w", err)
	}

	buildVersion, _, _, _ := getBuildInfo()
	hcfg := &handlers.Config{
		Version:             buildVersion,
		UploadDir:           cfg.Uploads.Dir,
		WebhookSecret:       cfg.Deploy.WebhookSecret,
		SiteURL:             cfg.SiteURL,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		Debug:               cfg.Debug,
	}

	httpServer := newHTTPServer(ctx, cfg.HTTP, server.NewRouter(svc, hcfg, limits))

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", httpServer.Addr, "store", cfg.Store.Backend, "version", buildVersion)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		svc.Push.Wait()
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// openStore returns the content store selected by cfg.Store.Backend.
func openStore(ctx context.Context, cfg *config.Config) (contentstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		slog.WarnContext(ctx, "Using in-memory store; edits are lost on exit")
		return contentstore.NewMemory(), nil
	case config.StoreGit:
		r, err := gitrepo.Open(gitrepo.Options{
			Dir:    cfg.Store.Dir,
			Branch: cfg.GitHub.Branch,
			Name:   "sitekeeper",
			Email:  "sitekeeper@localhost",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open repository: %w", err)
		}
		return r, nil
	}
	var ts oauth2.TokenSource
	if cfg.GitHub.UsesApp() {
		pem, err := cfg.GitHub.PrivateKeyPEM()
		if err != nil {
			return nil, fmt.Errorf("failed to read GitHub App key: %w", err)
		}
		if ts, err = contentstore.AppTokenSource(contentstore.AppOptions{
			BaseURL:        cfg.GitHub.BaseURL,
			AppID:          cfg.GitHub.AppID,
			InstallationID: cfg.GitHub.InstallationID,
			PrivateKeyPEM:  pem,
		}); err != nil {
			return nil, err
		}
	} else {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
	}
	return contentstore.NewGitHub(contentstore.GitHubOptions{
		BaseURL:     cfg.GitHub.BaseURL,
		Owner:       cfg.GitHub.Owner,
		Repo:        cfg.GitHub.Repo,
		Branch:      cfg.GitHub.Branch,
		TokenSource: ts,
	})
}

func printVersion() {
	version, goVersion, revision, dirty := getBuildInfo()
	fmt.Printf("sitekeeper %s\n", version)
	fmt.Printf("  Go version: %s\n", goVersion)
	fmt.Printf("  Revision:   %s\n", revision)
	if dirty {
		fmt.Printf("  Modified:   true\n")
	}
}

func getBuildInfo() (version, goVersion, revision string, dirty bool) {
	version = "unknown"
	goVersion = "unknown"
	revision = "unknown"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	version = info.Main.Version
	if version == "" || version == "(devel)" {
		version = "dev"
	}
	goVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(exe)
}

// watchFiles calls stop to trigger graceful shutdown when any of paths is
// modified.
func watchFiles(ctx context.Context, stop context.CancelFunc, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			_ = w.Close()
			return err
		}
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) || event.Has(fsnotify.Rename) {
					slog.InfoContext(ctx, "File modified, initiating shutdown", "path", event.Name)
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching files", "err", err)
			}
		}
	}()
	return nil
}

// newHTTPServer listens on addr exactly as configured; ":8080" binds every
// interface.
func newHTTPServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
}
