// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/havenrealty/sitekeeper/internal/server/dto"
	"github.com/havenrealty/sitekeeper/internal/server/handlers"
	"github.com/havenrealty/sitekeeper/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router. Every registered path
// answers other methods with a JSON 405 and an Allow header.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	rt := &routes{mux: &http.ServeMux{}, methods: map[string][]string{}}

	hh := handlers.NewHealthHandler(cfg.Version)
	fh := handlers.NewFileHandler(svc, cfg)
	ah := handlers.NewActivityHandler(svc)
	dh := handlers.NewDeployHandler(svc, cfg)
	tools := handlers.NewToolRegistry(fh, ah, dh)
	th := handlers.NewToolHandler(tools)
	ch := handlers.NewChatHandler(svc, tools)

	rt.handle("GET", "/api/health", Wrap(hh.Health, cfg, limits))

	// Activity log
	rt.handle("GET", "/api/activity", Wrap(ah.List, cfg, limits))
	rt.handle("POST", "/api/activity", Wrap(ah.Append, cfg, limits))
	rt.handle("DELETE", "/api/activity", Wrap(ah.Clear, cfg, limits))

	// Repository files
	rt.handle("POST", "/api/github/list", Wrap(fh.List, cfg, limits))
	rt.handle("POST", "/api/github/read", Wrap(fh.Read, cfg, limits))
	rt.handle("POST", "/api/github/write", Wrap(fh.Write, cfg, limits))
	rt.handle("POST", "/api/delete-file", Wrap(fh.Delete, cfg, limits))
	rt.handle("POST", "/api/upload", Wrap(fh.Upload, cfg, limits))

	// Deployment
	rt.handle("POST", "/api/trigger-deploy", Wrap(dh.Trigger, cfg, limits))
	rt.handle("POST", "/api/github/deploy", Wrap(dh.Trigger, cfg, limits))
	rt.handle("GET", "/api/deployment-status", Wrap(dh.Status, cfg, limits))
	rt.handle("POST", "/api/webhooks/deployment", WrapRaw(dh.Webhook, cfg, limits))

	// Assistant
	rt.handle("POST", "/api/chat", Wrap(ch.Complete, cfg, limits))
	rt.handle("GET", "/api/agent/tools", Wrap(th.List, cfg, limits))
	rt.handle("POST", "/api/agent/tools/{name}", WrapRaw(th.Call, cfg, limits))

	rt.finish()
	return RequestLogger(Recover(rt.mux))
}

// routes records the methods registered for each path.
type routes struct {
	mux     *http.ServeMux
	methods map[string][]string
	order   []string
}

func (rt *routes) handle(method, path string, h http.Handler) {
	rt.mux.Handle(method+" "+path, h)
	if _, ok := rt.methods[path]; !ok {
		rt.order = append(rt.order, path)
	}
	rt.methods[path] = append(rt.methods[path], method)
}

// finish registers the method-less fallbacks.
func (rt *routes) finish() {
	for _, p := range rt.order {
		rt.mux.Handle(p, methodNotAllowed(rt.methods[p]))
	}
	rt.mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, dto.NotFound("Endpoint "+r.URL.Path))
	}))
}

func methodNotAllowed(methods []string) http.Handler {
	allowed := slices.Clone(methods)
	if slices.Contains(allowed, "GET") {
		allowed = append(allowed, "HEAD")
	}
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeAPIError(w, dto.MethodNotAllowed(r.Method, allowed))
	})
}
