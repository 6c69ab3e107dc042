// Package httpapp builds the HTTP router a hotplate server serves:
// static file service with SPA fallback, nested mounts, custom
// headers, permissive CORS, and the port-retry listen loop.
//
// Grounded on original_source/src/server.rs's build_router/run; the
// teacher's own http.ServeMux-based routing style informs the Go
// realization (net/http.ServeMux and http.FileServer instead of
// axum::Router and tower_http::ServeDir).
package httpapp

import (
	"net/http"
	"strings"

	"github.com/hotplate-dev/hotplate/internal/config"
)

// MaxPortRetries bounds the bind-retry loop (spec.md §6: "increment
// port up to 20 times").
const MaxPortRetries = 20

// New builds the full router for cfg: mounts, proxy, static files with
// optional SPA fallback, custom headers, and permissive CORS. It does
// not include the live-reload injector/WS route — the caller wraps the
// result with a *livereload.Reloader (spec.md's C3/C5 sit in front of
// this router).
func New(cfg config.Config) http.Handler {
	mux := http.NewServeMux()

	if cfg.ProxyBase != "" && cfg.ProxyTarget != "" {
		proxy := NewProxy(cfg.ProxyTarget)
		base := strings.TrimSuffix(cfg.ProxyBase, "/")
		mux.Handle(base+"/", http.StripPrefix(base, proxy))
		mux.Handle(base, proxy)
	}

	for _, m := range cfg.Mounts {
		prefix := strings.TrimSuffix(m.URLPath, "/")
		fs := http.FileServer(http.Dir(m.Dir))
		mux.Handle(prefix+"/", http.StripPrefix(prefix, fs))
	}

	mux.Handle("/", staticHandler(cfg))

	var handler http.Handler = mux
	handler = withHeaders(handler, cfg.Headers)
	handler = withCORS(handler)
	return handler
}

// staticHandler serves cfg.Root, falling back to cfg.SPAFallbackFile
// (or a plain 404) when the requested path doesn't exist — the Go
// equivalent of ServeDir::fallback(ServeFile::new(...)).
func staticHandler(cfg config.Config) http.Handler {
	root := http.Dir(cfg.Root)
	fileServer := http.FileServer(root)

	if cfg.SPAFallbackFile == "" {
		return fileServer
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(r.URL.Path)
		if err != nil {
			http.ServeFile(w, r, cfg.Root+"/"+strings.TrimPrefix(cfg.SPAFallbackFile, "/"))
			return
		}
		f.Close()
		fileServer.ServeHTTP(w, r)
	})
}

// withHeaders appends cfg.Headers to every response, the Go
// counterpart of server.rs's custom headers middleware layer.
func withHeaders(next http.Handler, headers []config.Header) http.Handler {
	if len(headers) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range headers {
			w.Header().Set(h.Name, h.Value)
		}
		next.ServeHTTP(w, r)
	})
}

// withCORS applies the permissive, any-origin CORS policy spec.md §6
// requires for this developer-only surface.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
