package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/logging"
	"github.com/hpungsan/tinycapture/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewHandler builds the popup panel's routes.
func NewHandler(env *ops.Env, runner *dispatch.Runner, version string) http.Handler {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static sub-FS: %v", err))
	}

	h := &Handlers{
		env:      env,
		runner:   runner,
		renderer: NewRenderer(templateSub, version, env.Logger),
	}

	mux := http.NewServeMux()

	// Popup panel
	mux.HandleFunc("GET /{$}", h.HandlePopup)
	mux.HandleFunc("POST /capture", h.HandleCapture)
	mux.HandleFunc("POST /clear", h.HandleClear)
	mux.HandleFunc("POST /settings", h.HandleSettings)
	mux.HandleFunc("POST /commands/{name}", h.HandleCommand)

	// Export trigger page: exports once, on load.
	mux.HandleFunc("GET /export", h.HandleExport)

	// Extension background API
	mux.HandleFunc("POST /api/capture", h.HandleAPICapture)
	mux.HandleFunc("POST /api/export", h.HandleAPIExport)
	mux.HandleFunc("GET /api/status", h.HandleAPIStatus)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return securityHeaders(mux)
}

// NewServer creates the HTTP server for the popup panel.
func NewServer(env *ops.Env, runner *dispatch.Runner, version, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(env, runner, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses and
// rejects cross-origin state-changing requests with 403. The panel listens on
// loopback, but any page open in the browser can still post to it.
func securityHeaders(next http.Handler) http.Handler {
	next = http.NewCrossOriginProtection().Handler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Nop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("popup panel running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
