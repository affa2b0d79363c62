// Package web serves the JSON HTTP API.
package web

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/lentoflow/lento/internal/auth"
	"github.com/lentoflow/lento/internal/config"
	"github.com/lentoflow/lento/internal/habit"
)

// NewServer creates and configures the HTTP server for the API.
func NewServer(database *sql.DB, engine *habit.Engine, cfg *config.Config, logger *slog.Logger, version string) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           NewHandler(database, engine, cfg, logger, version),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler with its middleware.
func NewHandler(database *sql.DB, engine *habit.Engine, cfg *config.Config, logger *slog.Logger, version string) http.Handler {
	h := &Handlers{
		db:      database,
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		version: version,
	}
	authn := auth.New(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/today", h.HandleToday)
	api.HandleFunc("POST /api/today/complete/{task_id}", h.HandleComplete)
	api.HandleFunc("DELETE /api/today/complete/{task_id}", h.HandleUncomplete)

	api.HandleFunc("GET /api/tasks", h.HandleListTasks)
	api.HandleFunc("POST /api/tasks", h.HandleCreateTask)
	api.HandleFunc("GET /api/tasks/{id}", h.HandleGetTask)
	api.HandleFunc("PUT /api/tasks/{id}", h.HandleUpdateTask)
	api.HandleFunc("DELETE /api/tasks/{id}", h.HandleDeleteTask)

	api.HandleFunc("GET /api/categories", h.HandleListCategories)
	api.HandleFunc("POST /api/categories", h.HandleCreateCategory)
	api.HandleFunc("PUT /api/categories/{id}", h.HandleUpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", h.HandleDeleteCategory)

	api.HandleFunc("GET /api/settings", h.HandleGetSettings)
	api.HandleFunc("PUT /api/settings", h.HandleUpdateSettings)

	api.HandleFunc("GET /api/stats/daily", h.HandleDailyStats)
	api.HandleFunc("GET /api/stats/heatmap", h.HandleHeatmap)
	api.HandleFunc("GET /api/stats/task/{id}", h.HandleTaskStats)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.Handle("/api/", authn.Wrap(api, h.renderError))

	var handler http.Handler = mux
	if len(cfg.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler(handler)
	}
	return securityHeaders(handler)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("lento API listening", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
