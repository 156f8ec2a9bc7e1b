// Package api exposes the lead pipeline over HTTP. Auth, capture,
// enrichment and campaign dispatch map one-to-one onto the CLI commands.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/internal/campaign"
	"github.com/farmaleads/leads-cli/internal/capture"
	"github.com/farmaleads/leads-cli/internal/config"
	"github.com/farmaleads/leads-cli/internal/enrich"
	"github.com/farmaleads/leads-cli/internal/store"
	"github.com/farmaleads/leads-cli/pkg/supabase"
)

// Server wires the pipeline services behind the HTTP routes.
type Server struct {
	cfg      *config.Config
	store    store.Store
	capture  *capture.Service
	enrich   *enrich.Service
	campaign *campaign.Dispatcher
	auth     supabase.Client
}

// NewServer builds the HTTP server. auth may be nil when no identity
// provider is configured; protected routes then answer 500.
func NewServer(cfg *config.Config, st store.Store, capSvc *capture.Service, en *enrich.Service, camp *campaign.Dispatcher, auth supabase.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		capture:  capSvc,
		enrich:   en,
		campaign: camp,
		auth:     auth,
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.handleMe)
		r.Get("/template/default", s.handleDefaultTemplate)
		r.Post("/capture", s.handleCapture)
		r.Get("/leads", s.handleListLeads)
		r.Post("/leads/enrich-emails", s.handleEnrich)
		r.Get("/leads/{id}/emails", s.handleEmailLogs)
		r.Post("/campaign/send", s.handleCampaign)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("api: listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: encoding response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
