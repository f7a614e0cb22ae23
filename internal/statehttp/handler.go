// Package statehttp exposes the live room view over localhost HTTP for a
// thin UI. Read-only: no mutation ever flows through this surface.
package statehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroom/internal/roomsync"
)

// Source provides the current engine view.
type Source interface {
	View() roomsync.View
}

// Handler serves the room state endpoints.
type Handler struct {
	source Source
}

// NewHandler creates a state handler reading from source.
func NewHandler(source Source) *Handler {
	return &Handler{source: source}
}

// HandleRoomState handles GET /api/room/state.
func (h *Handler) HandleRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := h.source.View()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		log.Error().Err(err).Msg("failed to encode room state response")
	}
}

// HandleHealthz handles GET /api/healthz.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Routes returns the state mux wrapped with CORS so a dev UI on another
// origin can read it.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/room/state", h.HandleRoomState)
	mux.HandleFunc("/api/healthz", h.HandleHealthz)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}

// Serve runs the state server until ctx is cancelled.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: h.Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("state server shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("state server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
