// Package server exposes the RAG service over HTTP under /api/rag.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"eidrag/internal/logger"
	"eidrag/internal/validation"
)

var log = logger.New("http")

// Identity headers set by the fronting auth layer.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Routes registers every endpoint on a new mux.
func Routes(h *Handlers) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rag/search", h.HandleSearch)
	mux.HandleFunc("POST /api/rag/answer", h.HandleAnswer)
	mux.HandleFunc("POST /api/rag/related", h.HandleRelated)
	mux.HandleFunc("GET /api/rag/history", h.HandleHistory)
	mux.HandleFunc("GET /api/rag/stats", h.HandleStats)
	mux.HandleFunc("DELETE /api/rag/cache", h.HandleClearCache)
	mux.HandleFunc("POST /api/rag/reindex", h.HandleReindex)
	mux.HandleFunc("GET /api/rag/status", h.HandleStatus)
	return mux
}

// New builds the HTTP server for port.
func New(port string, rag RAG, indexer Indexer, v *validation.Validator) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Routes(NewHandlers(rag, indexer, v)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on http://localhost%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
