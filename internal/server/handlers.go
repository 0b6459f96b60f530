package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"eidrag/internal/domain"
	"eidrag/internal/history"
	"eidrag/internal/retriever"
	"eidrag/internal/scheduler"
	"eidrag/internal/validation"
)

const maxBodyBytes = 64 << 10

// RAG is the question answering surface the handlers expose.
type RAG interface {
	Search(ctx context.Context, query, userID string) (domain.SearchResult, error)
	AnswerFromURLs(ctx context.Context, query string, urls []string) (domain.SearchResult, error)
	RelatedQuestions(ctx context.Context, topic string) []string
	History(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
	Stats(ctx context.Context) (history.Stats, error)
	ClearCache()
	TrustedDomains() []string
}

// Indexer triggers and reports ingestion runs.
type Indexer interface {
	Trigger(reason string) bool
	Status() scheduler.Status
}

type Handlers struct {
	rag       RAG
	indexer   Indexer
	validator *validation.Validator
}

func NewHandlers(rag RAG, indexer Indexer, v *validation.Validator) *Handlers {
	return &Handlers{rag: rag, indexer: indexer, validator: v}
}

type searchRequest struct {
	Query string `json:"query"`
}

type answerRequest struct {
	Query string   `json:"query"`
	URLs  []string `json:"urls"`
}

type relatedRequest struct {
	Topic string `json:"topic"`
}

func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !h.decode(w, r, validation.Search, &req) {
		return
	}
	res, err := h.rag.Search(r.Context(), strings.TrimSpace(req.Query), userID(r))
	if err != nil {
		log.Error("search %q: %v", req.Query, err)
		writeError(w, http.StatusInternalServerError, "Failed to search")
		return
	}
	writeData(w, res)
}

func (h *Handlers) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !h.decode(w, r, validation.Answer, &req) {
		return
	}
	res, err := h.rag.AnswerFromURLs(r.Context(), strings.TrimSpace(req.Query), req.URLs)
	if err != nil {
		var dis *retriever.DisallowedError
		switch {
		case errors.As(err, &dis):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":        false,
				"message":        dis.Error(),
				"allowedDomains": dis.Allowed,
			})
		case errors.Is(err, domain.ErrDisallowedURL):
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success":        false,
				"message":        err.Error(),
				"allowedDomains": h.rag.TrustedDomains(),
			})
		default:
			log.Error("answer %q: %v", req.Query, err)
			writeError(w, http.StatusInternalServerError, "Failed to answer")
		}
		return
	}
	writeData(w, res)
}

func (h *Handlers) HandleRelated(w http.ResponseWriter, r *http.Request) {
	var req relatedRequest
	if !h.decode(w, r, validation.Related, &req) {
		return
	}
	writeData(w, h.rag.RelatedQuestions(r.Context(), strings.TrimSpace(req.Topic)))
}

func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	records, err := h.rag.History(r.Context(), uid)
	if err != nil {
		h.serviceError(w, "history", err)
		return
	}
	writeData(w, records)
}

func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	st, err := h.rag.Stats(r.Context())
	if err != nil {
		h.serviceError(w, "stats", err)
		return
	}
	writeData(w, st)
}

func (h *Handlers) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	h.rag.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cache cleared"})
}

func (h *Handlers) HandleReindex(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	if h.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "Indexing is not configured")
		return
	}
	if !h.indexer.Trigger("manual") {
		writeJSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Indexing already in progress"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "message": "Reindex started"})
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		writeData(w, scheduler.Status{})
		return
	}
	writeData(w, h.indexer.Status())
}

// decode reads, validates and unmarshals the body. It writes the error
// response itself and returns false on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, schema string, out any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return false
	}
	if err := h.validator.Decode(schema, body, out); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Validation failed",
				"errors":  verr.Fields,
			})
			return false
		}
		log.Error("validate %s: %v", schema, err)
		writeError(w, http.StatusInternalServerError, "Validation unavailable")
		return false
	}
	return true
}

func (h *Handlers) serviceError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, "Search history is not configured")
		return
	}
	log.Error("%s: %v", op, err)
	writeError(w, http.StatusInternalServerError, "Failed to load "+op)
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderUserRole)), "admin") {
		return true
	}
	writeError(w, http.StatusForbidden, "Admin access required")
	return false
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
