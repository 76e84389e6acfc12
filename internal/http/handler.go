package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/medisage/leaflet-rag/internal/rag"
	"go.uber.org/zap"
)

// QueryService is the slice of the query pipeline the HTTP layer needs.
type QueryService interface {
	Ask(ctx context.Context, question string, topK int) (*rag.QueryContext, error)
	Status(ctx context.Context) (rag.Status, error)
}

type Handler struct {
	svc QueryService
	log *zap.Logger
}

func NewHandler(svc QueryService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := h.svc.Status(ctx)
	if err != nil {
		h.log.Warn("status check failed", zap.Error(err))
		http.Error(w, "fragment store unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, status)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req rag.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	qc, err := h.svc.Ask(ctx, req.Question, req.TopK)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrEmptyQuestion):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, rag.ErrStoreUnavailable):
			h.log.Error("retrieval failed", zap.Error(err))
			http.Error(w, "fragment store unavailable", http.StatusServiceUnavailable)
		default:
			h.log.Error("ask failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, qc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
