package ingestion

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/logger"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	publisher *Publisher
	logger    *slog.Logger
}

func NewHandler(pub *Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingestion-handler"),
	}
}

// AddTitles handles POST /api/v1/catalog/titles.
func (h *Handler) AddTitles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AddTitlesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := Validate(&req); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.publisher.AddTitles(ctx, &req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		logger.FromContext(ctx).Error("adding titles failed", "error", err, "status_code", status)
		h.writeError(w, status, "adding titles failed")
		return
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
