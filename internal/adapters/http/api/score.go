package api

import (
	"errors"
	"io"
	"net/http"

	service "github.com/usnistgov/dval/internal/app"
	"github.com/usnistgov/dval/pkg/logger"
)

// ScoreHandler handles scoring requests.
type ScoreHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies, maxBodyBytes int64, l logger.Logger) *ScoreHandler {
	return &ScoreHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: l}
}

// HandleScore handles POST /score requests. The body is a JSON request, or
// YAML when Content-Type says so.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrPayloadTooLarge, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	req, err := service.DecodeRequest(body, service.FormatFromContentType(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	resp, err := h.deps.Score(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		h.logger.Error(r.Context(), "scoring request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring_failed", WrapKind(op, ErrScoring, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
