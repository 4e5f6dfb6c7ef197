package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/service"
	"github.com/curiolabs/wondergate/internal/store"
)

type ObservationHandler struct {
	svc *service.WonderService
}

func NewObservationHandler(svc *service.WonderService) *ObservationHandler {
	return &ObservationHandler{svc: svc}
}

type observationRequest struct {
	SourceID   string         `json:"source_id"`
	Content    string         `json:"content"`
	Magnitude  *float64       `json:"magnitude,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ObservedAt *time.Time     `json:"observed_at,omitempty"`
}

func (req observationRequest) toObservation() domain.Observation {
	obs := domain.Observation{
		SourceID:  req.SourceID,
		Content:   req.Content,
		Magnitude: req.Magnitude,
		Embedding: req.Embedding,
		Tags:      req.Tags,
		Metadata:  req.Metadata,
	}
	if req.ObservedAt != nil {
		obs.ObservedAt = *req.ObservedAt
	}
	return obs
}

// Observe runs the full filter on one observation: reinforce the wonder it
// re-states, or face the admission battery on first encounter. Responds 201
// when a wonder was admitted, 200 for reinforcement and rejection.
func (h *ObservationHandler) Observe(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Observe(r.Context(), req.toObservation())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContentEmpty),
			errors.Is(err, service.ErrSourceIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrAmbiguousMatch):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to process observation")
		}
		return
	}

	status := http.StatusOK
	if result.Outcome == service.OutcomeAdmitted {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// Evaluate runs the admission battery without the reinforcement path, for
// callers that resolve equivalence themselves. It refuses observations that
// already have an admitted wonder.
func (h *ObservationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.EvaluateAdmission(r.Context(), req.toObservation())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContentEmpty),
			errors.Is(err, service.ErrSourceIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrAlreadyAdmitted),
			errors.Is(err, store.ErrAmbiguousMatch):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to evaluate observation")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
