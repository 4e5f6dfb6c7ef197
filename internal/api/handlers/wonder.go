package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type WonderHandler struct {
	svc   *service.WonderService
	assoc *service.AssociationService
}

func NewWonderHandler(svc *service.WonderService, assoc *service.AssociationService) *WonderHandler {
	return &WonderHandler{svc: svc, assoc: assoc}
}

func (h *WonderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wonder id")
		return
	}

	wonder, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWonderNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get wonder")
		return
	}

	writeJSON(w, http.StatusOK, wonder)
}

type listWondersResponse struct {
	Wonders []domain.Wonder `json:"wonders"`
	Stage   string          `json:"stage,omitempty"`
	Count   int             `json:"count"`
}

// List returns wonders most recently seen first. An empty stage parameter
// lists all stages.
func (h *WonderHandler) List(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")
	limit := parseLimit(r.URL.Query().Get("limit"))

	wonders, err := h.svc.ListByStage(r.Context(), stage, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStage) {
			writeError(w, http.StatusBadRequest, "invalid stage parameter")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list wonders")
		return
	}

	writeJSON(w, http.StatusOK, listWondersResponse{
		Wonders: wonders,
		Stage:   stage,
		Count:   len(wonders),
	})
}

type historyResponse struct {
	WonderID    uuid.UUID           `json:"wonder_id"`
	Occurrences []domain.Occurrence `json:"occurrences"`
	Count       int                 `json:"count"`
}

// History returns the wonder's occurrence records in sequence order. The
// deltas sum to the wonder's current confidence.
func (h *WonderHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wonder id")
		return
	}

	occurrences, err := h.svc.GetHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWonderNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get wonder history")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{
		WonderID:    id,
		Occurrences: occurrences,
		Count:       len(occurrences),
	})
}

type associationsResponse struct {
	WonderID     uuid.UUID                  `json:"wonder_id"`
	Associations []domain.WonderAssociation `json:"associations"`
	Count        int                        `json:"count"`
}

func (h *WonderHandler) Associations(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wonder id")
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrWonderNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get wonder")
		return
	}

	edges, err := h.assoc.GetByWonder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get associations")
		return
	}

	writeJSON(w, http.StatusOK, associationsResponse{
		WonderID:     id,
		Associations: edges,
		Count:        len(edges),
	})
}

// parseLimit returns the parsed limit, or 0 so the service applies its
// default.
func parseLimit(s string) int {
	if s == "" {
		return 0
	}
	if l, err := strconv.Atoi(s); err == nil && l > 0 {
		return l
	}
	return 0
}
