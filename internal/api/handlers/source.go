package handlers

import (
	"net/http"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/service"
	"github.com/go-chi/chi/v5"
)

type SourceHandler struct {
	svc *service.ReliabilityService
}

func NewSourceHandler(svc *service.ReliabilityService) *SourceHandler {
	return &SourceHandler{svc: svc}
}

type reliabilityResponse struct {
	domain.SourceReliability
	AdmissionRate   float64 `json:"admission_rate"`
	MagnitudeStdDev float64 `json:"magnitude_stddev"`
}

// GetReliability reports the tracked record for a source. A source that has
// never faced an admission decision reports the neutral default, not a 404.
func (h *SourceHandler) GetReliability(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")
	if sourceID == "" {
		writeError(w, http.StatusBadRequest, "source id is required")
		return
	}

	rec, err := h.svc.Snapshot(r.Context(), sourceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get source reliability")
		return
	}

	writeJSON(w, http.StatusOK, reliabilityResponse{
		SourceReliability: rec,
		AdmissionRate:     rec.AdmissionRate(),
		MagnitudeStdDev:   rec.MagnitudeStdDev(),
	})
}

type listSourcesResponse struct {
	Sources []domain.SourceReliability `json:"sources"`
	Count   int                        `json:"count"`
}

// List returns tracked sources ordered least reliable first, for review of
// which feeds the filter trusts least.
func (h *SourceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	sources, err := h.svc.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	writeJSON(w, http.StatusOK, listSourcesResponse{Sources: sources, Count: len(sources)})
}
