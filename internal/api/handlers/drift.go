package handlers

import (
	"net/http"
	"time"

	"github.com/curiolabs/wondergate/internal/service"
)

type DriftHandler struct {
	svc *service.DriftService
}

func NewDriftHandler(svc *service.DriftService) *DriftHandler {
	return &DriftHandler{svc: svc}
}

// Report summarizes filter behavior over the requested window. The window
// parameter takes a Go duration string such as 24h or 90m; absent or zero
// uses the service default.
func (h *DriftHandler) Report(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if windowStr := r.URL.Query().Get("window"); windowStr != "" {
		d, err := time.ParseDuration(windowStr)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid window parameter, expected a duration like 24h")
			return
		}
		window = d
	}

	report, err := h.svc.Report(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build drift report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
