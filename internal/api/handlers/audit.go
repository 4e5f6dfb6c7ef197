package handlers

import (
	"net/http"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/service"
)

type AuditHandler struct {
	svc *service.WonderService
}

func NewAuditHandler(svc *service.WonderService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

type auditResponse struct {
	Events []domain.AuditEvent `json:"events"`
	Count  int                 `json:"count"`
}

// List returns filter decisions newest first, narrowed by the query
// parameters: source_id, kind (admission|reinforcement), decision
// (admitted|rejected), since (RFC 3339) and limit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	f := domain.AuditFilter{
		SourceID: r.URL.Query().Get("source_id"),
		Limit:    parseLimit(r.URL.Query().Get("limit")),
	}

	if kindStr := r.URL.Query().Get("kind"); kindStr != "" {
		if !domain.ValidAuditKind(kindStr) {
			writeError(w, http.StatusBadRequest, "invalid kind parameter")
			return
		}
		kind := domain.AuditKind(kindStr)
		f.Kind = &kind
	}

	if decisionStr := r.URL.Query().Get("decision"); decisionStr != "" {
		if !domain.ValidDecision(decisionStr) {
			writeError(w, http.StatusBadRequest, "invalid decision parameter")
			return
		}
		decision := domain.AdmissionDecision(decisionStr)
		f.Decision = &decision
	}

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since parameter, expected RFC 3339")
			return
		}
		f.Since = since
	}

	events, err := h.svc.AuditLog(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}

	writeJSON(w, http.StatusOK, auditResponse{Events: events, Count: len(events)})
}
