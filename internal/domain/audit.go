package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditKind string

const (
	AuditAdmission     AuditKind = "admission"
	AuditReinforcement AuditKind = "reinforcement"
)

func ValidAuditKind(k string) bool {
	switch AuditKind(k) {
	case AuditAdmission, AuditReinforcement:
		return true
	}
	return false
}

type AdmissionDecision string

const (
	DecisionAdmitted AdmissionDecision = "admitted"
	DecisionRejected AdmissionDecision = "rejected"
)

func ValidDecision(d string) bool {
	switch AdmissionDecision(d) {
	case DecisionAdmitted, DecisionRejected:
		return true
	}
	return false
}

// AuditEvent is one append-only record of a filter decision. The filter only
// writes these; drift analysis and external review own the read side.
// Decision is set on admission events only. WonderID is nil for rejections,
// which never produce a wonder. Confidence is the value after the event.
type AuditEvent struct {
	ID           uuid.UUID         `json:"id"`
	Kind         AuditKind         `json:"kind"`
	Decision     AdmissionDecision `json:"decision,omitempty"`
	SourceID     string            `json:"source_id"`
	WonderID     *uuid.UUID        `json:"wonder_id,omitempty"`
	ContentHash  string            `json:"content_hash"`
	FailedChecks []string          `json:"failed_checks,omitempty"`
	Confidence   float32           `json:"confidence"`
	Delta        float32           `json:"delta"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SourceAggregate is a per-source admission tally over a time window, used
// by drift analysis.
type SourceAggregate struct {
	SourceID string `json:"source_id"`
	Admitted int    `json:"admitted"`
	Rejected int    `json:"rejected"`
}

// Rate returns the aggregate's admission rate, or 0 with no decisions.
func (a SourceAggregate) Rate() float64 {
	total := a.Admitted + a.Rejected
	if total == 0 {
		return 0
	}
	return float64(a.Admitted) / float64(total)
}
