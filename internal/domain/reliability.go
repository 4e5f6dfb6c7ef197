package domain

import (
	"math"
	"time"
)

// NeutralReliability is the score assumed for a source that has never been
// part of an admission decision.
const NeutralReliability float32 = 0.5

// SourceReliability tracks how trustworthy a source has proven at admission
// time, together with the running magnitude profile plausibility checks
// compare against. Only admission decisions move the score; reinforcement
// never touches this record.
type SourceReliability struct {
	SourceID      string    `json:"source_id"`
	Score         float32   `json:"score"`
	Admitted      int       `json:"admitted"`
	Rejected      int       `json:"rejected"`
	Samples       int       `json:"samples"`
	MagnitudeMean float64   `json:"magnitude_mean"`
	MagnitudeM2   float64   `json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NeutralSource returns the record assumed for an unseen source.
func NeutralSource(sourceID string) SourceReliability {
	return SourceReliability{SourceID: sourceID, Score: NeutralReliability}
}

// RecordMagnitude folds one observed magnitude into the running profile
// using Welford's update, so mean and spread stay numerically stable without
// retaining per-observation history.
func (s *SourceReliability) RecordMagnitude(m float64) {
	s.Samples++
	delta := m - s.MagnitudeMean
	s.MagnitudeMean += delta / float64(s.Samples)
	s.MagnitudeM2 += delta * (m - s.MagnitudeMean)
}

// MagnitudeStdDev returns the sample standard deviation of the magnitude
// profile, or 0 when fewer than two samples exist.
func (s SourceReliability) MagnitudeStdDev() float64 {
	if s.Samples < 2 {
		return 0
	}
	return math.Sqrt(s.MagnitudeM2 / float64(s.Samples-1))
}

// AdmissionRate returns the fraction of this source's admission decisions
// that admitted, or 0 when the source has no decisions yet.
func (s SourceReliability) AdmissionRate() float64 {
	total := s.Admitted + s.Rejected
	if total == 0 {
		return 0
	}
	return float64(s.Admitted) / float64(total)
}
