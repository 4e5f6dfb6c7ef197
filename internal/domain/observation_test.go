package domain

import (
	"math"
	"testing"
)

func TestFingerprint(t *testing.T) {
	a := Observation{Content: "the river rose two meters overnight"}
	b := Observation{Content: "  the river rose\ttwo meters\n overnight  "}
	c := Observation{Content: "the river rose three meters overnight"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("whitespace variants should share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different content should not share a fingerprint")
	}
	if len(a.Fingerprint()) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a.Fingerprint()))
	}
}

func TestMeasuredMagnitude(t *testing.T) {
	m := 42.5
	withMagnitude := Observation{Content: "reading", Magnitude: &m}
	if got := withMagnitude.MeasuredMagnitude(); got != 42.5 {
		t.Errorf("MeasuredMagnitude() = %v, want 42.5", got)
	}

	withoutMagnitude := Observation{Content: "reading"}
	if got := withoutMagnitude.MeasuredMagnitude(); got != 7 {
		t.Errorf("MeasuredMagnitude() = %v, want content length 7", got)
	}
}

func TestNeutralSource(t *testing.T) {
	s := NeutralSource("sensor-1")
	if s.Score != NeutralReliability {
		t.Errorf("neutral score = %v, want %v", s.Score, NeutralReliability)
	}
	if s.Admitted != 0 || s.Rejected != 0 || s.Samples != 0 {
		t.Error("neutral source should carry no history")
	}
}

func TestRecordMagnitude(t *testing.T) {
	s := NeutralSource("sensor-1")
	values := []float64{10, 12, 8, 11, 9}
	for _, v := range values {
		s.RecordMagnitude(v)
	}

	if s.Samples != 5 {
		t.Fatalf("Samples = %d, want 5", s.Samples)
	}
	if math.Abs(s.MagnitudeMean-10.0) > 1e-9 {
		t.Errorf("MagnitudeMean = %v, want 10.0", s.MagnitudeMean)
	}
	// Sample variance of {10,12,8,11,9} is 2.5.
	if sd := s.MagnitudeStdDev(); math.Abs(sd-math.Sqrt(2.5)) > 1e-9 {
		t.Errorf("MagnitudeStdDev = %v, want %v", sd, math.Sqrt(2.5))
	}
}

func TestMagnitudeStdDevNeedsTwoSamples(t *testing.T) {
	s := NeutralSource("sensor-1")
	if s.MagnitudeStdDev() != 0 {
		t.Error("std dev with no samples should be 0")
	}
	s.RecordMagnitude(100)
	if s.MagnitudeStdDev() != 0 {
		t.Error("std dev with one sample should be 0")
	}
}

func TestAdmissionRate(t *testing.T) {
	s := SourceReliability{Admitted: 3, Rejected: 1}
	if got := s.AdmissionRate(); got != 0.75 {
		t.Errorf("AdmissionRate() = %v, want 0.75", got)
	}
	empty := SourceReliability{}
	if got := empty.AdmissionRate(); got != 0 {
		t.Errorf("AdmissionRate() with no decisions = %v, want 0", got)
	}
}
