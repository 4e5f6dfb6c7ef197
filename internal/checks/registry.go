// Package checks provides the credibility check battery that gates
// admission. Every check is a pure predicate over an observation and the
// source's reliability snapshot; the battery runs each check exactly once
// per admission evaluation and never during reinforcement.
package checks

import (
	"errors"

	"github.com/curiolabs/wondergate/internal/domain"
)

var (
	ErrDuplicateCheck = errors.New("check name already registered")
	ErrUnnamedCheck   = errors.New("check must have a name")
)

// Registry holds the active battery in registration order. Order is part of
// the contract: results and failed-check lists follow it.
type Registry struct {
	names  map[string]bool
	checks []domain.CredibilityCheck
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

func (r *Registry) Register(c domain.CredibilityCheck) error {
	name := c.Name()
	if name == "" {
		return ErrUnnamedCheck
	}
	if r.names[name] {
		return ErrDuplicateCheck
	}
	r.names[name] = true
	r.checks = append(r.checks, c)
	return nil
}

// Checks returns the battery in registration order. The slice is a copy;
// mutating it does not affect the registry.
func (r *Registry) Checks() []domain.CredibilityCheck {
	out := make([]domain.CredibilityCheck, len(r.checks))
	copy(out, r.checks)
	return out
}

func (r *Registry) Len() int {
	return len(r.checks)
}

// DefaultBattery returns the standard four-check battery: structural
// coherence, source reliability floor, novelty plausibility, and clock skew.
func DefaultBattery() *Registry {
	r := NewRegistry()
	for _, c := range []domain.CredibilityCheck{
		StructuralCheck{},
		NewFloorCheck(DefaultReliabilityFloor),
		NewNoveltyCheck(),
		NewSkewCheck(),
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
