package checks

import (
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
)

// DefaultMaxSkew tolerates ordinary clock drift between reporters and the
// filter before a future timestamp counts against the observation.
const DefaultMaxSkew = 5 * time.Minute

// SkewCheck fails observations stamped implausibly far in the future. A
// zero ObservedAt passes; the service stamps it at intake. Now is injectable
// for tests and defaults to the wall clock.
type SkewCheck struct {
	MaxSkew time.Duration
	Now     func() time.Time
}

func NewSkewCheck() SkewCheck {
	return SkewCheck{MaxSkew: DefaultMaxSkew, Now: time.Now}
}

func (c SkewCheck) Name() string { return "clock_skew" }

func (c SkewCheck) Fails(obs domain.Observation, _ domain.SourceReliability) bool {
	if obs.ObservedAt.IsZero() {
		return false
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return obs.ObservedAt.Sub(now()) > c.MaxSkew
}
