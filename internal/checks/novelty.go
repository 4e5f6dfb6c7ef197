package checks

import (
	"math"

	"github.com/curiolabs/wondergate/internal/domain"
)

const (
	// DefaultNoveltyMaxZ flags magnitudes more than three standard
	// deviations from the source's running mean.
	DefaultNoveltyMaxZ = 3.0
	// DefaultNoveltyMinSamples is how many magnitudes a source must have
	// produced before the profile is trusted enough to reject on.
	DefaultNoveltyMinSamples = 5
)

// NoveltyCheck fails claims whose magnitude is extreme relative to what the
// source has produced before, which suggests fabrication or a broken
// upstream. The check abstains until the source has enough history.
type NoveltyCheck struct {
	MaxZ       float64
	MinSamples int
}

func NewNoveltyCheck() NoveltyCheck {
	return NoveltyCheck{MaxZ: DefaultNoveltyMaxZ, MinSamples: DefaultNoveltyMinSamples}
}

func (c NoveltyCheck) Name() string { return "novelty_plausibility" }

func (c NoveltyCheck) Fails(obs domain.Observation, src domain.SourceReliability) bool {
	if src.Samples < c.MinSamples {
		return false
	}
	sd := src.MagnitudeStdDev()
	if sd == 0 {
		// A source that always reports the identical magnitude has no
		// spread to scale by. Floor the deviation at 5% of the mean so a
		// sudden jump still registers.
		sd = math.Max(1, math.Abs(src.MagnitudeMean)*0.05)
	}
	z := math.Abs(obs.MeasuredMagnitude()-src.MagnitudeMean) / sd
	return z > c.MaxZ
}
