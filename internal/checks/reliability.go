package checks

import (
	"github.com/curiolabs/wondergate/internal/domain"
)

// DefaultReliabilityFloor rejects sources that have burned most of their
// credibility. Unseen sources sit at the neutral 0.5 and pass.
const DefaultReliabilityFloor float32 = 0.2

// FloorCheck fails observations from sources whose tracked reliability has
// fallen below a floor. It looks only at the snapshot, so a source's first
// observation can never fail it.
type FloorCheck struct {
	Floor float32
}

func NewFloorCheck(floor float32) FloorCheck {
	return FloorCheck{Floor: floor}
}

func (c FloorCheck) Name() string { return "source_reliability" }

func (c FloorCheck) Fails(_ domain.Observation, src domain.SourceReliability) bool {
	return src.Score < c.Floor
}
