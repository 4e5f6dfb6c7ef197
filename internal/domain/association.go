package domain

import (
	"time"

	"github.com/google/uuid"
)

type AssociationKind string

const (
	// AssociationSameSource links wonders admitted from the same source
	// within a short window of each other.
	AssociationSameSource AssociationKind = "same_source"
	// AssociationSharedTag links wonders that carry a common tag. Label
	// holds the tag.
	AssociationSharedTag AssociationKind = "shared_tag"
)

func ValidAssociationKind(k string) bool {
	switch AssociationKind(k) {
	case AssociationSameSource, AssociationSharedTag:
		return true
	}
	return false
}

// WonderAssociation is a directed edge between two wonders, built in the
// background after admission. Edges are advisory context for readers; the
// filter itself never consults them.
type WonderAssociation struct {
	ID        uuid.UUID       `json:"id"`
	FromID    uuid.UUID       `json:"from_id"`
	ToID      uuid.UUID       `json:"to_id"`
	Kind      AssociationKind `json:"kind"`
	Label     string          `json:"label,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
