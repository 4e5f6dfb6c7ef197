package store

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousMatch is returned when equivalence search finds two
	// wonders scoring within the ambiguity margin of each other, so neither
	// can safely absorb the observation.
	ErrAmbiguousMatch = errors.New("ambiguous equivalence match")
)
