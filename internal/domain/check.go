package domain

// CredibilityCheck is one independent trust predicate in the admission
// battery. Fails reports whether the observation trips this check given the
// source's current reliability snapshot. Implementations must be pure
// functions of their arguments: no mutation, no I/O, no shared state, so a
// battery can run against concurrent observations without coordination.
type CredibilityCheck interface {
	Name() string
	Fails(obs Observation, src SourceReliability) bool
}

// CheckResult records a single check's verdict for one observation.
type CheckResult struct {
	Name   string `json:"name"`
	Failed bool   `json:"failed"`
}

// FailedNames extracts the names of failed checks, preserving battery order.
func FailedNames(results []CheckResult) []string {
	names := make([]string, 0, len(results))
	for _, r := range results {
		if r.Failed {
			names = append(names, r.Name)
		}
	}
	return names
}
