package registry

import "strings"

// CycleError reports a dependency cycle among the bindings selected for a
// build. Flags lists the trigger flag names along the cycle; the first and
// last entries are the same binding. The error is raised before any binding
// executes, so the result structure is never partially mutated by this
// failure mode.
type CycleError struct {
	Flags []string
}

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return "circular dependency: " + strings.Join(e.Flags, " -> ")
}
