package graphstore

import "fmt"

// LoadError is a fatal, startup-only error produced while building a Graph
// Store: a missing file, a malformed record, a reference to an unknown id,
// or a violated invariant (alias collision, duplicate event id, dangling
// participant).
type LoadError struct {
	Artifact string // "entities", "events", or "edges"
	Reason   string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Artifact, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Artifact, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(artifact, reason string, err error) *LoadError {
	return &LoadError{Artifact: artifact, Reason: reason, Err: err}
}

// ErrNotFound is the sentinel for a lookup miss. The Store's own lookup
// methods report a miss through their boolean result rather than returning
// it; either way a miss is never a panic, and callers (the Planner and
// Executor) treat it as a normal, expected outcome.
var ErrNotFound = fmt.Errorf("not found")

// InternalInvariantViolation indicates a state that load-time validation
// should have made impossible: an event referencing an unknown entity
// after load, a traversal depth counter past its bound, or a broken
// visited-set invariant. It is always a defect, never a user error.
type InternalInvariantViolation struct {
	Where string
	Why   string
}

func (e *InternalInvariantViolation) Error() string {
	return fmt.Sprintf("internal invariant violated in %s: %s", e.Where, e.Why)
}
