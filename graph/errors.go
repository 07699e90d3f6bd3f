package graph

import "fmt"

// CycleDetectedError reports that the node dependency graph is not a DAG.
type CycleDetectedError struct {
	Nodes []NodeID
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("graph: cycle detected among nodes %v", e.Nodes)
}

// ConstraintConflictError reports that two usages of the same virtual image
// specified incompatible constraints (format, extent, or sample count).
type ConstraintConflictError struct {
	Image  int
	Reason string
}

func (e *ConstraintConflictError) Error() string {
	return fmt.Sprintf("graph: constraint conflict on image %d: %s", e.Image, e.Reason)
}

// OutputUnreachableError reports that the graph declares no output at all
// (Output is -1), or that an output binding names a version the live-set
// traversal cannot resolve (Output is that image's index).
type OutputUnreachableError struct {
	Output int
}

func (e *OutputUnreachableError) Error() string {
	return fmt.Sprintf("graph: output %d unreachable from any node", e.Output)
}

// ErrAllocationFailed is returned when the alias planner or render pass
// compiler cannot obtain a concrete GPU resource from the driver.
type ErrAllocationFailed struct {
	Reason string
	Err    error
}

func (e *ErrAllocationFailed) Error() string {
	return fmt.Sprintf("graph: allocation failed: %s: %v", e.Reason, e.Err)
}

func (e *ErrAllocationFailed) Unwrap() error { return e.Err }
