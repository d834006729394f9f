package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned by intake when the question is blank
	ErrEmptyQuestion = errors.New("question must be a non-empty string")

	// ErrNoAnalysis is returned when the decision step runs without a
	// completed analysis
	ErrNoAnalysis = errors.New("decision requires a completed analysis")

	// ErrGeneratorRequired is returned by New when no Generator is configured
	ErrGeneratorRequired = errors.New("pipeline requires a Generator")
)

// NodeError wraps a fatal error raised inside a pipeline node. Node failures
// abort the run; only confidence-driven business retries are modeled.
type NodeError struct {
	// Node is the name of the phase that failed
	Node string
	// Err is the underlying error
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying error
func (e *NodeError) Unwrap() error {
	return e.Err
}
