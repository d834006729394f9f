package pipeline

// Route is the transition chosen by the confidence router after a decision
// cycle completes.
type Route int

const (
	// RouteRetry loops back to retrieval with a widened scope
	RouteRetry Route = iota
	// RouteAcceptHigh terminates with a high-confidence decision
	RouteAcceptHigh
	// RouteAcceptConditional terminates with an accepted mid-confidence
	// outcome
	RouteAcceptConditional
	// RouteForced terminates because attempts are exhausted, regardless of
	// confidence; the record is marked low-confidence
	RouteForced
)

// Terminal reports whether the route leaves the retry loop.
func (r Route) Terminal() bool {
	return r != RouteRetry
}

// String returns the route name
func (r Route) String() string {
	switch r {
	case RouteRetry:
		return "retry"
	case RouteAcceptHigh:
		return "terminate-success"
	case RouteAcceptConditional:
		return "terminate-conditional"
	case RouteForced:
		return "terminate-forced"
	default:
		return "unknown"
	}
}

// Thresholds holds the routing policy. These are configuration values, not
// business logic baked into the router.
type Thresholds struct {
	// Low is the retry threshold: strictly below it the pipeline retries
	// while attempts remain. Low itself is an accepted conditional outcome.
	Low float64

	// High is the inclusive threshold for a high-confidence termination.
	High float64

	// MaxAttempts bounds the number of decision cycles per question.
	MaxAttempts int
}

// DefaultThresholds returns the default routing policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.6, High: 0.8, MaxAttempts: 3}
}

// Route picks the transition for a completed decision cycle. attempts counts
// completed cycles including the current one.
//
// Conventions: High is inclusive for terminate-success; Low is inclusive for
// the conditional outcome; strictly below Low retries while attempts remain,
// and otherwise terminates forced rather than looping indefinitely.
func (t Thresholds) Route(confidence float64, attempts int) Route {
	switch {
	case confidence >= t.High:
		return RouteAcceptHigh
	case confidence >= t.Low:
		return RouteAcceptConditional
	case attempts < t.MaxAttempts:
		return RouteRetry
	default:
		return RouteForced
	}
}
