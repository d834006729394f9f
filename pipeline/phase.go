package pipeline

// Phase identifies a state of the pipeline state machine.
type Phase int

const (
	// PhaseIntake validates and normalizes the question
	PhaseIntake Phase = iota
	// PhaseRetrieving loads authoritative context and historical evidence
	PhaseRetrieving
	// PhaseAnalyzing is the parallel plan/analyze region
	PhaseAnalyzing
	// PhaseDeciding produces the decision and confidence for this cycle
	PhaseDeciding
	// PhaseRouting picks retry or termination from the confidence
	PhaseRouting
	// PhaseSummarizing compresses messages and persists the final decision
	PhaseSummarizing
	// PhaseDone is the terminal phase, reached only via PhaseSummarizing
	PhaseDone
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseIntake:
		return "intake"
	case PhaseRetrieving:
		return "retrieving"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseDeciding:
		return "deciding"
	case PhaseRouting:
		return "routing"
	case PhaseSummarizing:
		return "summarizing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}
