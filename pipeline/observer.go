package pipeline

// Branch identifies one side of the parallel plan/analyze region.
type Branch string

const (
	// BranchPlan is the planning branch
	BranchPlan Branch = "plan"
	// BranchAnalysis is the analysis branch
	BranchAnalysis Branch = "analysis"
)

// Observer receives display-only progress events during a run. Token
// emissions are partial output: they must never be fed back into the other
// branch or into the decision step before the branch completes.
type Observer interface {
	// OnPhase is called when the machine enters a phase
	OnPhase(phase Phase)

	// OnToken is called for each streamed chunk from a parallel branch
	OnToken(branch Branch, chunk string)

	// OnMessage is called when a node appends a conversational message
	OnMessage(msg Message)
}

// NopObserver discards all events.
type NopObserver struct{}

// OnPhase does nothing
func (NopObserver) OnPhase(Phase) {}

// OnToken does nothing
func (NopObserver) OnToken(Branch, string) {}

// OnMessage does nothing
func (NopObserver) OnMessage(Message) {}
