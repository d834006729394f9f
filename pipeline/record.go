package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversational turn in the record's short-term memory.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Decision is the enumerated outcome of a decision cycle.
type Decision string

const (
	// DecisionYes recommends proceeding
	DecisionYes Decision = "Yes"
	// DecisionNo recommends against
	DecisionNo Decision = "No"
	// DecisionConditional recommends proceeding only under stated conditions
	DecisionConditional Decision = "Conditional"
)

// SimilarDecision is a past decision retrieved from long-term memory by
// semantic similarity to the current question.
type SimilarDecision struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// DecisionRecord is the shared state threaded through the pipeline for one
// question. It is created at intake, mutated by the sequencer as node updates
// are merged in, and discarded after summarization.
type DecisionRecord struct {
	// ID uniquely identifies this run
	ID string `json:"id"`

	// Question is the user question, immutable after intake
	Question string `json:"question"`

	// Plan is produced by the planning branch
	Plan string `json:"plan,omitempty"`

	// ContextBlock is the authoritative context assembled from uploaded
	// documents; it overrides general-knowledge reasoning
	ContextBlock string `json:"context_block,omitempty"`

	// RetrievedDocs is the historical evidence, append-only across cycles
	RetrievedDocs []string `json:"retrieved_docs,omitempty"`

	// Analysis is produced by the analysis branch, independent of Plan
	Analysis string `json:"analysis,omitempty"`

	// Decision is set once per cycle
	Decision Decision `json:"decision,omitempty"`

	// Confidence is recomputed every cycle, never carried over; in [0,1]
	Confidence float64 `json:"confidence"`

	// ContextFactors lists the contextual factors the model cited
	ContextFactors string `json:"context_factors,omitempty"`

	// SimilarDecisions holds the past decisions consulted this cycle
	SimilarDecisions []SimilarDecision `json:"similar_decisions,omitempty"`

	// Messages is the short-term conversational memory, trimmed to the most
	// recent entries at summarization
	Messages []Message `json:"messages,omitempty"`

	// Attempts counts completed decision cycles; never exceeds MaxAttempts
	Attempts int `json:"attempts"`

	// ForcedTermination marks a run that exhausted its attempts with the
	// confidence still below the retry threshold
	ForcedTermination bool `json:"forced_termination"`

	// Phase is the machine phase the record is currently in
	Phase Phase `json:"phase"`

	// CreatedAt is the intake timestamp
	CreatedAt time.Time `json:"created_at"`
}

// newRecord creates a fresh record for a question.
func newRecord(question string) *DecisionRecord {
	return &DecisionRecord{
		ID:        uuid.NewString(),
		Question:  question,
		Phase:     PhaseIntake,
		CreatedAt: time.Now().UTC(),
	}
}

// update is a partial record update produced by a node. Only the fields a
// node owns are set; the sequencer merges them into the record. Doc and
// message slices append, everything else overwrites when present.
type update struct {
	question     *string
	plan         *string
	analysis     *string
	contextBlock *string
	decision     *Decision
	confidence   *float64
	factors      *string
	similar      []SimilarDecision
	docs         []string
	messages     []Message
	setMessages  []Message // full replacement, used by summarize compression
	attempts     *int
	forced       *bool
}

// apply merges a partial update into the record. This is the single
// serialization point: nodes never write to the record directly.
func (r *DecisionRecord) apply(u update) {
	if u.question != nil {
		r.Question = *u.question
	}
	if u.plan != nil {
		r.Plan = *u.plan
	}
	if u.analysis != nil {
		r.Analysis = *u.analysis
	}
	if u.contextBlock != nil {
		r.ContextBlock = *u.contextBlock
	}
	if u.decision != nil {
		r.Decision = *u.decision
	}
	if u.confidence != nil {
		r.Confidence = *u.confidence
	}
	if u.factors != nil {
		r.ContextFactors = *u.factors
	}
	if u.similar != nil {
		r.SimilarDecisions = u.similar
	}
	r.RetrievedDocs = append(r.RetrievedDocs, u.docs...)
	if u.setMessages != nil {
		r.Messages = u.setMessages
	}
	r.Messages = append(r.Messages, u.messages...)
	if u.attempts != nil {
		r.Attempts = *u.attempts
	}
	if u.forced != nil {
		r.ForcedTermination = *u.forced
	}
}

// snapshot is the read-only view handed to the parallel branches. Both
// branches receive the same snapshot and never see each other's output.
type snapshot struct {
	question     string
	contextBlock string
	docs         []string
}

// snapshot copies the fields the parallel region is allowed to read.
func (r *DecisionRecord) snapshot() snapshot {
	docs := make([]string, len(r.RetrievedDocs))
	copy(docs, r.RetrievedDocs)
	return snapshot{
		question:     r.Question,
		contextBlock: r.ContextBlock,
		docs:         docs,
	}
}

func ptr[T any](v T) *T {
	return &v
}
