package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/decisionflow/log"
	"github.com/smallnest/decisionflow/prompt"
)

// Generator produces a completion for a prompt bundle. When onToken is
// non-nil the implementation streams chunks to it before returning the full
// text. Implementations bound each call with their own timeout; a timeout is
// a node failure, not a low-confidence retry.
type Generator interface {
	Generate(ctx context.Context, bundle prompt.Bundle, onToken func(chunk string)) (string, error)
}

// Retriever searches a vector-backed evidence store and returns an ordered
// sequence of snippets, most relevant first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// ContextProvider assembles the authoritative context block for a question
// from the uploaded document store. An empty block means no context is
// available and the pipeline falls back to general reasoning.
type ContextProvider interface {
	ContextBlock(ctx context.Context, question string) (string, error)
}

/// Memory is the long-term decision memory: past decisions retrievable by
// similarity, and persistence for finished records.
type Memory interface {
	SimilarDecisions(ctx context.Context, question string, k int) ([]SimilarDecision, error)
	SaveDecision(ctx context.Context, rec *DecisionRecord) (string, error)
}

// ConfidencePolicy holds the knobs that shape the confidence scalar. The
// exact weighting is deployment policy rather than a fixed law.
type ConfidencePolicy struct {
	// DefaultConfidence is assumed when the model omits a score
	DefaultConfidence float64

	// SimilarityThreshold is the minimum similarity for a past decision to
	// grant the bonus
	SimilarityThreshold float64

	// SimilarityBonus is added once per sufficiently similar past decision
	SimilarityBonus float64

	// NoContextPenalty is multiplied in when no authoritative context was
	// available for the cycle
	NoContextPenalty float64
}

// DefaultConfidencePolicy returns the default confidence policy.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		DefaultConfidence:   0.75,
		SimilarityThreshold: 0.75,
		SimilarityBonus:     0.10,
		NoContextPenalty:    0.7,
	}
}

// Config assembles a Machine. Generator is required; every other
// collaborator is optional and nil-safe.
type Config struct {
	Generator Generator
	Retriever Retriever
	Contexts  ContextProvider
	Memory    Memory

	Thresholds Thresholds
	Policy     ConfidencePolicy
	Logger     log.Logger

	// BaseK is the retrieval count for the first cycle (default 5)
	BaseK int

	// WidenBy is added to the retrieval count per retry cycle (default 3)
	WidenBy int

	// MaxMessages bounds the short-term memory after summarization
	// (default 10)
	MaxMessages int
}

// Machine runs the decision pipeline. It is safe for concurrent use: each
// Run owns its record, and the collaborators are expected to be
// goroutine-safe.
type Machine struct {
	gen        Generator
	retriever  Retriever
	contexts   ContextProvider
	memory     Memory
	thresholds Thresholds
	policy     ConfidencePolicy
	logger     log.Logger

	baseK       int
	widenBy     int
	maxMessages int
}

// New creates a Machine from the config, filling in defaults for anything
// left zero.
func New(cfg Config) (*Machine, error) {
	if cfg.Generator == nil {
		return nil, ErrGeneratorRequired
	}
	if cfg.Thresholds.MaxAttempts == 0 {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Policy.DefaultConfidence == 0 {
		cfg.Policy = DefaultConfidencePolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.NoOpLogger{}
	}
	if cfg.BaseK == 0 {
		cfg.BaseK = 5
	}
	if cfg.WidenBy == 0 {
		cfg.WidenBy = 3
	}
	if cfg.MaxMessages == 0 {
		cfg.MaxMessages = 10
	}

	return &Machine{
		gen:         cfg.Generator,
		retriever:   cfg.Retriever,
		contexts:    cfg.Contexts,
		memory:      cfg.Memory,
		thresholds:  cfg.Thresholds,
		policy:      cfg.Policy,
		logger:      cfg.Logger,
		baseK:       cfg.BaseK,
		widenBy:     cfg.WidenBy,
		maxMessages: cfg.MaxMessages,
	}, nil
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	observer Observer
}

// WithObserver streams phase and token events for this run to the observer.
func WithObserver(o Observer) RunOption {
	return func(ro *runOptions) {
		ro.observer = o
	}
}

// Run executes the state machine for one question and returns the final
// record. Node failures abort the run; low confidence and exhausted retries
// are outcomes, not errors.
func (m *Machine) Run(ctx context.Context, question string, opts ...RunOption) (*DecisionRecord, error) {
	ro := runOptions{observer: NopObserver{}}
	for _, opt := range opts {
		opt(&ro)
	}
	obs := ro.observer

	rec := newRecord(question)
	for rec.Phase != PhaseDone {
		if err := ctx.Err(); err != nil {
			return nil, &NodeError{Node: rec.Phase.String(), Err: err}
		}
		obs.OnPhase(rec.Phase)

		var (
			next Phase
			upd  update
			err  error
		)
		switch rec.Phase {
		case PhaseIntake:
			upd, err = m.intake(rec)
			next = PhaseRetrieving
		case PhaseRetrieving:
			upd, err = m.retrieve(ctx, rec)
			next = PhaseAnalyzing
		case PhaseAnalyzing:
			upd, err = m.analyzeParallel(ctx, rec, obs)
			next = PhaseDeciding
		case PhaseDeciding:
			upd, err = m.decide(ctx, rec)
			next = PhaseRouting
		case PhaseRouting:
			var route Route
			upd, route = m.route(rec)
			if route.Terminal() {
				next = PhaseSummarizing
			} else {
				next = PhaseRetrieving
			}
		case PhaseSummarizing:
			upd, err = m.summarize(ctx, rec)
			next = PhaseDone
		default:
			err = fmt.Errorf("unexpected phase %v", rec.Phase)
		}
		if err != nil {
			return nil, &NodeError{Node: rec.Phase.String(), Err: err}
		}

		for _, msg := range upd.messages {
			obs.OnMessage(msg)
		}
		rec.apply(upd)
		rec.Phase = next
	}
	obs.OnPhase(PhaseDone)

	return rec, nil
}

// intake validates and normalizes the question and seeds the conversation.
func (m *Machine) intake(rec *DecisionRecord) (update, error) {
	question := strings.TrimSpace(rec.Question)
	if question == "" {
		return update{}, ErrEmptyQuestion
	}

	return update{
		question: ptr(question),
		messages: []Message{{Role: RoleUser, Content: question}},
	}, nil
}

// retrieve loads the authoritative context block and the historical evidence
// for this cycle. Both parallel branches will read the same snapshot of its
// output. The retrieval count widens on each retry.
func (m *Machine) retrieve(ctx context.Context, rec *DecisionRecord) (update, error) {
	upd := update{}

	if m.contexts != nil {
		block, err := m.contexts.ContextBlock(ctx, rec.Question)
		if err != nil {
			return update{}, fmt.Errorf("loading context: %w", err)
		}
		upd.contextBlock = ptr(block)
		if prompt.Significant(block) {
			upd.messages = append(upd.messages, Message{
				Role:    RoleAssistant,
				Content: "Context: loaded authoritative context from uploaded documents",
			})
		} else {
			upd.messages = append(upd.messages, Message{
				Role:    RoleAssistant,
				Content: "No context documents uploaded. Using general knowledge only.",
			})
		}
	}

	if m.retriever != nil {
		// The plan enriches the semantic query on retry cycles.
		query := rec.Question
		if rec.Plan != "" {
			query = fmt.Sprintf("Question: %s\nPlan: %s", rec.Question, rec.Plan)
		}
		k := m.baseK + m.widenBy*rec.Attempts

		docs, err := m.retriever.Search(ctx, query, k)
		if err != nil {
			return update{}, fmt.Errorf("retrieving evidence: %w", err)
		}
		upd.docs = docs
		upd.messages = append(upd.messages, Message{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("Historical context: retrieved %d similar past decisions from memory", len(docs)),
		})
	}

	return upd, nil
}

// decide builds the decision prompt from the analysis, consults long-term
// memory for similar past decisions, and parses the completion into the
// enumerated decision plus a confidence scalar.
func (m *Machine) decide(ctx context.Context, rec *DecisionRecord) (update, error) {
	if rec.Analysis == "" {
		return update{}, ErrNoAnalysis
	}

	var similar []SimilarDecision
	if m.memory != nil {
		var err error
		similar, err = m.memory.SimilarDecisions(ctx, rec.Question, 3)
		if err != nil {
			// First run against an empty memory is expected; keep going.
			m.logger.Warn("no historical decisions available: %v", err)
			similar = nil
		}
	}

	bundle := prompt.BuildDecision(rec.Question, rec.Analysis, rec.ContextBlock, toPastDecisions(similar))
	content, err := m.gen.Generate(ctx, bundle, nil)
	if err != nil {
		return update{}, fmt.Errorf("generating decision: %w", err)
	}

	pd := parseDecision(content, m.policy.DefaultConfidence)

	confidence := pd.confidence
	for _, sim := range similar {
		if sim.Similarity >= m.policy.SimilarityThreshold {
			confidence += m.policy.SimilarityBonus
		}
	}
	if !prompt.Significant(rec.ContextBlock) {
		confidence *= m.policy.NoContextPenalty
	}
	confidence = clamp01(confidence)

	m.logger.Debug("decision cycle %d: %s (confidence %.2f)", rec.Attempts+1, pd.verdict, confidence)

	return update{
		decision:   ptr(pd.verdict),
		confidence: ptr(confidence),
		factors:    ptr(pd.factors),
		similar:    similar,
		messages: []Message{{
			Role: RoleAssistant,
			Content: fmt.Sprintf("Decision:\n%s\n\nConfidence: %.2f\n\nContextual Factors:\n%s",
				pd.text, confidence, pd.factors),
		}},
	}, nil
}

// route closes the decision cycle: it increments the attempt counter and
// picks the transition out of the routing phase.
func (m *Machine) route(rec *DecisionRecord) (update, Route) {
	attempts := rec.Attempts + 1
	route := m.thresholds.Route(rec.Confidence, attempts)

	upd := update{attempts: ptr(attempts)}
	switch route {
	case RouteForced:
		upd.forced = ptr(true)
		upd.messages = []Message{{
			Role: RoleAssistant,
			Content: fmt.Sprintf("Maximum attempts (%d) reached; accepting low-confidence decision (%.2f)",
				m.thresholds.MaxAttempts, rec.Confidence),
		}}
	case RouteRetry:
		upd.messages = []Message{{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("Low confidence (%.2f); retrying with widened retrieval", rec.Confidence),
		}}
	}

	m.logger.Info("routing attempt %d: %s", attempts, route)
	return upd, route
}

// summarize compresses the short-term memory and persists the final decision
// to long-term memory. Report formatting itself is an external collaborator.
func (m *Machine) summarize(ctx context.Context, rec *DecisionRecord) (update, error) {
	upd := update{}

	if compressed, ok := compressMessages(rec.Messages, m.maxMessages); ok {
		upd.setMessages = compressed
	}

	if m.memory != nil {
		if _, err := m.memory.SaveDecision(ctx, rec); err != nil {
			return update{}, fmt.Errorf("saving decision: %w", err)
		}
	}

	return upd, nil
}

// compressMessages keeps the opening question plus the most recent entries
// and appends a compression notice. It reports false when no trimming was
// needed.
func compressMessages(messages []Message, maxMessages int) ([]Message, bool) {
	if len(messages) <= maxMessages {
		return nil, false
	}

	kept := make([]Message, 0, maxMessages+1)
	kept = append(kept, messages[0])
	kept = append(kept, messages[len(messages)-(maxMessages-1):]...)
	kept = append(kept, Message{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("[Compressed message history: kept %d of %d messages]", maxMessages, len(messages)),
	})
	return kept, true
}

func toPastDecisions(similar []SimilarDecision) []prompt.PastDecision {
	if len(similar) == 0 {
		return nil
	}
	past := make([]prompt.PastDecision, len(similar))
	for i, s := range similar {
		past[i] = prompt.PastDecision{ID: s.ID, Content: s.Content, Similarity: s.Similarity}
	}
	return past
}
