package pipeline

import (
	"context"
	"fmt"

	"github.com/smallnest/decisionflow/prompt"
)

// tokenBuffer is the per-branch channel capacity for streamed chunks.
const tokenBuffer = 64

// branchResult carries one branch's final output across the fan-in point.
type branchResult struct {
	text string
	err  error
}

// analyzeParallel runs the planning and analysis branches concurrently over
// the same snapshot of the record. Neither branch reads the other's output:
// the planner sees the raw context, the analyzer sees the context block and
// the historical evidence, and the merge happens only after both branches
// signal completion by closing their token channels.
//
// If either branch fails (or the run is cancelled) the other branch is
// cancelled and no partial write is applied to the record.
func (m *Machine) analyzeParallel(ctx context.Context, rec *DecisionRecord, obs Observer) (update, error) {
	snap := rec.snapshot()

	var contextDocs []string
	if snap.contextBlock != "" {
		contextDocs = []string{snap.contextBlock}
	}
	planBundle := prompt.BuildPlanner(snap.question, contextDocs)
	analysisBundle := prompt.BuildAnalyzer(snap.question, snap.contextBlock, snap.docs)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	planOut := m.startBranch(ctx, BranchPlan, planBundle, obs)
	analysisOut := m.startBranch(ctx, BranchAnalysis, analysisBundle, obs)

	// Fan-in: wait for both branches regardless of completion order. The
	// result assignment is per-branch, so order cannot affect the merge.
	plan := <-planOut
	analysis := <-analysisOut

	if plan.err != nil {
		return update{}, fmt.Errorf("plan branch: %w", plan.err)
	}
	if analysis.err != nil {
		return update{}, fmt.Errorf("analysis branch: %w", analysis.err)
	}

	return update{
		plan:     ptr(plan.text),
		analysis: ptr(analysis.text),
	}, nil
}

// startBranch launches one branch of the parallel region. Streamed chunks
// flow through a per-branch channel whose close is the terminal sentinel;
// the observer drains it on a separate goroutine so a slow consumer cannot
// stall generation. The returned channel yields exactly one result after
// the sentinel.
func (m *Machine) startBranch(ctx context.Context, branch Branch, bundle prompt.Bundle, obs Observer) <-chan branchResult {
	tokens := make(chan string, tokenBuffer)
	done := make(chan struct{})
	out := make(chan branchResult, 1)

	// Consumer: forward partial output to the observer. Display-only.
	go func() {
		defer close(done)
		for chunk := range tokens {
			obs.OnToken(branch, chunk)
		}
	}()

	// Producer: generate, streaming chunks into the branch channel.
	go func() {
		text, err := m.gen.Generate(ctx, bundle, func(chunk string) {
			select {
			case tokens <- chunk:
			case <-ctx.Done():
			}
		})
		close(tokens)
		<-done // branch completes only after its sentinel is consumed
		out <- branchResult{text: text, err: err}
	}()

	return out
}
