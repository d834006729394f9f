// Package pipeline implements the decision pipeline as an explicit finite
// state machine: intake, retrieval, a parallel plan/analyze region, decision,
// confidence routing and summarization. A DecisionRecord is threaded through
// the phases; each node returns a partial update that the sequencer merges
// into the record before the next phase runs.
//
// Only one conditional transition exists: after each decision cycle the
// router either retries retrieval with a widened scope or proceeds to
// summarization. The retry loop is bounded by Thresholds.MaxAttempts, so a
// run always terminates.
//
// Heavy work (generation, vector search, persistence) is delegated to the
// Generator, Retriever, ContextProvider and Memory collaborators, all passed
// in at construction time.
package pipeline
