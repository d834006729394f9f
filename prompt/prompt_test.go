package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPlanner_Contextual(t *testing.T) {
	docs := []string{"Team of 8 engineers, only 2 comfortable with backend work. Two-week sprint cycles."}

	b := BuildPlanner("Should we migrate to Next.js?", docs)

	assert.True(t, b.Significant)
	assert.Equal(t, ModeAuthoritative, b.Mode)
	assert.Contains(t, b.System, "CONTEXT-GROUNDED PLANNING")
	assert.Contains(t, b.Human, "Team of 8 engineers")
	assert.Contains(t, b.Human, "Should we migrate to Next.js?")
}

func TestBuildPlanner_Generic(t *testing.T) {
	b := BuildPlanner("Should we migrate to Next.js?", nil)

	assert.False(t, b.Significant)
	assert.Equal(t, ModeFallback, b.Mode)
	assert.Contains(t, b.System, "domain-agnostic")
	assert.NotContains(t, b.Human, "Organizational Context")
}

func TestBuildPlanner_TruncatesLongContext(t *testing.T) {
	long := strings.Repeat("constraint ", 400)

	b := BuildPlanner("q", []string{long})

	assert.Less(t, len(b.Human), len(long))
}

func TestBuildAnalyzer_NoPlanLeakage(t *testing.T) {
	b := BuildAnalyzer("Adopt GraphQL?", strings.Repeat("ctx ", 20), []string{"past evidence"})

	// The analyzer must be independent of the plan by construction.
	assert.NotContains(t, strings.ToLower(b.System), "the plan")
	assert.Contains(t, b.System, "INDEPENDENT ANALYSIS")
	assert.Contains(t, b.Human, "Document 1:\npast evidence")
}

func TestBuildAnalyzer_FallbackStatesMissingContext(t *testing.T) {
	b := BuildAnalyzer("Adopt GraphQL?", "", nil)

	assert.Equal(t, ModeFallback, b.Mode)
	assert.Contains(t, b.Human, "No significant authoritative context provided")
}

func TestBuildDecision_Format(t *testing.T) {
	b := BuildDecision("Adopt Kubernetes?", "analysis text", strings.Repeat("ctx ", 20), nil)

	assert.Contains(t, b.System, "Decision:")
	assert.Contains(t, b.System, "Confidence:")
	assert.Contains(t, b.System, "Contextual Factors Influencing This Decision")
	assert.Contains(t, b.Human, "Adopt Kubernetes?")
	assert.Contains(t, b.Human, "analysis text")
}

func TestBuildDecision_HistoryFiltering(t *testing.T) {
	similar := []PastDecision{
		{ID: "1", Content: "adopted microservices", Similarity: 0.9},
		{ID: "2", Content: "rejected rewrite", Similarity: 0.5},
	}

	b := BuildDecision("q", "a", "", similar)

	assert.Contains(t, b.System, "Decision #1")
	assert.NotContains(t, b.System, "Decision #2")
	assert.Contains(t, b.System, "Historical Consistency Check")
}

func TestBuildDecision_NovelDecision(t *testing.T) {
	similar := []PastDecision{{ID: "1", Content: "x", Similarity: 0.2}}

	b := BuildDecision("q", "a", "", similar)

	assert.Contains(t, b.System, "novel decision")
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, ModeFallback, ModeFor(""))
	assert.Equal(t, ModeFallback, ModeFor("short"))
	assert.Equal(t, ModeAuthoritative, ModeFor(strings.Repeat("x", SignificantContextLen)))
}
