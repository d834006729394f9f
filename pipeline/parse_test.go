package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDecisionFullFormat(t *testing.T) {
	content := `Decision:
No - the migration would overwhelm the current team.

Confidence:
0.85

Contextual Factors Influencing This Decision:
- 4-person team
- no ops role`

	pd := parseDecision(content, 0.75)
	assert.Equal(t, DecisionNo, pd.verdict)
	assert.Equal(t, 0.85, pd.confidence)
	assert.Contains(t, pd.text, "overwhelm the current team")
	assert.Contains(t, pd.factors, "4-person team")
}

func TestParseDecisionMissingConfidenceUsesDefault(t *testing.T) {
	pd := parseDecision("Decision: Yes - proceed with the rollout.", 0.75)
	assert.Equal(t, DecisionYes, pd.verdict)
	assert.Equal(t, 0.75, pd.confidence)
	assert.Equal(t, noFactors, pd.factors)
}

func TestParseDecisionClampsConfidence(t *testing.T) {
	pd := parseDecision("Decision: Yes\nConfidence: 1.4", 0.75)
	assert.Equal(t, 1.0, pd.confidence)
}

func TestParseDecisionInlineFormat(t *testing.T) {
	pd := parseDecision("Decision: Conditional, pending a security review. Confidence: 0.7", 0.75)
	assert.Equal(t, DecisionConditional, pd.verdict)
	assert.Equal(t, 0.7, pd.confidence)
}

func TestParseDecisionFreeFormFallsBackToWholeText(t *testing.T) {
	pd := parseDecision("I believe we should wait until next quarter.", 0.75)
	assert.Equal(t, DecisionConditional, pd.verdict)
	assert.Equal(t, 0.75, pd.confidence)
	assert.Equal(t, "I believe we should wait until next quarter.", pd.text)
}

func TestNormalizeVerdict(t *testing.T) {
	tests := []struct {
		text string
		want Decision
	}{
		{"Yes - absolutely", DecisionYes},
		{"yes, with caveats", DecisionYes},
		{"**No** for now", DecisionNo},
		{"No.", DecisionNo},
		{"Conditional - only after the audit", DecisionConditional},
		{"It depends on the conditional approval", DecisionConditional},
		{"Maybe later", DecisionConditional},
		{"", DecisionConditional},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizeVerdict(tc.text), "text: %q", tc.text)
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(2.0))
	assert.Equal(t, 0.42, clamp01(0.42))
}
