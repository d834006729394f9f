package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	decisionRe   = regexp.MustCompile(`(?is)decision[:\s]+(.+?)(?:\n\s*confidence:|$)`)
	confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]+([0-9]*\.?[0-9]+)`)
	factorsRe    = regexp.MustCompile(`(?is)contextual factors influencing this decision[:\s]*(.+)`)
)

const noFactors = "No specific organizational context influenced this decision."

// parsedDecision is the structured form of a decision completion.
type parsedDecision struct {
	verdict    Decision
	text       string
	confidence float64
	factors    string
}

// parseDecision extracts the decision, confidence score and contextual
// factors from a completion. A missing confidence falls back to the given
// default; the parsed value is clamped to [0,1].
func parseDecision(content string, defaultConfidence float64) parsedDecision {
	pd := parsedDecision{
		confidence: defaultConfidence,
		factors:    noFactors,
	}

	if m := decisionRe.FindStringSubmatch(content); m != nil {
		pd.text = strings.TrimSpace(m[1])
	} else {
		pd.text = strings.TrimSpace(content)
	}

	if m := confidenceRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			pd.confidence = v
		}
	}
	pd.confidence = clamp01(pd.confidence)

	if m := factorsRe.FindStringSubmatch(content); m != nil {
		pd.factors = strings.TrimSpace(m[1])
	}

	pd.verdict = normalizeVerdict(pd.text)
	return pd
}

// normalizeVerdict maps free-form decision text onto the enumerated set.
// Anything that does not open with a clear yes/no reads as Conditional.
func normalizeVerdict(text string) Decision {
	head := strings.ToLower(text)
	head = strings.TrimLeft(head, "*#> \t\n")
	for _, sep := range []string{" ", ",", ".", ":", ";", "-", "—", "\n"} {
		if i := strings.Index(head, sep); i > 0 {
			head = head[:i]
		}
	}

	switch head {
	case "yes":
		return DecisionYes
	case "no":
		return DecisionNo
	}
	if strings.Contains(strings.ToLower(text), "conditional") {
		return DecisionConditional
	}
	return DecisionConditional
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
