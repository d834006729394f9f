package prompt

import (
	"fmt"
	"strings"
)

// PastDecision is a similar historical decision retrieved from long-term
// memory, presented to the model for a consistency check.
type PastDecision struct {
	ID         string
	Content    string
	Similarity float64
}

// historySimilarityFloor is the minimum similarity for a past decision to be
// quoted in the prompt.
const historySimilarityFloor = 0.75

const pastDecisionPreviewLen = 200

// BuildDecision builds the prompt bundle for the final decision step.
//
// The response format is fixed so the decision, confidence score and
// contextual factors can be parsed back out of the completion.
func BuildDecision(question, analysis, contextBlock string, similar []PastDecision) Bundle {
	significant := Significant(contextBlock)

	var system strings.Builder
	system.WriteString(DecisionSupportPolicy)
	system.WriteString(`

You are now producing the final decision.

Based on the provided analysis, produce:
1) A clear decision: exactly one of "Yes", "No" or "Conditional"
2) A brief justification grounded in the context
3) A confidence score between 0 and 1
`)

	quoted := quotedHistory(similar)
	if len(similar) > 0 {
		if quoted != "" {
			fmt.Fprintf(&system, `
**HISTORICAL CONTEXT (MANDATORY ANALYSIS):**

%d similar past decisions found:
%s
**CRITICAL INSTRUCTION - HISTORICAL CONSISTENCY:**
You MUST include a section titled "### Historical Consistency Check" that:
1. Lists each similar past decision briefly
2. States whether this decision ALIGNS or DIVERGES from past patterns
3. If diverges, explains WHY (new constraints, different context, lessons learned)
`, len(similar), quoted)
		} else {
			system.WriteString(`
**HISTORICAL CONTEXT:**
No sufficiently similar past decisions found (similarity threshold: 0.75).
This appears to be a novel decision for this organization.
`)
		}
	}

	system.WriteString(`
**CONSTRAINT ENFORCEMENT**:
You MUST NOT recommend an option that conflicts with the operational or organizational
constraints described in the context, unless you explicitly justify why the constraint
should be overridden and what mitigation is required.
`)

	if significant {
		system.WriteString(`
**REQUIRED CITATION**:
After your decision and confidence score, include a section titled "Contextual Factors Influencing This Decision"
and list the specific contextual factors that most influenced this decision.
If no authoritative context was provided, state "No specific organizational context influenced this decision."
`)
	}

	system.WriteString(`
Respond in the following format:

Decision:
<Yes | No | Conditional> - <brief justification>

Confidence:
<number between 0 and 1>

Contextual Factors Influencing This Decision:
<list of factors>`)

	var human strings.Builder
	if significant {
		fmt.Fprintf(&human, "Authoritative Organizational Reality (MANDATORY):\n%s\n\n", contextBlock)
	}
	fmt.Fprintf(&human, `Question:
%s

Analysis Summary:
%s

Instructions:
Produce the final decision with:
1. A clear decision statement
2. Justification grounded in the authoritative context
3. A confidence score between 0 and 1
4. List of contextual factors that influenced this decision`, question, analysis)

	return Bundle{
		System:      system.String(),
		Human:       human.String(),
		Significant: significant,
		Mode:        ModeFor(contextBlock),
	}
}

// quotedHistory renders the past decisions that clear the similarity floor.
func quotedHistory(similar []PastDecision) string {
	var b strings.Builder
	for _, sim := range similar {
		if sim.Similarity < historySimilarityFloor {
			continue
		}
		content := sim.Content
		if len(content) > pastDecisionPreviewLen {
			content = content[:pastDecisionPreviewLen] + "..."
		}
		fmt.Fprintf(&b, "- Decision #%s (similarity %.2f): %s\n", sim.ID, sim.Similarity, content)
	}
	return b.String()
}
