package prompt

import (
	"fmt"
	"strings"
)

// contextPreviewLen bounds the raw-document preview used for planning.
// Full semantic retrieval happens later in the pipeline; the planner only
// needs the key constraints.
const contextPreviewLen = 1500

// BuildPlanner builds the prompt bundle for the planning step.
//
// With significant context the plan must be grounded in the specific
// organizational constraints; without it the plan stays domain-agnostic and
// process-focused.
func BuildPlanner(question string, contextDocs []string) Bundle {
	summary := contextSummary(contextDocs)
	significant := Significant(summary)

	if significant {
		return Bundle{
			System:      plannerContextualSystem(),
			Human:       plannerContextualHuman(question, summary),
			Significant: true,
			Mode:        ModeAuthoritative,
		}
	}
	return Bundle{
		System:      plannerGenericSystem(),
		Human:       plannerGenericHuman(question),
		Significant: false,
		Mode:        ModeFallback,
	}
}

// contextSummary extracts a bounded preview of the raw uploaded documents.
func contextSummary(contextDocs []string) string {
	if len(contextDocs) == 0 {
		return ""
	}
	combined := strings.Join(contextDocs, "\n\n")
	if len(combined) > contextPreviewLen {
		combined = combined[:contextPreviewLen]
	}
	return strings.TrimSpace(combined)
}

func plannerContextualSystem() string {
	return DecisionSupportPolicy + `

You are a strategic decision planner with access to authoritative organizational context.

**CRITICAL INSTRUCTION - CONTEXT-GROUNDED PLANNING:**

You MUST produce a plan that demonstrates understanding of the SPECIFIC organizational reality.
Do not generate generic consulting steps like "evaluate team capabilities" or
"assess technical fit". Ground every step in concrete organizational factors.

**REQUIREMENTS:**
1. Reference SPECIFIC constraints from the context (team size, tech stack, timelines)
2. Acknowledge concrete limitations explicitly
3. Use organizational terminology (if present in context)
4. Show domain-specific understanding (not generic)

**FORMAT:**
Generate 3-5 steps, each step should:
- Start with a contextual constraint ("Given X..." or "Considering Y...")
- Propose a concrete evaluation criterion
- Be actionable and specific to this organization`
}

func plannerContextualHuman(question, summary string) string {
	return fmt.Sprintf(`Organizational Context (MANDATORY - READ CAREFULLY):
%s

Question:
%s

Instructions:
Generate a 3-5 step decision plan that is GROUNDED in the specific organizational context above.

Each step must:
1. Reference concrete constraints (team size, expertise, timelines, tech stack)
2. Show you understand the organizational reality
3. Be specific, not generic consulting advice

Generate the plan now:`, summary, question)
}

func plannerGenericSystem() string {
	return DecisionSupportPolicy + `

You are a strategic decision planner.

Generate a high-level, domain-agnostic plan for making a well-reasoned decision.

The plan should:
- Identify key dimensions to analyze
- Remain domain-agnostic (no specific industry assumptions)
- Avoid premature conclusions or recommendations
- Be 3-5 steps maximum

Focus on PROCESS, not content.`
}

func plannerGenericHuman(question string) string {
	return fmt.Sprintf(`Question:
%s

Generate a 3-5 step decision plan that identifies:
1. What information is needed
2. What dimensions to evaluate
3. What criteria to apply

Keep it domain-agnostic and process-focused.`, question)
}
