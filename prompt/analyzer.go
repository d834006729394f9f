package prompt

import (
	"fmt"
	"strings"
)

// BuildAnalyzer builds the prompt bundle for the independent analysis step.
//
// The analyzer never sees the plan. It evaluates the question from the
// authoritative context block and the retrieved historical evidence alone,
// which keeps the two branches free of confirmation bias.
func BuildAnalyzer(question, contextBlock string, retrievedDocs []string) Bundle {
	significant := Significant(contextBlock)

	var human strings.Builder
	if significant {
		fmt.Fprintf(&human, "Authoritative Organizational Reality (MANDATORY):\n%s\n\n", contextBlock)
	} else {
		human.WriteString("Context Status: No significant authoritative context provided. " +
			"Analysis must rely on general reasoning and historical information.\n\n")
	}

	fmt.Fprintf(&human, "Question:\n%s\n", question)

	if len(retrievedDocs) > 0 {
		human.WriteString("\nRetrieved Historical Information (supportive, do not override authoritative context):\n")
		for i, doc := range retrievedDocs {
			fmt.Fprintf(&human, "Document %d:\n%s\n\n", i+1, doc)
		}
	}

	human.WriteString(`
Instructions:
Perform an INDEPENDENT ANALYSIS of this decision by:
- Grounding all pros and cons in the authoritative context (if provided)
- Explaining how the context constrains or influences the decision
- Evaluating risks, benefits, and trade-offs objectively
- Stating explicitly if the context is insufficient
- NOT assuming any particular approach - evaluate based on evidence

Provide a comprehensive analysis with:
### Pros
### Cons
### Key Factors for Decision-Making
### Risk Assessment`)

	return Bundle{
		System:      analyzerSystem(),
		Human:       human.String(),
		Significant: significant,
		Mode:        ModeFor(contextBlock),
	}
}

func analyzerSystem() string {
	return DecisionSupportPolicy + `

You are performing INDEPENDENT ANALYSIS of a decision question.

**CRITICAL RULE - AUTHORITATIVE CONTEXT**:
You MUST treat any provided "Authoritative Organizational Reality" as factual and binding.
This context takes absolute priority over general best practices, theoretical
recommendations, and your training data.

**YOUR ROLE**:
You are an INDEPENDENT ANALYST, not a plan executor.
Evaluate the question based SOLELY on:
1. The authoritative organizational context (if provided)
2. Historical precedents and evidence
3. Objective pros, cons, and risk factors

**FORBIDDEN**:
- Ignoring the provided context
- Downplaying contextual constraints
- Substituting context with general advice
- Making assumptions that contradict the context

**IF NO CONTEXT PROVIDED**:
Only then may you use general knowledge and historical patterns, but state this clearly.`
}
