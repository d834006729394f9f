package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/smallnest/decisionflow/prompt"
)

// Rule matches a prompt and scripts its completion.
type Rule struct {
	// Match is a substring looked up in the combined system+human prompt
	Match string

	// Response is the scripted completion text
	Response string

	// Delay is waited before responding, for exercising branch-ordering
	Delay time.Duration
}

// Scripted is a deterministic Generator driven by match rules: the first
// rule whose Match appears in the prompt wins. Identical prompts always
// yield identical completions, so pipeline runs over it are reproducible.
type Scripted struct {
	mu    sync.Mutex
	rules []Rule
	calls int
}

// NewScripted creates a scripted generator.
func NewScripted(rules ...Rule) *Scripted {
	return &Scripted{rules: rules}
}

// Calls returns how many generations have been served.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Generate finds the first matching rule and streams its response in small
// chunks when onToken is set.
func (s *Scripted) Generate(ctx context.Context, bundle prompt.Bundle, onToken func(chunk string)) (string, error) {
	s.mu.Lock()
	s.calls++
	var matched *Rule
	for i := range s.rules {
		if strings.Contains(bundle.System+bundle.Human, s.rules[i].Match) {
			matched = &s.rules[i]
			break
		}
	}
	s.mu.Unlock()

	if matched == nil {
		return "", fmt.Errorf("no scripted response matches prompt")
	}

	if matched.Delay > 0 {
		select {
		case <-time.After(matched.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if onToken != nil {
		for _, word := range strings.SplitAfter(matched.Response, " ") {
			onToken(word)
		}
	}
	return matched.Response, nil
}

// Failing is a Generator that always fails, for exercising fatal node
// failures.
type Failing struct {
	Err error
}

// Generate returns the configured error.
func (f *Failing) Generate(ctx context.Context, bundle prompt.Bundle, onToken func(chunk string)) (string, error) {
	return "", f.Err
}
