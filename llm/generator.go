// Package llm adapts langchaingo chat models to the pipeline's Generator
// boundary and provides a deterministic scripted generator for tests and
// offline runs.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/decisionflow/prompt"
)

// ErrEmptyCompletion is returned when the model produces no choices.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// DefaultTimeout bounds a single generation call when no timeout is
// configured.
const DefaultTimeout = 60 * time.Second

// LangChainGenerator generates completions through a langchaingo llms.Model.
type LangChainGenerator struct {
	model       llms.Model
	timeout     time.Duration
	temperature float64
}

// Option configures a LangChainGenerator.
type Option func(*LangChainGenerator)

// WithTimeout sets the per-call timeout. A timeout surfaces as a node
// failure, never as a retry-worthy low confidence.
func WithTimeout(d time.Duration) Option {
	return func(g *LangChainGenerator) {
		g.timeout = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *LangChainGenerator) {
		g.temperature = t
	}
}

// NewLangChain wraps a langchaingo model.
func NewLangChain(model llms.Model, opts ...Option) *LangChainGenerator {
	g := &LangChainGenerator{
		model:       model,
		timeout:     DefaultTimeout,
		temperature: 0.2,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate sends the bundle as a system+human message pair. When onToken is
// non-nil the call streams and forwards each chunk before returning the full
// completion text.
func (g *LangChainGenerator) Generate(ctx context.Context, bundle prompt.Bundle, onToken func(chunk string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, bundle.System),
		llms.TextParts(llms.ChatMessageTypeHuman, bundle.Human),
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(g.temperature),
	}
	if onToken != nil {
		callOpts = append(callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			onToken(string(chunk))
			return nil
		}))
	}

	resp, err := g.model.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Content, nil
}
