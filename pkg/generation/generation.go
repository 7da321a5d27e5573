// Package generation is the boundary to the language model that writes
// persona replies. Everything outbound goes through Generator so the chat
// core can be tested with a fake.
package generation

import (
	"context"
	"fmt"
	"strings"
)

// Params are the sampling parameters sent with a request.
type Params struct {
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// DefaultParams returns the stock sampling parameters.
func DefaultParams() Params {
	return Params{Model: DefaultModel(ProviderGemini), Temperature: 1.1, MaxOutputTokens: 500}
}

// DefaultModel names the model used when none is configured for p.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderGemini, "":
		return "gemini-2.5-flash"
	case ProviderOllama:
		return "llama3.2"
	default:
		return ""
	}
}

// Request is one reply to generate.
type Request struct {
	Persona           string // username, for logs and error messages
	SystemInstruction string
	Context           string // rendered channel history
	Trigger           string // the human message being answered
	Params            Params
}

// Prompt renders the user-turn text shared by every backend.
func (r Request) Prompt() string {
	var b strings.Builder
	b.WriteString("CHAT CONTEXT:\n")
	b.WriteString(r.Context)
	b.WriteString("\n\nUSER JUST SAID: \"")
	b.WriteString(r.Trigger)
	b.WriteString("\"\n\n(Reply now")
	if r.Persona != "" {
		b.WriteString(" as ")
		b.WriteString(r.Persona)
	}
	b.WriteString(")")
	return b.String()
}

// Response is a generator's answer. Text may be empty when the model
// returned nothing or the prompt was blocked.
type Response struct {
	Text         string
	FinishReason string
}

// Generator produces persona replies.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (Response, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Provider names a backend.
type Provider string

const (
	ProviderGemini  Provider = "gemini"
	ProviderOllama  Provider = "ollama"
	ProviderOffline Provider = "offline"
)

// Options configure New.
type Options struct {
	Provider  Provider
	APIKey    string
	BaseURL   string // overrides the provider endpoint
	Model     string
	RateLimit float64 // requests per second, 0 disables
	Burst     int
}

// New builds the generator for opts.Provider, wrapped in a rate limiter
// when RateLimit is set. A Gemini provider without an API key falls back
// to the offline backend.
func New(ctx context.Context, opts Options) (Generator, error) {
	var (
		gen Generator
		err error
	)
	switch opts.Provider {
	case ProviderGemini, "":
		if opts.APIKey == "" {
			gen = Offline{Reason: "no API key configured"}
			break
		}
		gen, err = NewGemini(ctx, opts.APIKey, opts.BaseURL)
	case ProviderOllama:
		gen, err = NewOllama(opts.BaseURL, opts.Model)
	case ProviderOffline:
		gen = Offline{Reason: "offline mode"}
	default:
		return nil, fmt.Errorf("generation.New: unknown provider %q", opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("generation.New: %w", err)
	}
	if opts.RateLimit > 0 {
		gen = Limit(gen, NewLimiter(opts.RateLimit, opts.Burst))
	}
	return gen, nil
}
