package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChain generates replies through any langchaingo model.
type LangChain struct {
	llm      llms.Model
	provider Provider
}

// NewOllama creates a LangChain backend talking to a local Ollama server.
func NewOllama(serverURL, model string) (*LangChain, error) {
	if model == "" {
		model = DefaultModel(ProviderOllama)
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("generation.NewOllama: %w", err)
	}
	return NewLangChain(llm, ProviderOllama), nil
}

// NewLangChain wraps an existing model.
func NewLangChain(llm llms.Model, provider Provider) *LangChain {
	return &LangChain{llm: llm, provider: provider}
}

// Generate sends the system instruction and prompt as a two-message chat.
func (l *LangChain) Generate(ctx context.Context, req Request) (Response, error) {
	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemInstruction),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt()),
	}
	opts := []llms.CallOption{
		llms.WithTemperature(float64(req.Params.Temperature)),
	}
	if req.Params.MaxOutputTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.Params.MaxOutputTokens))
	}

	resp, err := l.llm.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, FromContext(l.provider, err)
		}
		return Response{}, &Error{Kind: KindTransport, Provider: l.provider, Message: err.Error(), Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return Response{}, nil
	}
	c := resp.Choices[0]
	return Response{Text: strings.TrimSpace(c.Content), FinishReason: c.StopReason}, nil
}
