package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates replies with the Gemini API.
type Gemini struct {
	models *genai.Models
}

// NewGemini creates a Gemini backend. baseURL is optional.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, &Error{Kind: KindAuth, Provider: ProviderGemini, Message: "API key is required"}
	}
	client, err := genai.NewClient(ctx, geminiClientConfig(apiKey, baseURL))
	if err != nil {
		return nil, fmt.Errorf("generation.NewGemini: %w", err)
	}
	return &Gemini{models: client.Models}, nil
}

// geminiClientConfig leaves the HTTP client without a deadline; call
// budgets come from the request context.
func geminiClientConfig(apiKey, baseURL string) *genai.ClientConfig {
	cfg := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	return cfg
}

// Generate sends one request. A blocked prompt is an empty response, not an error.
func (g *Gemini) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Params.Model
	if model == "" {
		model = DefaultParams().Model
	}

	resp, err := g.models.GenerateContent(ctx, model, genai.Text(req.Prompt()), geminiConfig(req))
	if err != nil {
		return Response{}, geminiError(err)
	}
	if resp == nil {
		return Response{}, &Error{Kind: KindMalformed, Provider: ProviderGemini, Message: "empty response body"}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return Response{FinishReason: string(resp.PromptFeedback.BlockReason)}, nil
	}

	out := Response{Text: strings.TrimSpace(resp.Text())}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	return out, nil
}

func geminiConfig(req Request) *genai.GenerateContentConfig {
	p := req.Params
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.Temperature),
		MaxOutputTokens: int32(p.MaxOutputTokens),
		ThinkingConfig:  &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](0)},
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

func geminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return FromContext(ProviderGemini, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindForStatus(apiErr.Code), Provider: ProviderGemini, StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &Error{Kind: KindForStatus(apiErrPtr.Code), Provider: ProviderGemini, StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return &Error{Kind: KindTransport, Provider: ProviderGemini, Message: err.Error(), Err: err}
}
