package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sozercan/instrument-lens/internal/config"
	"google.golang.org/genai"
)

// Gemini uses Google's Gemini API for image analysis.
type Gemini struct {
	client *genai.Client
	cfg    *config.LLMConfig
}

func NewGemini(ctx context.Context, cfg *config.LLMConfig) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.APIEndpoint != "" {
		cc.HTTPOptions.BaseURL = cfg.APIEndpoint
	}
	if cfg.Timeout > 0 {
		cc.HTTPOptions.Timeout = genai.Ptr(cfg.Timeout)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

func (g *Gemini) Analyze(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	options := &Options{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}
	for _, opt := range opts {
		opt(options)
	}

	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(options.MaxTokens),
	}
	if options.Temperature > 0 {
		genConfig.Temperature = genai.Ptr(float32(options.Temperature))
	}

	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			genConfig.SystemInstruction = genai.NewContentFromText(m.Text(), genai.RoleUser)
			continue
		}

		parts, err := toGeminiParts(m.Parts)
		if err != nil {
			return nil, err
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
	}

	result, err := g.client.Models.GenerateContent(ctx, options.Model, contents, genConfig)
	if err != nil {
		return nil, geminiUpstreamError(err)
	}

	response := &Response{
		Content: result.Text(),
		Model:   options.Model,
	}
	if result.UsageMetadata != nil {
		response.Usage = Usage{
			PromptTokens:     int64(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return response, nil
}

func toGeminiParts(parts []Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for i, p := range parts {
		if !p.IsImage() {
			out = append(out, genai.NewPartFromText(p.Text))
			continue
		}

		mimeType, data, err := decodeDataURL(p.ImageURL)
		switch {
		case err == nil:
			out = append(out, genai.NewPartFromBytes(data, mimeType))
		case errors.Is(err, errNotDataURL):
			out = append(out, genai.NewPartFromURI(p.ImageURL, mimeTypeFromURL(p.ImageURL)))
		default:
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
	}
	return out, nil
}

func geminiUpstreamError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &UpstreamError{Err: err}
	}

	// Gemini error bodies have the shape {"error": {...}}; rebuild it since
	// the SDK does not keep the raw body.
	body, marshalErr := json.Marshal(map[string]genai.APIError{"error": apiErr})
	if marshalErr != nil {
		body = []byte(apiErr.Message)
	}
	return &UpstreamError{StatusCode: apiErr.Code, Body: string(body), Err: err}
}
