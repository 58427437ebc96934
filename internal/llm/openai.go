package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/sozercan/instrument-lens/internal/config"
)

var errNoChoices = errors.New("model returned no choices")

// OpenAI client implementation, also used for Azure OpenAI deployments
type OpenAI struct {
	client openai.Client
	cfg    *config.LLMConfig
}

func NewOpenAI(cfg *config.LLMConfig) (*OpenAI, error) {
	// Retries are handled by WithRetry so every provider behaves the same
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	switch cfg.Provider {
	case config.ProviderAzure:
		opts = append(opts,
			azure.WithEndpoint(cfg.APIEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	default: // "openai"
		opts = append(opts,
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.APIEndpoint),
		)
	}

	return &OpenAI{
		client: openai.NewClient(opts...),
		cfg:    cfg,
	}, nil
}

func (o *OpenAI) Analyze(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	options := &Options{
		Model:       o.cfg.Model,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
	for _, opt := range opts {
		opt(options)
	}

	params := openai.ChatCompletionNewParams{
		Model:     options.Model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: openai.Int(options.MaxTokens),
	}
	if options.Temperature > 0 {
		params.Temperature = openai.Float(options.Temperature)
	}

	var failed failedResponse
	resp, err := o.client.Chat.Completions.New(ctx, params, option.WithMiddleware(captureFailure(&failed)))
	if err != nil {
		return nil, openAIUpstreamError(err, failed)
	}

	if len(resp.Choices) == 0 {
		return nil, errNoChoices
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			out = append(out, openai.SystemMessage(m.Text()))
			continue
		}

		if !m.HasImages() {
			out = append(out, openai.UserMessage(m.Text()))
			continue
		}

		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.IsImage() {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: p.ImageURL,
				}))
			} else {
				parts = append(parts, openai.TextContentPart(p.Text))
			}
		}
		out = append(out, openai.UserMessage(parts))
	}
	return out
}

type failedResponse struct {
	status int
	body   []byte
}

// captureFailure keeps the status and raw body of a failed response so they
// can be forwarded to the caller unchanged. The SDK only retains the "error"
// member of JSON bodies and drops non-JSON bodies entirely.
func captureFailure(dst *failedResponse) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		res, err := next(req)
		if err != nil || res == nil || res.StatusCode < http.StatusBadRequest {
			return res, err
		}

		body, readErr := io.ReadAll(res.Body)
		res.Body.Close()
		dst.status = res.StatusCode
		dst.body = body
		res.Body = io.NopCloser(bytes.NewReader(body))
		if readErr != nil {
			return res, readErr
		}
		return res, nil
	}
}

func openAIUpstreamError(err error, failed failedResponse) error {
	upstream := &UpstreamError{StatusCode: failed.status, Body: string(failed.body), Err: err}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		upstream.StatusCode = apierr.StatusCode
		if upstream.Body == "" {
			upstream.Body = apierr.RawJSON()
		}
	}
	return upstream
}
