package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sozercan/instrument-lens/apimodels"
	"github.com/sozercan/instrument-lens/internal/config"
	"github.com/sozercan/instrument-lens/internal/extract"
	"github.com/sozercan/instrument-lens/internal/llm"
)

const expectedShape = "expected a JSON body of the form { images: [{ content: string, filename?: string }] }"

type Analyzer struct {
	llmProvider llm.Provider
	cfg         config.AnalyzerConfig
}

// New creates an analyzer. A nil provider means no credential is configured
// and every call fails with a configuration error.
func New(llmProvider llm.Provider, cfg config.AnalyzerConfig) *Analyzer {
	return &Analyzer{
		llmProvider: llmProvider,
		cfg:         cfg,
	}
}

// Ready reports whether the analyzer can reach a model.
func (a *Analyzer) Ready() bool {
	return a.llmProvider != nil
}

// Validate checks that the request carries between one and the configured
// maximum of image references.
func (a *Analyzer) Validate(req apimodels.AnalysisRequest) error {
	if len(req.Images) == 0 {
		return validationError("missing or empty images field: " + expectedShape)
	}
	if a.cfg.MaxImages > 0 && len(req.Images) > a.cfg.MaxImages {
		return validationError(fmt.Sprintf("too many images: got %d, at most %d allowed", len(req.Images), a.cfg.MaxImages))
	}
	for i, img := range req.Images {
		if strings.TrimSpace(img.Content) == "" {
			return validationError(fmt.Sprintf("images[%d] has no image content: %s", i, expectedShape))
		}
	}
	return nil
}

// DecodeRequest parses a raw request body into an AnalysisRequest.
func DecodeRequest(body []byte) (apimodels.AnalysisRequest, error) {
	var req apimodels.AnalysisRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, &Error{
			Kind:       KindValidation,
			Message:    "invalid request body: " + expectedShape,
			StatusCode: http.StatusBadRequest,
			Err:        err,
		}
	}
	return req, nil
}

func missingCredential() *Error {
	return &Error{
		Kind:       KindConfiguration,
		Message:    "server is missing the model API credential",
		StatusCode: http.StatusInternalServerError,
		Err:        llm.ErrMissingCredential,
	}
}

// AnalyzeBody decodes a raw request body and analyzes it. Without a
// credential it fails before looking at the body.
func (a *Analyzer) AnalyzeBody(ctx context.Context, body []byte) (*apimodels.AnalysisResponse, error) {
	if !a.Ready() {
		return nil, missingCredential()
	}

	req, err := DecodeRequest(body)
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, req)
}

// Analyze runs one request: a direct analysis call and, when its reply holds
// no JSON object, a single reformat call.
func (a *Analyzer) Analyze(ctx context.Context, req apimodels.AnalysisRequest) (*apimodels.AnalysisResponse, error) {
	if !a.Ready() {
		return nil, missingCredential()
	}

	if err := a.Validate(req); err != nil {
		return nil, err
	}

	filenames := Filenames(req.Images)
	slog.Info("Starting analysis", "images", len(req.Images), "filenames", filenames)
	startTime := time.Now()

	resp, err := a.llmProvider.Analyze(ctx, []llm.Message{BuildPrompt(req.Images)})
	if err != nil {
		slog.Error("Model analysis call failed", "error", err)
		return nil, modelError(KindUpstream, "model API request failed", err)
	}

	analysis, err := extract.Object(resp.Content)
	if err == nil {
		slog.Info("Analysis completed",
			"duration", time.Since(startTime),
			"model", resp.Model,
			"tokens", resp.Usage.TotalTokens,
			"reformatted", false,
		)
		return &apimodels.AnalysisResponse{Analysis: analysis}, nil
	}

	slog.Warn("Model reply holds no JSON object, requesting reformat", "error", err)
	slog.Debug("Unparseable model reply", "reply", resp.Content)

	analysis, usage, err := a.reformat(ctx, filenames, resp.Content)
	if err != nil {
		return nil, err
	}

	slog.Info("Analysis completed",
		"duration", time.Since(startTime),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens+usage.TotalTokens,
		"reformatted", true,
	)
	return &apimodels.AnalysisResponse{Analysis: analysis}, nil
}

// reformat asks the model to convert its own reply into JSON. It runs at most
// once per request.
func (a *Analyzer) reformat(ctx context.Context, filenames []string, reply string) (json.RawMessage, llm.Usage, error) {
	resp, err := a.llmProvider.Analyze(ctx, BuildReformatPrompt(filenames, reply),
		llm.WithModel(a.cfg.ReformatModel),
		llm.WithMaxTokens(a.cfg.ReformatMaxTokens),
	)
	if err != nil {
		slog.Error("Reformat call failed", "error", err)
		return nil, llm.Usage{}, modelError(KindFormatter, "model API reformat request failed", err)
	}

	analysis, err := extract.Object(resp.Content)
	if err != nil {
		slog.Error("Reformatted reply holds no JSON object", "error", err)
		slog.Debug("Unparseable reformatted reply", "reply", resp.Content)
		return nil, resp.Usage, &Error{
			Kind:       KindExtraction,
			Message:    "model response could not be parsed as a JSON object",
			StatusCode: http.StatusInternalServerError,
			Err:        err,
		}
	}
	return analysis, resp.Usage, nil
}
