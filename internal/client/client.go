// Package client talks to a running instrument-lens proxy.
package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sozercan/instrument-lens/apimodels"
)

const DefaultBaseURL = "http://localhost:8000"

type ClientOpts struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	httpClient *resty.Client
	baseURL    string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: DefaultBaseURL}
	if opts.BaseURL != "" {
		c.baseURL = opts.BaseURL
	}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		c.httpClient.SetTimeout(opts.Timeout)
	}

	return &c
}

// APIError is a non-2xx reply from the proxy.
type APIError struct {
	StatusCode int
	Response   apimodels.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("proxy returned %d: %s", e.StatusCode, e.Response.Error)
	if e.Response.Type != "" {
		msg += " (" + e.Response.Type + ")"
	}
	if e.Response.Details != "" {
		msg += ": " + e.Response.Details
	}
	return msg
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	return c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetResult(result).
		SetError(&apimodels.ErrorResponse{})
}

// Analyze posts the images to /analyze and returns the aggregated analysis.
func (c *Client) Analyze(ctx context.Context, images []apimodels.ImageInput) (*apimodels.AnalysisResponse, error) {
	result := &apimodels.AnalysisResponse{}

	_, err := handleError(c.req(ctx, result).
		SetHeader("Content-Type", "application/json").
		SetBody(apimodels.AnalysisRequest{Images: images}).
		Post("/analyze"))
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Client) Health(ctx context.Context) (*apimodels.HealthResponse, error) {
	result := &apimodels.HealthResponse{}

	_, err := handleError(c.req(ctx, result).Get("/health"))
	if err != nil {
		return nil, err
	}

	return result, nil
}

// handleError turns failing responses (>399 status code) into errors. Without
// this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if !res.IsError() {
		return res, nil
	}

	apiErr := &APIError{StatusCode: res.StatusCode()}
	if body, ok := res.Error().(*apimodels.ErrorResponse); ok && body.Error != "" {
		apiErr.Response = *body
	} else {
		apiErr.Response.Error = http.StatusText(res.StatusCode())
	}
	return res, apiErr
}

// ImageFromFile reads an image file into a data URL carrying its filename.
func ImageFromFile(path string) (apimodels.ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return apimodels.ImageInput{}, fmt.Errorf("reading image: %w", err)
	}
	return ImageFromBytes(filepath.Base(path), data), nil
}

// ImageFromBytes encodes raw image bytes as a data URL, sniffing the media
// type from the content.
func ImageFromBytes(filename string, data []byte) apimodels.ImageInput {
	mimeType := http.DetectContentType(data)
	return apimodels.ImageInput{
		Content:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Filename: filename,
	}
}
