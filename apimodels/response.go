package apimodels

import "encoding/json"

type AnalysisResponse struct {
	// The extracted analysis object, forwarded as the model produced it
	Analysis json.RawMessage `json:"analysis"`
}

// ErrorResponse is the envelope returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`

	// Upstream response body, when the failure came from the model API
	Details string `json:"details,omitempty"`

	// Error category, e.g. ValidationError or UpstreamError
	Type string `json:"type,omitempty"`
}

type HealthResponse struct {
	OK            bool `json:"ok"`
	HasCredential bool `json:"hasCredential"`
}

// Condition values the model is asked to choose from.
const (
	ConditionFair      = "Fair"
	ConditionGood      = "Good"
	ConditionGreat     = "Great"
	ConditionExcellent = "Excellent"
)

// Conditions lists the condition values from worst to best.
var Conditions = []string{ConditionFair, ConditionGood, ConditionGreat, ConditionExcellent}

// AnalysisResult is the canonical description of the instrument shown in a
// batch of images.
type AnalysisResult struct {
	Brand                     string          `json:"brand"`
	BrandModel                string          `json:"brandModel"`
	Finish                    *string         `json:"finish"`
	MusicalInstrumentCategory string          `json:"musicalInstrumentCategory"`
	Condition                 string          `json:"condition"`
	NotedBlemishes            []string        `json:"notedBlemishes"`
	MetadataSummary           MetadataSummary `json:"metadataSummary"`
}

type MetadataSummary struct {
	SerialNumber   *string  `json:"serialNumber"`
	Colors         []string `json:"colors"`
	Materials      []string `json:"materials"`
	EstimatedValue *string  `json:"estimatedValue"`
}

// Result decodes the forwarded analysis into the canonical schema.
func (r *AnalysisResponse) Result() (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(r.Analysis, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
