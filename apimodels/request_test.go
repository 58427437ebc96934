package apimodels

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRequest_UnmarshalJSON(t *testing.T) {
	body := `{"images":[
		{"content":"data:image/png;base64,AAA","filename":"front.png"},
		"data:image/jpeg;base64,BBB",
		{"dataUrl":"data:image/png;base64,CCC","filename":"back.png"},
		{"url":"https://example.com/headstock.jpg"}
	]}`

	var req AnalysisRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, []ImageInput{
		{Content: "data:image/png;base64,AAA", Filename: "front.png"},
		{Content: "data:image/jpeg;base64,BBB"},
		{Content: "data:image/png;base64,CCC", Filename: "back.png"},
		{Content: "https://example.com/headstock.jpg"},
	}, req.Images)
}

func TestImageInput_UnmarshalJSON_Invalid(t *testing.T) {
	var req AnalysisRequest
	assert.Error(t, json.Unmarshal([]byte(`{"images":[42]}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"images":[["a"]]}`), &req))
}

func TestImageInput_UnmarshalJSON_Null(t *testing.T) {
	var req AnalysisRequest
	require.NoError(t, json.Unmarshal([]byte(`{"images":[null]}`), &req))
	require.Len(t, req.Images, 1)
	assert.Empty(t, req.Images[0].Content)
}

func TestAnalysisResponse_Result(t *testing.T) {
	resp := AnalysisResponse{Analysis: json.RawMessage(`{"brand":"Fender","finish":null,"extra":true,"metadataSummary":{"colors":null}}`)}

	result, err := resp.Result()
	require.NoError(t, err)
	assert.Equal(t, "Fender", result.Brand)
	assert.Nil(t, result.Finish)
	assert.Nil(t, result.MetadataSummary.Colors)

	_, err = (&AnalysisResponse{Analysis: json.RawMessage(`[]`)}).Result()
	assert.Error(t, err)
}
