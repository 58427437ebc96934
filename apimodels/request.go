package apimodels

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type AnalysisRequest struct {
	// Images to analyze together, in upload order
	Images []ImageInput `json:"images"`
}

type ImageInput struct {
	// Content is a data URL (data:image/png;base64,...) or a remote image URL
	Content string `json:"content"`

	// Filename as chosen by the uploader
	Filename string `json:"filename,omitempty"`
}

// imageObject mirrors the object form of an image entry. dataUrl and url are
// accepted as aliases for content.
type imageObject struct {
	Content  string `json:"content"`
	DataURL  string `json:"dataUrl"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// UnmarshalJSON accepts either a bare string or an object carrying the image
// reference.
func (i *ImageInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = ImageInput{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*i = ImageInput{Content: s}
		return nil
	case '{':
		var obj imageObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		content := obj.Content
		if content == "" {
			content = obj.DataURL
		}
		if content == "" {
			content = obj.URL
		}
		*i = ImageInput{Content: content, Filename: obj.Filename}
		return nil
	default:
		return fmt.Errorf("image entry must be a string or an object, got %s", string(data))
	}
}
