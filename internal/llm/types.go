package llm

import (
	"context"
	"strings"
)

type Provider interface {
	// Analyze sends the conversation to the model and returns its reply
	Analyze(ctx context.Context, messages []Message, opts ...Option) (*Response, error)
}

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Part is one piece of message content: either text or an image reference.
type Part struct {
	Text     string
	ImageURL string
}

func (p Part) IsImage() bool {
	return p.ImageURL != ""
}

func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart references an image by data URL or remote URL.
func ImagePart(url string) Part {
	return Part{ImageURL: url}
}

type Message struct {
	Role  Role
	Parts []Part
}

func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart(text)}}
}

func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// Text joins the text parts of the message.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if !p.IsImage() {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.IsImage() {
			return true
		}
	}
	return false
}

type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

type Option func(*Options)

type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

func WithModel(model string) Option {
	return func(o *Options) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

type Response struct {
	Content string
	Model   string
	Usage   Usage
}
