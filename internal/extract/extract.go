// Package extract pulls a single JSON object out of free-form model output.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when the text holds no parseable JSON object.
var ErrNotFound = errors.New("no JSON object found")

// Object returns the JSON object embedded in text.
//
// The text between the first '{' and the last '}' is tried first. If that
// slice does not parse, the first complete JSON value starting at the first
// '{' is decoded instead, which copes with trailing prose that contains a
// stray '}'. Arrays and scalars are never returned. Invalid UTF-8 inside
// string values is replaced with U+FFFD.
func Object(text string) (json.RawMessage, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 {
		return nil, fmt.Errorf("%w: no braces in text", ErrNotFound)
	}
	if end < start {
		return nil, fmt.Errorf("%w: closing brace precedes opening brace", ErrNotFound)
	}

	candidate := text[start : end+1]
	if isObject(candidate) {
		return json.RawMessage(strings.ToValidUTF8(candidate, replacement)), nil
	}

	if obj, ok := firstValue(text[start:]); ok {
		return bytes.ToValidUTF8(obj, []byte(replacement)), nil
	}

	return nil, fmt.Errorf("%w: %q is not a valid JSON object", ErrNotFound, truncate(candidate, 200))
}

const replacement = "\uFFFD"

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// firstValue decodes the leading JSON value of s. The decoder tracks string
// and escape state, so braces inside string literals do not end the value.
func firstValue(s string) (json.RawMessage, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, false
	}
	return raw, true
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
