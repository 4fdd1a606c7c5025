// Package jsonx provides JSON extraction utilities for parsing model responses.
//
// Models often return JSON embedded in prose or wrapped in markdown fences.
// This package locates the JSON payload and decodes it.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extract finds and returns the JSON portion of a response string.
// It handles common response patterns:
// 1. Pure JSON - returns the full response
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. A JSON object or array embedded in text - matched by outermost delimiters
//
// Uses simple delimiter matching, not full JSON scanning; may fail if
// delimiters appear inside strings or are unbalanced.
func extract(response string) (string, error) {
	response = stripCodeFences(response)

	var test interface{}
	if err := json.Unmarshal([]byte(response), &test); err == nil {
		return response, nil
	}

	// Prefer whichever delimiter appears first so that an array of objects
	// is extracted whole instead of as its first element.
	if candidate, ok := sliceBetween(response, "{", "}"); ok {
		if arr, okArr := sliceBetween(response, "[", "]"); okArr &&
			strings.Index(response, "[") < strings.Index(response, "{") {
			if json.Valid([]byte(arr)) {
				return arr, nil
			}
		}
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	if candidate, ok := sliceBetween(response, "[", "]"); ok {
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// sliceBetween returns the substring spanning the first open delimiter and
// the last close delimiter.
func sliceBetween(s, open, close string) (string, bool) {
	start := strings.Index(s, open)
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, close)
	if end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// stripCodeFences removes markdown code block markers from a response.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimSpace(trimmed)
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}

// Decode extracts and parses JSON from a model response into T.
func Decode[T any](response string) (T, error) {
	var result T
	jsonStr, err := extract(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// DecodeInto extracts JSON from a response into a provided pointer.
// Non-generic variant for cases where the target type is dynamic.
func DecodeInto(response string, result interface{}) error {
	jsonStr, err := extract(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonStr), result); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return nil
}

// Extract returns the raw JSON substring of a response.
func Extract(response string) (string, error) {
	return extract(response)
}
