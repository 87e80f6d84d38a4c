package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MalformedResponseError is raised when no parseable structure can be
// recovered from a model response. It carries a truncated preview of the raw
// text for diagnostics.
type MalformedResponseError struct {
	Preview string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("could not parse JSON from response: %v", e.Err)
	}
	return "could not parse JSON from response"
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

const previewLimit = 500

var (
	trailingCommaObj = regexp.MustCompile(`,\s*}`)
	trailingCommaArr = regexp.MustCompile(`,\s*]`)
	greedyObject     = regexp.MustCompile(`(?s)\{.*\}`)
)

// Extract parses a free-text model response into a structured record.
//
// Fallback chain: a ```json fenced block if present, else any fenced block,
// else the whole trimmed text. The candidate has embedded newlines collapsed
// and trailing commas stripped before parsing. If that fails, a greedy
// brace-delimited match over the original text is cleaned and parsed once
// more. Model output is not guaranteed to be strictly valid JSON or to wrap
// it consistently, so the extractor is maximally tolerant without ever
// fabricating data.
func Extract(raw string) (map[string]any, error) {
	candidate := selectCandidate(raw)

	record, err := parseCleaned(candidate)
	if err == nil {
		return record, nil
	}
	firstErr := err

	if match := greedyObject.FindString(raw); match != "" {
		if record, err := parseCleaned(match); err == nil {
			return record, nil
		}
	}

	return nil, &MalformedResponseError{Preview: preview(raw), Err: firstErr}
}

// DecodeInto maps an extracted record into a typed struct.
func DecodeInto[T any](record map[string]any) (*T, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode record: %w", err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return &out, nil
}

func selectCandidate(raw string) string {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		rest := raw[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return strings.TrimSpace(raw)
}

func parseCleaned(candidate string) (map[string]any, error) {
	cleaned := strings.ReplaceAll(candidate, "\n", " ")
	cleaned = trailingCommaObj.ReplaceAllString(cleaned, "}")
	cleaned = trailingCommaArr.ReplaceAllString(cleaned, "]")

	var record map[string]any
	if err := json.Unmarshal([]byte(cleaned), &record); err != nil {
		return nil, err
	}
	return record, nil
}

func preview(raw string) string {
	if len(raw) > previewLimit {
		return raw[:previewLimit]
	}
	return raw
}
