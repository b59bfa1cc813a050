package enrichment

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseable marks model output that could not be decoded. The inline
// pipeline downgrades it to an empty result; explicit regenerate calls
// surface it.
var ErrUnparseable = errors.New("unparseable model output")

type modelPayload struct {
	Translation string   `json:"translation"`
	Suggestions []string `json:"suggestions"`
	Tags        []string `json:"tags"`
}

// parsePayload decodes model output defensively: code fences and prose
// around the JSON object are tolerated, anything worse fails with
// ErrUnparseable.
func parsePayload(raw string) (*modelPayload, error) {
	candidate := strings.TrimSpace(raw)
	candidate = strings.TrimPrefix(candidate, "```json")
	candidate = strings.TrimPrefix(candidate, "```")
	candidate = strings.TrimSuffix(candidate, "```")
	candidate = strings.TrimSpace(candidate)

	var payload modelPayload
	if err := json.Unmarshal([]byte(candidate), &payload); err == nil {
		return sanitize(&payload), nil
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(candidate[start:end+1]), &payload); err == nil {
			return sanitize(&payload), nil
		}
	}
	return nil, ErrUnparseable
}

func sanitize(payload *modelPayload) *modelPayload {
	payload.Suggestions = dropEmpty(payload.Suggestions)
	payload.Tags = dropEmpty(payload.Tags)
	payload.Translation = strings.TrimSpace(payload.Translation)
	return payload
}

func dropEmpty(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
