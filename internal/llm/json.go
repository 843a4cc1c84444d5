package llm

import (
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON document out of a model response. Models
// routinely wrap their output in markdown fences or lead with prose, so
// tolerate a fenced block first and fall back to the outermost braces.
func ExtractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", fmt.Errorf("empty model response")
	}

	// Fenced block: ```json ... ``` or plain ``` ... ```
	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			// Drop the language tag line, e.g. "json"
			lang := strings.TrimSpace(rest[:nl])
			if lang == "" || lang == "json" {
				rest = rest[nl+1:]
			}
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if candidate != "" {
				return candidate, nil
			}
		}
	}

	// Outermost object
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		return trimmed[start : end+1], nil
	}

	return "", fmt.Errorf("no JSON object found in model response")
}
