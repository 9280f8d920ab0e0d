package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var (
	// Matches ```json\n{...}\n```, ```{...}```, ``` json{...}``` and similar.
	codeFenceStartRegex = regexp.MustCompile(`(?s)^` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}\s*$`)
	codeFenceAnyRegex   = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)
	objectRegex        = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// maxResponseSize bounds the text ParsePlan will look at.
const maxResponseSize = 1 << 20

// ParsePlan extracts a plan from a model response. It accepts bare JSON, JSON wrapped in
// a markdown code fence, JSON with trailing commas and JSON surrounded by prose.
func ParsePlan(text string) (*Plan, error) {
	if len(text) > maxResponseSize {
		return nil, fmt.Errorf("response exceeds size limit (%d > %d bytes)", len(text), maxResponseSize)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("empty response")
	}

	candidates := []string{trimmed}
	withoutFences := removeCodeFences(trimmed)
	if withoutFences != trimmed {
		candidates = append(candidates, withoutFences)
	}
	cleaned := trailingCommaRegex.ReplaceAllString(withoutFences, "$1")
	candidates = append(candidates, cleaned)
	if extracted := objectRegex.FindString(cleaned); extracted != "" {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	for i, c := range candidates {
		var plan Plan
		err := json.Unmarshal([]byte(c), &plan)
		if err == nil {
			if i > 0 {
				slog.Debug("plan response needed cleanup", "strategy", i)
			}
			if plan.Phases == nil {
				return nil, errors.New(`response has no "phases" array`)
			}
			return &plan, nil
		}
		lastErr = err
	}

	slog.Debug("failed to parse plan response", "error", lastErr, "textPreview", truncate(text, 100))
	return nil, fmt.Errorf("failed to parse plan response: %w", lastErr)
}

func removeCodeFences(text string) string {
	cleaned := codeFenceStartRegex.ReplaceAllString(text, "$1")
	if cleaned == text {
		cleaned = codeFenceAnyRegex.ReplaceAllString(text, "$1")
	}
	if strings.HasPrefix(cleaned, "`") && strings.HasSuffix(cleaned, "`") {
		cleaned = strings.Trim(cleaned, "`")
	}
	return strings.TrimSpace(cleaned)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
