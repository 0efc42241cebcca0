package classify

import (
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/sift/internal/mail"
)

// extractJSON returns the first balanced brace-delimited span in s. The
// generative endpoint wraps its JSON in free text, so we cannot decode the
// reply directly.
func extractJSON(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}

// parseImportance decodes the classifier reply schema. Missing fields get
// defaults; an absent JSON object, a decode failure, or an invalid level
// string is an error and the caller falls back to the heuristic.
func parseImportance(raw string) (*mail.ImportanceScore, error) {
	span, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var body struct {
		Score          *float64 `json:"importance_score"`
		Level          *string  `json:"importance_level"`
		SafeToDelete   *bool    `json:"safe_to_delete"`
		SafetyOverride *bool    `json:"safety_override"`
		Reasons        []string `json:"reasons"`
		Category       *string  `json:"email_category"`
	}
	if err := json.Unmarshal([]byte(span), &body); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	score := 5.0
	if body.Score != nil {
		score = min(max(*body.Score, 0), 10)
	}
	level := mail.LevelMedium
	if body.Level != nil {
		if !mail.ValidLevel(*body.Level) {
			return nil, fmt.Errorf("invalid importance level %q in model reply", *body.Level)
		}
		level = mail.Level(*body.Level)
	}
	safeToDelete := body.SafeToDelete != nil && *body.SafeToDelete
	override := body.SafetyOverride != nil && *body.SafetyOverride
	reasons := body.Reasons
	if len(reasons) == 0 {
		reasons = []string{"model analysis"}
	}
	category := mail.CategoryOther
	if body.Category != nil && *body.Category != "" {
		category = *body.Category
	}

	return mail.NewImportanceScore(score, level, safeToDelete, override, reasons, category)
}

// parseSummary decodes the summarizer reply schema with the same embedded
// JSON discipline as parseImportance.
func parseSummary(raw string) (*mail.Summary, error) {
	span, ok := extractJSON(raw)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var body struct {
		Summary           *string  `json:"summary"`
		KeyPoints         []string `json:"key_points"`
		Sentiment         *string  `json:"sentiment"`
		UrgencyIndicators []string `json:"urgency_indicators"`
	}
	if err := json.Unmarshal([]byte(span), &body); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}

	out := &mail.Summary{
		Sentiment:         "neutral",
		KeyPoints:         []string{},
		UrgencyIndicators: []string{},
	}
	if body.Summary != nil {
		out.Summary = *body.Summary
	}
	if body.KeyPoints != nil {
		out.KeyPoints = body.KeyPoints
	}
	if body.Sentiment != nil && *body.Sentiment != "" {
		out.Sentiment = *body.Sentiment
	}
	if body.UrgencyIndicators != nil {
		out.UrgencyIndicators = body.UrgencyIndicators
	}
	return out, nil
}
