package mail

import (
	"strings"
	"time"
)

// DisplayMessage is the display-ready projection consumed by presentation
// layers. It never exposes raw internal state.
type DisplayMessage struct {
	ID           string   `json:"id"`
	Date         string   `json:"date"`
	AgeDays      int      `json:"age_days"`
	Sender       string   `json:"sender"`
	Subject      string   `json:"subject"`
	Level        Level    `json:"level"`
	Score        float64  `json:"score"`
	Color        string   `json:"color"`
	SafeToDelete bool     `json:"safe_to_delete"`
	Reasons      []string `json:"reasons,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Snippet      string   `json:"snippet,omitempty"`
}

var levelColors = map[Level]string{
	LevelCritical: "bright_red",
	LevelHigh:     "red",
	LevelMedium:   "yellow",
	LevelLow:      "blue",
	LevelSpam:     "dim",
}

// LevelColor returns the presentation color for an importance level.
func LevelColor(l Level) string {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return "white"
}

// FormatForDisplay projects messages into display tuples. Unanalyzed
// messages render with an UNKNOWN level and zero score.
func FormatForDisplay(msgs []*Message) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(msgs))
	for _, m := range msgs {
		d := DisplayMessage{
			ID:      m.ID,
			Date:    displayDate(m.Date),
			AgeDays: m.AgeDays(),
			Sender:  truncate(m.SenderName(), 25),
			Subject: truncate(m.Subject, 50),
			Level:   "UNKNOWN",
			Color:   "white",
			Snippet: truncate(m.Snippet, 100),
		}
		if m.Importance != nil {
			d.Level = m.Importance.Level
			d.Score = m.Importance.Score
			d.Color = LevelColor(m.Importance.Level)
			d.SafeToDelete = m.Importance.SafeToDelete && !m.Importance.SafetyOverride
			if len(m.Importance.Reasons) > 2 {
				d.Reasons = m.Importance.Reasons[:2]
			} else {
				d.Reasons = m.Importance.Reasons
			}
		}
		if m.Summary != nil {
			d.Summary = m.Summary.Summary
		}
		out = append(out, d)
	}
	return out
}

// displayDate renders an ISO-8601 date as "MM/DD HH:MM", falling back to the
// first ten characters for dates without a time component.
func displayDate(date string) string {
	if date == "" {
		return "Unknown"
	}
	if strings.Contains(date, "T") {
		d := strings.ReplaceAll(date, "Z", "+00:00")
		if t, err := time.Parse("2006-01-02T15:04:05-07:00", d); err == nil {
			return t.Format("01/02 15:04")
		}
	}
	if len(date) > 10 {
		return date[:10]
	}
	return date
}
