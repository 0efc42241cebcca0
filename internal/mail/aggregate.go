package mail

import "sort"

const maxExamplesPerCategory = 3

// categoryLabels maps category tags to the human-readable form used in
// deletion summaries. Unknown categories fall through to a generic label.
var categoryLabels = map[string]string{
	CategoryPromotional: "promotional emails (sales, deals, marketing)",
	CategoryNewsletter:  "newsletters and subscriptions",
	CategorySocial:      "social media notifications",
	CategoryAutomated:   "automated service notifications",
	CategoryFinancial:   "financial notifications",
	CategorySecurity:    "security-related emails",
	CategoryMedical:     "medical communications",
	CategoryPersonal:    "personal communications",
	CategoryOther:       "other emails",
}

// CategoryLabel returns the display label for a category tag.
func CategoryLabel(category string) string {
	if l, ok := categoryLabels[category]; ok {
		return l
	}
	return category + " emails"
}

// Example is one representative (sender, subject) pair within a category.
type Example struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
}

// CategorySummary aggregates the deletion candidates of one category.
type CategorySummary struct {
	Category string    `json:"category"`
	Label    string    `json:"label"`
	Count    int       `json:"count"`
	Examples []Example `json:"examples"`
}

// DeletionSummary is the categorized roll-up of a set of deletion candidates.
// Categories are ordered by count, descending, for presentation.
type DeletionSummary struct {
	Total       int               `json:"total"`
	TotalSizeMB float64           `json:"total_size_mb"`
	Categories  []CategorySummary `json:"categories"`
}

// SummarizeCandidates groups candidates by category, counting occurrences,
// accumulating size, and keeping up to three examples per category.
func SummarizeCandidates(candidates []*Message) *DeletionSummary {
	out := &DeletionSummary{Total: len(candidates), Categories: []CategorySummary{}}
	if len(candidates) == 0 {
		return out
	}

	var totalSize int64
	byCategory := make(map[string]*CategorySummary)
	for _, m := range candidates {
		category := CategoryOther
		if m.Importance != nil && m.Importance.Category != "" {
			category = m.Importance.Category
		}
		cs, ok := byCategory[category]
		if !ok {
			cs = &CategorySummary{
				Category: category,
				Label:    CategoryLabel(category),
				Examples: []Example{},
			}
			byCategory[category] = cs
		}
		cs.Count++
		totalSize += m.SizeEstimate
		if len(cs.Examples) < maxExamplesPerCategory {
			cs.Examples = append(cs.Examples, Example{
				Sender:  m.SenderName(),
				Subject: truncate(m.Subject, 50),
			})
		}
	}

	for _, cs := range byCategory {
		out.Categories = append(out.Categories, *cs)
	}
	// count descending, category name as tiebreaker for stable output
	sort.Slice(out.Categories, func(i, j int) bool {
		if out.Categories[i].Count != out.Categories[j].Count {
			return out.Categories[i].Count > out.Categories[j].Count
		}
		return out.Categories[i].Category < out.Categories[j].Category
	})

	if totalSize > 0 {
		out.TotalSizeMB = float64(totalSize) / (1024 * 1024)
	}
	return out
}

// Stats summarizes importance analysis coverage over a set of messages.
type Stats struct {
	TotalEmails      int           `json:"total_emails"`
	AnalyzedEmails   int           `json:"analyzed_emails"`
	LevelCounts      map[Level]int `json:"level_distribution"`
	SafeToDelete     int           `json:"safe_to_delete"`
	CoveragePercent  float64       `json:"analysis_coverage"`
	HighPriority     int           `json:"high_priority"`
	SafetyOverridden int           `json:"safety_overridden"`
}

// Summarize computes importance statistics for the given messages.
func Summarize(msgs []*Message) *Stats {
	s := &Stats{TotalEmails: len(msgs), LevelCounts: make(map[Level]int)}
	for _, m := range msgs {
		if m.Importance == nil {
			continue
		}
		s.AnalyzedEmails++
		s.LevelCounts[m.Importance.Level]++
		if m.Importance.SafeToDelete && !m.Importance.SafetyOverride {
			s.SafeToDelete++
		}
		if m.Importance.SafetyOverride {
			s.SafetyOverridden++
		}
		if m.HighPriority() {
			s.HighPriority++
		}
	}
	if s.TotalEmails > 0 {
		s.CoveragePercent = float64(s.AnalyzedEmails) / float64(s.TotalEmails) * 100
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
