package mail

import "testing"

func candidate(id, sender, subject, category string, size int64) *Message {
	return &Message{
		ID:           id,
		Sender:       sender,
		Subject:      subject,
		SizeEstimate: size,
		Importance: &ImportanceScore{
			Score:        1,
			Level:        LevelSpam,
			SafeToDelete: true,
			Category:     category,
		},
	}
}

func TestSummarizeCandidates_Empty(t *testing.T) {
	t.Parallel()

	s := SummarizeCandidates(nil)
	if s.Total != 0 {
		t.Errorf("Total = %d, want 0", s.Total)
	}
	if s.Categories == nil {
		t.Error("Categories should be empty, not nil")
	}
}

func TestSummarizeCandidates_GroupsAndSorts(t *testing.T) {
	t.Parallel()

	msgs := []*Message{
		candidate("1", "deals@amazon.com", "50% off", CategoryPromotional, 1024),
		candidate("2", "offers@shop.com", "Sale", CategoryPromotional, 1024),
		candidate("3", "digest@news.com", "Weekly digest", CategoryNewsletter, 2048),
		candidate("4", "promo@store.com", "Deal", CategoryPromotional, 1024),
	}

	s := SummarizeCandidates(msgs)

	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if len(s.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(s.Categories))
	}
	// largest category first
	if s.Categories[0].Category != CategoryPromotional || s.Categories[0].Count != 3 {
		t.Errorf("first category = %+v, want promotional count 3", s.Categories[0])
	}
	if s.Categories[1].Category != CategoryNewsletter {
		t.Errorf("second category = %q, want newsletter", s.Categories[1].Category)
	}
	if s.Categories[0].Label != CategoryLabel(CategoryPromotional) {
		t.Errorf("label = %q, want %q", s.Categories[0].Label, CategoryLabel(CategoryPromotional))
	}
}

func TestSummarizeCandidates_CapsExamples(t *testing.T) {
	t.Parallel()

	var msgs []*Message
	for i := range 10 {
		msgs = append(msgs, candidate(string(rune('a'+i)), "deals@shop.com", "Sale", CategoryPromotional, 0))
	}

	s := SummarizeCandidates(msgs)
	if got := len(s.Categories[0].Examples); got != maxExamplesPerCategory {
		t.Errorf("examples = %d, want %d", got, maxExamplesPerCategory)
	}
}

func TestSummarizeCandidates_UnknownCategoryAndSize(t *testing.T) {
	t.Parallel()

	msgs := []*Message{
		candidate("1", "a@b.com", "s", "mystery", 2 * 1024 * 1024),
		{ID: "2", Sender: "c@d.com", SizeEstimate: 1, Importance: &ImportanceScore{SafeToDelete: true}},
	}

	s := SummarizeCandidates(msgs)

	labels := map[string]string{}
	for _, c := range s.Categories {
		labels[c.Category] = c.Label
	}
	if labels["mystery"] != "mystery emails" {
		t.Errorf("unknown category label = %q, want %q", labels["mystery"], "mystery emails")
	}
	if _, ok := labels[CategoryOther]; !ok {
		t.Error("empty category should fall back to other")
	}
	if s.TotalSizeMB < 2.0 || s.TotalSizeMB > 2.1 {
		t.Errorf("TotalSizeMB = %v, want about 2.0", s.TotalSizeMB)
	}
}

func TestSummarize_Stats(t *testing.T) {
	t.Parallel()

	msgs := []*Message{
		{ID: "1", Importance: &ImportanceScore{Level: LevelCritical, SafetyOverride: true, SafeToDelete: false}},
		{ID: "2", Importance: &ImportanceScore{Level: LevelSpam, SafeToDelete: true}},
		{ID: "3", Importance: &ImportanceScore{Level: LevelHigh}},
		{ID: "4"},
	}

	s := Summarize(msgs)

	if s.TotalEmails != 4 || s.AnalyzedEmails != 3 {
		t.Errorf("totals = %d/%d, want 4/3", s.TotalEmails, s.AnalyzedEmails)
	}
	if s.SafeToDelete != 1 {
		t.Errorf("SafeToDelete = %d, want 1", s.SafeToDelete)
	}
	if s.HighPriority != 2 {
		t.Errorf("HighPriority = %d, want 2", s.HighPriority)
	}
	if s.SafetyOverridden != 1 {
		t.Errorf("SafetyOverridden = %d, want 1", s.SafetyOverridden)
	}
	if s.CoveragePercent != 75 {
		t.Errorf("CoveragePercent = %v, want 75", s.CoveragePercent)
	}
	if s.LevelCounts[LevelCritical] != 1 || s.LevelCounts[LevelSpam] != 1 || s.LevelCounts[LevelHigh] != 1 {
		t.Errorf("LevelCounts = %v", s.LevelCounts)
	}
}

func TestFormatForDisplay(t *testing.T) {
	t.Parallel()

	msgs := []*Message{
		{
			ID:      "1",
			Sender:  "Jane Roe <jane@example.com>",
			Subject: "Quarterly report",
			Date:    "2024-03-01T09:30:00Z",
			Importance: &ImportanceScore{
				Score:   8,
				Level:   LevelHigh,
				Reasons: []string{"a", "b", "c"},
			},
			Summary: &Summary{Summary: "report attached"},
		},
		{ID: "2", Sender: "bare@example.com", Date: "2024-03-02"},
	}

	out := FormatForDisplay(msgs)
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}

	d := out[0]
	if d.Sender != "Jane Roe" {
		t.Errorf("sender = %q, want %q", d.Sender, "Jane Roe")
	}
	if d.Date != "03/01 09:30" {
		t.Errorf("date = %q, want %q", d.Date, "03/01 09:30")
	}
	if d.AgeDays <= 0 {
		t.Errorf("age = %d days, want positive for a past date", d.AgeDays)
	}
	if d.Level != LevelHigh || d.Color != "red" {
		t.Errorf("level/color = %q/%q", d.Level, d.Color)
	}
	if len(d.Reasons) != 2 {
		t.Errorf("reasons = %v, want top 2", d.Reasons)
	}
	if d.Summary != "report attached" {
		t.Errorf("summary = %q", d.Summary)
	}

	if out[1].Level != "UNKNOWN" || out[1].Color != "white" {
		t.Errorf("unanalyzed projection = %+v", out[1])
	}
	if out[1].Date != "2024-03-02" {
		t.Errorf("date = %q, want %q", out[1].Date, "2024-03-02")
	}
}
