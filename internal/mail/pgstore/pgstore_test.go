package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/linnemanlabs/sift/internal/mail"
	"github.com/linnemanlabs/sift/internal/mail/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("SIFT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SIFT_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := pgstore.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Replace(ctx, nil); err != nil {
		t.Fatalf("reset store: %v", err)
	}
	return s
}

func testMessage(id string) *mail.Message {
	return &mail.Message{
		ID:           id,
		ThreadID:     "t-" + id,
		Sender:       "someone@example.com",
		Subject:      "subject " + id,
		Date:         "2026-08-01T10:00:00Z",
		TextBody:     "body text",
		Snippet:      "body text",
		Labels:       []string{"INBOX"},
		SizeEstimate: 2048,
	}
}

func TestReplaceAndLoadAll(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Replace(ctx, []*mail.Message{testMessage("pg-a"), testMessage("pg-b")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	got := all[0]
	if got.ID != "pg-a" || got.ThreadID != "t-pg-a" || got.Sender != "someone@example.com" {
		t.Errorf("message = %+v", got)
	}
	if len(got.Labels) != 1 || got.Labels[0] != "INBOX" {
		t.Errorf("labels = %v", got.Labels)
	}
	if got.SavedAt.IsZero() {
		t.Error("expected saved_at to be stamped")
	}
}

func TestMergeKeepsPosition(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Replace(ctx, []*mail.Message{testMessage("pg-a"), testMessage("pg-b")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	updated := testMessage("pg-a")
	updated.Subject = "updated"
	if err := s.Merge(ctx, []*mail.Message{updated, testMessage("pg-c")}); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].ID != "pg-a" || all[0].Subject != "updated" {
		t.Errorf("first = %+v, want updated pg-a in place", all[0])
	}
	if all[2].ID != "pg-c" {
		t.Errorf("last = %q, want appended pg-c", all[2].ID)
	}
}

func TestUpdateAnalysisAndQueries(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Replace(ctx, []*mail.Message{testMessage("pg-a"), testMessage("pg-b")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	score := &mail.ImportanceScore{
		Score:        1.5,
		Level:        mail.LevelSpam,
		SafeToDelete: true,
		Reasons:      []string{"promotional"},
		Category:     mail.CategoryPromotional,
	}
	sum := &mail.Summary{Summary: "a promo", Sentiment: "neutral"}

	ok, err := s.UpdateAnalysis(ctx, "pg-a", score, sum)
	if err != nil || !ok {
		t.Fatalf("UpdateAnalysis = %v, %v", ok, err)
	}

	ok, err = s.UpdateAnalysis(ctx, "pg-missing", score, nil)
	if err != nil {
		t.Fatalf("UpdateAnalysis: %v", err)
	}
	if ok {
		t.Error("expected ok=false for unknown id")
	}

	un, err := s.Unanalyzed(ctx)
	if err != nil {
		t.Fatalf("Unanalyzed: %v", err)
	}
	if len(un) != 1 || un[0].ID != "pg-b" {
		t.Errorf("Unanalyzed = %v", un)
	}

	cands, err := s.Candidates(ctx, 3.0)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 1 || cands[0].ID != "pg-a" {
		t.Fatalf("Candidates = %v", cands)
	}
	if cands[0].Importance == nil || cands[0].Importance.AnalyzedAt.IsZero() {
		t.Error("expected analysis with analyzed_at on candidate")
	}
	if cands[0].Summary == nil || cands[0].Summary.Summary != "a promo" {
		t.Errorf("summary = %+v", cands[0].Summary)
	}

	meta, err := s.Metadata(ctx)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if meta.TotalEmails != 2 || meta.AnalyzedCount != 1 {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.LastSync.IsZero() || meta.LastAnalysis.IsZero() {
		t.Errorf("timestamps missing: %+v", meta)
	}
}

func TestCandidates_OverrideExcluded(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	if err := s.Replace(ctx, []*mail.Message{testMessage("pg-a")}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	ok, err := s.UpdateAnalysis(ctx, "pg-a", &mail.ImportanceScore{
		Score:          1.0,
		Level:          mail.LevelCritical,
		SafeToDelete:   true,
		SafetyOverride: true,
		Category:       mail.CategorySecurity,
	}, nil)
	if err != nil || !ok {
		t.Fatalf("UpdateAnalysis = %v, %v", ok, err)
	}

	cands, err := s.Candidates(ctx, 3.0)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("Candidates = %v, want none with the override set", cands)
	}
}
