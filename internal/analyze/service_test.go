package analyze

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/mail"
	"github.com/linnemanlabs/sift/internal/mail/memstore"
)

// fakeClassifier returns canned scores and records which messages it saw.
type fakeClassifier struct {
	mu         sync.Mutex
	classified []string
	summarized []string
	block      chan struct{} // when set, Classify waits on it
}

func (f *fakeClassifier) Classify(_ context.Context, m *mail.Message, _ *mail.AnalysisConfig) *classify.Result {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.classified = append(f.classified, m.ID)
	f.mu.Unlock()
	return &classify.Result{
		Score: &mail.ImportanceScore{
			Score:        2,
			Level:        mail.LevelLow,
			SafeToDelete: true,
			Reasons:      []string{"test"},
			Category:     mail.CategoryPromotional,
		},
		Source: classify.SourceHeuristic,
	}
}

func (f *fakeClassifier) Summarize(_ context.Context, m *mail.Message, _ *mail.AnalysisConfig) *classify.SummaryResult {
	f.mu.Lock()
	f.summarized = append(f.summarized, m.ID)
	f.mu.Unlock()
	return &classify.SummaryResult{
		Summary: &mail.Summary{Summary: "summary of " + m.ID, Sentiment: "neutral"},
		Source:  classify.SourceHeuristic,
	}
}

func (f *fakeClassifier) seen() (classified, summarized int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.classified), len(f.summarized)
}

// failingStore wraps a Store and fails UpdateAnalysis for one id.
type failingStore struct {
	mail.Store
	failID string
}

func (s *failingStore) UpdateAnalysis(ctx context.Context, id string, score *mail.ImportanceScore, sum *mail.Summary) (bool, error) {
	if id == s.failID {
		return false, errors.New("disk full")
	}
	return s.Store.UpdateAnalysis(ctx, id, score, sum)
}

func seedStore(t *testing.T, n int) *memstore.Store {
	t.Helper()
	s := memstore.New()
	msgs := make([]*mail.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, &mail.Message{
			ID:      string(rune('a' + i)),
			Sender:  "someone@example.com",
			Subject: "subject",
		})
	}
	if err := s.Replace(context.Background(), msgs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func testConfig() *mail.AnalysisConfig {
	cfg := &mail.AnalysisConfig{
		ImportanceModel: "test-model",
		SummaryModel:    "test-model",
		MaxBatchSize:    2,
	}
	cfg.Normalize()
	return cfg
}

func waitForRun(t *testing.T, svc *Service, id string) *Run {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := svc.Get(context.Background(), id)
		if !ok {
			t.Fatalf("run %s not found", id)
		}
		if run.Status == StatusComplete || run.Status == StatusFailed {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s did not finish", id)
	return nil
}

func TestStart_AnalyzesBacklog(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 5)
	fc := &fakeClassifier{}
	svc := NewService(store, fc, testConfig(), nil, Options{BatchDelay: -1})

	sr, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sr.Skipped {
		t.Fatal("first start should not be skipped")
	}

	run := waitForRun(t, svc, sr.ID)
	if run.Status != StatusComplete {
		t.Fatalf("status = %q (error %q), want complete", run.Status, run.Error)
	}
	if run.Report.Total != 5 || run.Report.Analyzed != 5 {
		t.Errorf("report = %+v", run.Report)
	}
	if len(run.Report.Errors) != 0 {
		t.Errorf("errors = %v", run.Report.Errors)
	}
	if run.CompletedAt.IsZero() || run.Duration < 0 {
		t.Errorf("run bookkeeping missing: %+v", run)
	}

	un, _ := store.Unanalyzed(context.Background())
	if len(un) != 0 {
		t.Errorf("unanalyzed after run = %d, want 0", len(un))
	}
	meta, _ := store.Metadata(context.Background())
	if meta.AnalyzedCount != 5 {
		t.Errorf("AnalyzedCount = %d, want 5", meta.AnalyzedCount)
	}
}

func TestStart_SecondRunIsIdempotent(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 3)
	fc := &fakeClassifier{}
	svc := NewService(store, fc, testConfig(), nil, Options{BatchDelay: -1})

	sr, _ := svc.Start(context.Background())
	waitForRun(t, svc, sr.ID)

	sr2, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sr2.Skipped {
		t.Fatal("start after completion should not be skipped")
	}
	run2 := waitForRun(t, svc, sr2.ID)
	if run2.Report.Total != 0 || run2.Report.Analyzed != 0 {
		t.Errorf("second run report = %+v, want empty backlog", run2.Report)
	}

	classified, _ := fc.seen()
	if classified != 3 {
		t.Errorf("classifier saw %d messages across both runs, want 3", classified)
	}
}

func TestStart_DedupWhileActive(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 2)
	fc := &fakeClassifier{block: make(chan struct{})}
	svc := NewService(store, fc, testConfig(), nil, Options{BatchDelay: -1})

	sr, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sr2, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sr2.Skipped {
		t.Error("expected second start to be skipped while a run is active")
	}
	if sr2.ID != sr.ID {
		t.Errorf("skipped start returned id %q, want active run %q", sr2.ID, sr.ID)
	}

	close(fc.block)
	waitForRun(t, svc, sr.ID)

	sr3, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sr3.Skipped {
		t.Error("start after the active run finished should not be skipped")
	}
	waitForRun(t, svc, sr3.ID)
}

func TestRun_PerMessageFailureContinues(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 3)
	fc := &fakeClassifier{}
	svc := NewService(&failingStore{Store: store, failID: "b"}, fc, testConfig(), nil, Options{BatchDelay: -1})

	sr, _ := svc.Start(context.Background())
	run := waitForRun(t, svc, sr.ID)

	if run.Status != StatusComplete {
		t.Fatalf("status = %q, want complete despite per-message failure", run.Status)
	}
	if run.Report.Analyzed != 2 {
		t.Errorf("analyzed = %d, want 2", run.Report.Analyzed)
	}
	if len(run.Report.Errors) != 1 {
		t.Fatalf("errors = %v, want one entry", run.Report.Errors)
	}

	un, _ := store.Unanalyzed(context.Background())
	if len(un) != 1 || un[0].ID != "b" {
		t.Errorf("unanalyzed = %v, want just b", un)
	}
}

func TestRun_Summarization(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 2)
	fc := &fakeClassifier{}
	cfg := testConfig()
	cfg.EnableSummarization = true
	svc := NewService(store, fc, cfg, nil, Options{BatchDelay: -1})

	sr, _ := svc.Start(context.Background())
	run := waitForRun(t, svc, sr.ID)

	if run.Report.Summarized != 2 {
		t.Errorf("summarized = %d, want 2", run.Report.Summarized)
	}
	all, _ := store.LoadAll(context.Background())
	for _, m := range all {
		if m.Summary == nil {
			t.Errorf("message %s missing summary", m.ID)
		}
	}
}

func TestRun_SummarizationDisabled(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 2)
	fc := &fakeClassifier{}
	svc := NewService(store, fc, testConfig(), nil, Options{BatchDelay: -1})

	sr, _ := svc.Start(context.Background())
	waitForRun(t, svc, sr.ID)

	_, summarized := fc.seen()
	if summarized != 0 {
		t.Errorf("Summarize called %d times with summarization disabled", summarized)
	}
}

func TestRun_ProgressStages(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 2)
	fc := &fakeClassifier{}

	var mu sync.Mutex
	stages := make(map[string]bool)
	var itemDone int
	var final struct{ current, total int }
	progress := func(current, total int, label, stage string) {
		mu.Lock()
		defer mu.Unlock()
		stages[stage] = true
		if stage == StageCompleted {
			if label != "" {
				itemDone++
				return
			}
			final.current, final.total = current, total
		}
	}

	cfg := testConfig()
	cfg.EnableSummarization = true
	svc := NewService(store, fc, cfg, nil, Options{BatchDelay: -1, Progress: progress})

	sr, _ := svc.Start(context.Background())
	waitForRun(t, svc, sr.ID)

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{StageAnalyzing, StageSummarizing, StageSaving, StageCompleted} {
		if !stages[want] {
			t.Errorf("stage %q never reported", want)
		}
	}
	if itemDone != 2 {
		t.Errorf("per-message completed callbacks = %d, want 2", itemDone)
	}
	if final.current != 2 || final.total != 2 {
		t.Errorf("final progress = %d/%d, want 2/2", final.current, final.total)
	}
}

func TestRun_Hooks(t *testing.T) {
	t.Parallel()

	store := seedStore(t, 2)
	fc := &fakeClassifier{}

	var mu sync.Mutex
	var started int
	var completed []Status
	hooks := RunHooks{
		OnStart: func() { mu.Lock(); started++; mu.Unlock() },
		OnComplete: func(status Status, _ float64, analyzed, failed int) {
			mu.Lock()
			completed = append(completed, status)
			mu.Unlock()
			if analyzed != 2 || failed != 0 {
				t.Errorf("OnComplete analyzed=%d failed=%d", analyzed, failed)
			}
		},
	}
	svc := NewService(store, fc, testConfig(), nil, Options{BatchDelay: -1, Hooks: hooks})

	sr, _ := svc.Start(context.Background())
	waitForRun(t, svc, sr.ID)

	mu.Lock()
	defer mu.Unlock()
	if started != 1 {
		t.Errorf("OnStart called %d times, want 1", started)
	}
	if len(completed) != 1 || completed[0] != StatusComplete {
		t.Errorf("OnComplete calls = %v", completed)
	}
}

func TestGet_UnknownRun(t *testing.T) {
	t.Parallel()

	svc := NewService(memstore.New(), &fakeClassifier{}, testConfig(), nil, Options{})
	if _, ok := svc.Get(context.Background(), "nope"); ok {
		t.Error("expected ok=false for unknown run")
	}
}
