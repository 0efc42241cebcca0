package analyze

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/sift/internal/classify"
	"github.com/linnemanlabs/sift/internal/mail"
)

// DefaultBatchDelay paces consecutive batches so a local model endpoint is
// not hammered back to back.
const DefaultBatchDelay = 500 * time.Millisecond

// Classifier scores and summarizes single messages. classify.LLM satisfies it.
type Classifier interface {
	Classify(ctx context.Context, m *mail.Message, cfg *mail.AnalysisConfig) *classify.Result
	Summarize(ctx context.Context, m *mail.Message, cfg *mail.AnalysisConfig) *classify.SummaryResult
}

// Notifier receives the finished run, e.g. to post it to Slack.
type Notifier interface {
	Notify(ctx context.Context, run *Run) error
}

// RunHooks are optional observation callbacks; nil fields are skipped.
type RunHooks struct {
	OnStart    func()
	OnComplete func(status Status, duration float64, analyzed, failed int)
}

// Options tune a Service beyond its required dependencies.
type Options struct {
	// BatchDelay is the pause between batches. Zero means DefaultBatchDelay;
	// negative disables pacing.
	BatchDelay time.Duration

	// Progress observes per-message progress, e.g. for logs or a CLI bar.
	Progress ProgressFunc

	// Hooks feed run metrics.
	Hooks RunHooks

	// Notifier receives completed runs.
	Notifier Notifier
}

// Service is the business boundary for analysis runs. At most one run is
// active at a time; a second start request while one is active is skipped.
type Service struct {
	store      mail.Store
	classifier Classifier
	cfg        *mail.AnalysisConfig
	logger     log.Logger
	opts       Options

	mu     sync.Mutex
	runs   map[string]*Run
	active string // run ID, empty when idle
}

// NewService creates a new analysis service.
func NewService(store mail.Store, classifier Classifier, cfg *mail.AnalysisConfig, logger log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.BatchDelay == 0 {
		opts.BatchDelay = DefaultBatchDelay
	}
	return &Service{
		store:      store,
		classifier: classifier,
		cfg:        cfg,
		logger:     logger,
		opts:       opts,
		runs:       make(map[string]*Run),
	}
}

// Start requests a new run over the unanalyzed backlog. If a run is already
// pending or in progress its ID is returned with Skipped set.
func (s *Service) Start(ctx context.Context) (*StartResult, error) {
	s.mu.Lock()
	if s.active != "" {
		id := s.active
		s.mu.Unlock()
		return &StartResult{ID: id, Skipped: true, Reason: "run in progress"}, nil
	}

	id := ulid.Make().String()
	s.runs[id] = &Run{
		ID:        id,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.active = id
	s.mu.Unlock()

	if s.opts.Hooks.OnStart != nil {
		s.opts.Hooks.OnStart()
	}

	// detach from the request context so the run survives the HTTP response
	go s.execute(context.WithoutCancel(ctx), id)

	return &StartResult{ID: id}, nil
}

// Get retrieves a run by ID. Returns a copy.
func (s *Service) Get(_ context.Context, id string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, false
	}
	cp := *run
	if run.Report != nil {
		rp := *run.Report
		cp.Report = &rp
	}
	return &cp, true
}

func (s *Service) execute(ctx context.Context, id string) {
	L := s.logger.With("run_id", id)
	start := time.Now()

	s.setStatus(id, StatusInProgress)

	report, err := s.drain(ctx, L)

	s.mu.Lock()
	run := s.runs[id]
	run.Report = report
	run.CompletedAt = time.Now().UTC()
	run.Duration = time.Since(start).Seconds()
	if err != nil {
		run.Status = StatusFailed
		run.Error = err.Error()
	} else {
		run.Status = StatusComplete
	}
	done := *run
	s.active = ""
	s.mu.Unlock()

	if s.opts.Hooks.OnComplete != nil {
		s.opts.Hooks.OnComplete(done.Status, done.Duration, report.Analyzed, len(report.Errors))
	}

	if err != nil {
		L.Error(ctx, err, "analysis run failed",
			"analyzed", report.Analyzed, "total", report.Total)
	} else {
		L.Info(ctx, "analysis run complete",
			"duration", done.Duration,
			"total", report.Total,
			"analyzed", report.Analyzed,
			"summarized", report.Summarized,
			"errors", len(report.Errors),
		)
	}

	if s.opts.Notifier != nil {
		if nerr := s.opts.Notifier.Notify(ctx, &done); nerr != nil {
			L.Error(ctx, nerr, "run notification failed")
		}
	}
}

// drain works through the unanalyzed backlog in fixed-size batches, messages
// within a batch in parallel. A single message failure is recorded and the
// run continues; only a store read failure or cancellation aborts it.
func (s *Service) drain(ctx context.Context, L log.Logger) (*Report, error) {
	msgs, err := s.store.Unanalyzed(ctx)
	if err != nil {
		return &Report{}, fmt.Errorf("load backlog: %w", err)
	}

	report := &Report{Total: len(msgs)}
	if len(msgs) == 0 {
		s.progress(0, 0, "", StageCompleted)
		return report, nil
	}

	batchSize := s.cfg.MaxBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	L.Info(ctx, "analysis run starting",
		"total", report.Total,
		"batch_size", batchSize,
		"summarize", s.cfg.EnableSummarization,
	)

	var (
		mu       sync.Mutex // guards report counters below
		finished int
	)

	for lo := 0; lo < len(msgs); lo += batchSize {
		if lo > 0 && s.opts.BatchDelay > 0 {
			select {
			case <-time.After(s.opts.BatchDelay):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		hi := min(lo+batchSize, len(msgs))

		var wg sync.WaitGroup
		for _, m := range msgs[lo:hi] {
			wg.Add(1)
			go func(m *mail.Message) {
				defer wg.Done()

				mu.Lock()
				current := finished
				mu.Unlock()

				summarized, err := s.analyzeOne(ctx, m, current, report.Total)

				mu.Lock()
				defer mu.Unlock()
				finished++
				if err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", m.ID, err))
					s.progress(finished, report.Total, m.Subject, StageError)
					return
				}
				report.Analyzed++
				if summarized {
					report.Summarized++
				}
				s.progress(finished, report.Total, m.Subject, StageCompleted)
			}(m)
		}
		wg.Wait()

		L.Info(ctx, "batch complete",
			"done", min(hi, len(msgs)),
			"total", report.Total,
			"errors", len(report.Errors),
		)
	}

	s.progress(report.Total, report.Total, "", StageCompleted)
	return report, nil
}

// analyzeOne classifies, optionally summarizes, and persists one message.
// When summarization is enabled both calls run concurrently; the save waits
// for both.
func (s *Service) analyzeOne(ctx context.Context, m *mail.Message, current, total int) (summarized bool, err error) {
	s.progress(current, total, m.Subject, StageAnalyzing)

	var sum *mail.Summary
	var wg sync.WaitGroup
	if s.cfg.EnableSummarization {
		s.progress(current, total, m.Subject, StageSummarizing)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sum = s.classifier.Summarize(ctx, m, s.cfg).Summary
		}()
		summarized = true
	}
	res := s.classifier.Classify(ctx, m, s.cfg)
	wg.Wait()

	s.progress(current, total, m.Subject, StageSaving)
	ok, err := s.store.UpdateAnalysis(ctx, m.ID, res.Score, sum)
	if err != nil {
		return false, fmt.Errorf("save analysis: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("message vanished from store")
	}
	return summarized, nil
}

func (s *Service) setStatus(id string, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[id]; ok {
		run.Status = status
	}
}

func (s *Service) progress(current, total int, label, stage string) {
	if s.opts.Progress != nil {
		s.opts.Progress(current, total, label, stage)
	}
}
