package classify

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/sift/internal/mail"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/classify")

// Sampling options for classification calls. Low temperature keeps the
// analysis consistent; the output budget only needs to cover one JSON object.
const (
	samplingTemperature = 0.1
	samplingTopP        = 0.9
	responseTokens      = 300
	contextWindow       = 2048
)

// Provider is the interface for any generative text backend.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (string, error)
}

// GenerateRequest is the input to a Provider call.
type GenerateRequest struct {
	Model         string
	Prompt        string
	Temperature   float64
	TopP          float64
	MaxTokens     int
	ContextWindow int
}

// Source tags which tier produced a classification result.
type Source string

const (
	// SourceModel means the generative endpoint produced the result.
	SourceModel Source = "model"

	// SourceHeuristic means the pattern-based fallback produced it.
	SourceHeuristic Source = "heuristic"
)

// Result is a classification outcome with its provenance.
type Result struct {
	Score  *mail.ImportanceScore
	Source Source
}

// SummaryResult is a summarization outcome with its provenance.
type SummaryResult struct {
	Summary *mail.Summary
	Source  Source
}

// Hooks are optional observation callbacks; nil fields are skipped.
type Hooks struct {
	OnLLMCall      func(op string, duration float64, ok bool)
	OnClassify     func(source Source, level mail.Level)
	OnSummarize    func(source Source)
	OnParseFailure func(op string)
}

// LLM classifies messages through a generative endpoint, delegating to the
// heuristic on any transport or parse failure. It never returns an error.
type LLM struct {
	provider Provider
	fallback *Heuristic
	logger   log.Logger
	hooks    Hooks
}

// NewLLM creates the model-backed classifier with its heuristic fallback.
func NewLLM(provider Provider, fallback *Heuristic, logger log.Logger, hooks Hooks) *LLM {
	if logger == nil {
		logger = log.Nop()
	}
	return &LLM{
		provider: provider,
		fallback: fallback,
		logger:   logger,
		hooks:    hooks,
	}
}

// Classify scores one message. On any failure the heuristic result is
// returned instead, tagged SourceHeuristic.
func (c *LLM) Classify(ctx context.Context, m *mail.Message, cfg *mail.AnalysisConfig) *Result {
	raw, err := c.generate(ctx, "classify", cfg.ImportanceModel, buildImportancePrompt(m), m.ID)
	if err != nil {
		c.logger.Warn(ctx, "classification call failed, using heuristic",
			"message_id", m.ID, "error", err.Error())
		return c.heuristicResult(m, cfg)
	}

	score, err := parseImportance(raw)
	if err != nil {
		c.logger.Warn(ctx, "unparseable classification reply, using heuristic",
			"message_id", m.ID, "error", err.Error())
		if c.hooks.OnParseFailure != nil {
			c.hooks.OnParseFailure("classify")
		}
		return c.heuristicResult(m, cfg)
	}

	if c.hooks.OnClassify != nil {
		c.hooks.OnClassify(SourceModel, score.Level)
	}
	return &Result{Score: score, Source: SourceModel}
}

// Summarize produces a short summary of one message. On any failure a
// snippet-derived summary is returned, tagged SourceHeuristic.
func (c *LLM) Summarize(ctx context.Context, m *mail.Message, cfg *mail.AnalysisConfig) *SummaryResult {
	raw, err := c.generate(ctx, "summarize", cfg.SummaryModel, buildSummaryPrompt(m), m.ID)
	if err != nil {
		c.logger.Warn(ctx, "summarization call failed, using snippet",
			"message_id", m.ID, "error", err.Error())
		return c.snippetSummary(m)
	}

	sum, err := parseSummary(raw)
	if err != nil {
		c.logger.Warn(ctx, "unparseable summarization reply, using snippet",
			"message_id", m.ID, "error", err.Error())
		if c.hooks.OnParseFailure != nil {
			c.hooks.OnParseFailure("summarize")
		}
		return c.snippetSummary(m)
	}

	if c.hooks.OnSummarize != nil {
		c.hooks.OnSummarize(SourceModel)
	}
	return &SummaryResult{Summary: sum, Source: SourceModel}
}

func (c *LLM) generate(ctx context.Context, op, model, prompt, messageID string) (string, error) {
	ctx, span := tracer.Start(ctx, "llm.generate")
	span.SetAttributes(
		attribute.String("gen_ai.operation.name", op),
		attribute.String("gen_ai.request.model", model),
		attribute.String("sift.message.id", messageID),
	)
	defer span.End()

	start := time.Now()
	raw, err := c.provider.Generate(ctx, &GenerateRequest{
		Model:         model,
		Prompt:        prompt,
		Temperature:   samplingTemperature,
		TopP:          samplingTopP,
		MaxTokens:     responseTokens,
		ContextWindow: contextWindow,
	})
	if c.hooks.OnLLMCall != nil {
		c.hooks.OnLLMCall(op, time.Since(start).Seconds(), err == nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return raw, nil
}

func (c *LLM) heuristicResult(m *mail.Message, cfg *mail.AnalysisConfig) *Result {
	score := c.fallback.Classify(m, cfg)
	if c.hooks.OnClassify != nil {
		c.hooks.OnClassify(SourceHeuristic, score.Level)
	}
	return &Result{Score: score, Source: SourceHeuristic}
}

func (c *LLM) snippetSummary(m *mail.Message) *SummaryResult {
	if c.hooks.OnSummarize != nil {
		c.hooks.OnSummarize(SourceHeuristic)
	}
	return &SummaryResult{
		Summary: &mail.Summary{
			Summary:           truncateBody(m.Snippet, 100),
			KeyPoints:         []string{},
			Sentiment:         "unknown",
			UrgencyIndicators: []string{},
		},
		Source: SourceHeuristic,
	}
}
