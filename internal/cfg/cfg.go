// Package cfg holds the server configuration, bound to flags and filled from
// the environment by go-core's cfg helpers.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/linnemanlabs/sift/internal/mail"
)

// Config adds sift-specific configuration fields to the common
// cfg.Registerable and cfg.Validatable interfaces.
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	OllamaEndpoint  string
	ImportanceModel string
	SummaryModel    string

	DataFile    string
	DatabaseURL string

	BatchSize           int
	BatchDelayMillis    int
	DeletionThreshold   float64
	ImportanceThreshold float64
	VIPSenders          string
	VIPDomains          string

	EnableSummarization  bool
	EnableSafetyOverride bool

	SlackWebhookURL string

	// APIToken guards the HTTP API with bearer auth when set. Empty leaves
	// the API open, which is fine for a local single-user deployment.
	APIToken string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.OllamaEndpoint, "ollama-endpoint", "http://localhost:11434", "Ollama-compatible generative endpoint base URL")
	fs.StringVar(&c.ImportanceModel, "importance-model", "llama3.2", "model used for importance classification")
	fs.StringVar(&c.SummaryModel, "summary-model", "llama3.2", "model used for summarization")
	fs.StringVar(&c.DataFile, "data-file", "emails.json", "path of the JSON email store (ignored with -database-url)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = file store)")
	fs.IntVar(&c.BatchSize, "batch-size", 10, "messages analyzed concurrently per batch (1..100)")
	fs.IntVar(&c.BatchDelayMillis, "batch-delay-millis", 500, "pause between batches in milliseconds (0..60000)")
	fs.Float64Var(&c.DeletionThreshold, "deletion-threshold", -1, "score ceiling for deletion candidates, 0..10 (required)")
	fs.Float64Var(&c.ImportanceThreshold, "importance-threshold", 7, "score floor for high-priority messages (0..10)")
	fs.StringVar(&c.VIPSenders, "vip-senders", "", "comma-separated sender addresses always scored high")
	fs.StringVar(&c.VIPDomains, "vip-domains", "", "comma-separated sender domains always scored high")
	fs.BoolVar(&c.EnableSummarization, "enable-summarization", false, "also generate a summary per analyzed message")
	fs.BoolVar(&c.EnableSafetyOverride, "enable-safety-override", true, "protect security-sensitive messages from deletion regardless of score")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token for API authentication (empty disables auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.OllamaEndpoint == "" {
		errs = append(errs, errors.New("OLLAMA_ENDPOINT is required"))
	}
	if c.ImportanceModel == "" {
		errs = append(errs, errors.New("IMPORTANCE_MODEL is required"))
	}
	if c.SummaryModel == "" {
		errs = append(errs, errors.New("SUMMARY_MODEL is required"))
	}
	if c.DatabaseURL == "" && c.DataFile == "" {
		errs = append(errs, errors.New("DATA_FILE is required without DATABASE_URL"))
	}

	if c.BatchSize < 1 || c.BatchSize > 100 {
		errs = append(errs, fmt.Errorf("invalid BATCH_SIZE %d (must be 1..100)", c.BatchSize))
	}
	if c.BatchDelayMillis < 0 || c.BatchDelayMillis > 60000 {
		errs = append(errs, fmt.Errorf("invalid BATCH_DELAY_MILLIS %d (must be 0..60000)", c.BatchDelayMillis))
	}

	// No safe default exists for what counts as deletable; the operator must
	// choose the ceiling explicitly.
	if !(c.DeletionThreshold >= 0 && c.DeletionThreshold <= 10) {
		errs = append(errs, fmt.Errorf("DELETION_THRESHOLD %v is required and must be 0..10", c.DeletionThreshold))
	}
	if !(c.ImportanceThreshold >= 0 && c.ImportanceThreshold <= 10) {
		errs = append(errs, fmt.Errorf("invalid IMPORTANCE_THRESHOLD %v (must be 0..10)", c.ImportanceThreshold))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// AnalysisConfig projects the server configuration onto the domain analysis
// settings.
func (c *Config) AnalysisConfig() *mail.AnalysisConfig {
	out := &mail.AnalysisConfig{
		ImportanceModel:      c.ImportanceModel,
		SummaryModel:         c.SummaryModel,
		VIPSenders:           splitList(c.VIPSenders),
		VIPDomains:           splitList(c.VIPDomains),
		ImportanceThreshold:  c.ImportanceThreshold,
		DeletionThreshold:    c.DeletionThreshold,
		MaxBatchSize:         c.BatchSize,
		EnableSafetyOverride: c.EnableSafetyOverride,
		EnableSummarization:  c.EnableSummarization,
	}
	out.Normalize()
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
