// Package slack posts analysis run reports to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/analyze"
	"github.com/linnemanlabs/sift/internal/mail"
)

const (
	maxErrorLines = 10
	httpTimeout   = 10 * time.Second
)

// Notifier sends run reports to a Slack webhook. It satisfies
// analyze.Notifier.
type Notifier struct {
	webhookURL string
	client     *http.Client

	store    mail.Store
	minScore float64
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// WithDeletionSummary adds a categorized deletion-candidate section to
// notifications, queried from store at the given score ceiling.
func (n *Notifier) WithDeletionSummary(store mail.Store, minScore float64) *Notifier {
	n.store = store
	n.minScore = minScore
	return n
}

// Notify posts a finished analysis run to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, run *analyze.Run) error {
	if n.webhookURL == "" {
		return nil
	}

	// A failed candidate query degrades the notification, it never blocks it.
	var ds *mail.DeletionSummary
	if n.store != nil && run.Status == analyze.StatusComplete {
		if cands, err := n.store.Candidates(ctx, n.minScore); err == nil {
			ds = mail.SummarizeCandidates(cands)
		}
	}

	msg := buildMessage(run, ds)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(run *analyze.Run, ds *mail.DeletionSummary) map[string]any {
	blocks := []map[string]any{
		headerBlock(run),
		{"type": "divider"},
		fieldsBlock(run),
	}
	if ds != nil && ds.Total > 0 {
		blocks = append(blocks, map[string]any{"type": "divider"}, candidatesBlock(ds))
	}
	if eb := errorsBlock(run); eb != nil {
		blocks = append(blocks, map[string]any{"type": "divider"}, eb)
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(run))

	return map[string]any{"blocks": blocks}
}

func headerBlock(run *analyze.Run) map[string]any {
	title := "Backlog Analysis Complete"
	if run.Status == analyze.StatusFailed {
		title = "Backlog Analysis Failed"
	}
	text := fmt.Sprintf("%s %s", statusEmoji(run), title)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(run *analyze.Run) map[string]any {
	report := run.Report
	if report == nil {
		report = &analyze.Report{}
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", run.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", run.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Backlog:* %d", report.Total),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Analyzed:* %d", report.Analyzed),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summarized:* %d", report.Summarized),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Errors:* %d", len(report.Errors)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

// candidatesBlock summarizes what is now safe to delete, one line per
// category in count-descending order.
func candidatesBlock(ds *mail.DeletionSummary) map[string]any {
	lines := []string{fmt.Sprintf("*Deletion candidates:* %d (%.1f MB)", ds.Total, ds.TotalSizeMB)}
	for _, c := range ds.Categories {
		lines = append(lines, fmt.Sprintf("• %d %s", c.Count, c.Label))
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": strings.Join(lines, "\n"),
		},
	}
}

// errorsBlock lists the first few per-message failures, or nil when clean.
func errorsBlock(run *analyze.Run) map[string]any {
	var lines []string
	if run.Error != "" {
		lines = append(lines, run.Error)
	}
	if run.Report != nil {
		lines = append(lines, run.Report.Errors...)
	}
	if len(lines) == 0 {
		return nil
	}
	if len(lines) > maxErrorLines {
		omitted := len(lines) - maxErrorLines
		lines = append(lines[:maxErrorLines], fmt.Sprintf("_and %d more_", omitted))
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Errors*\n\n%s", strings.Join(lines, "\n")),
		},
	}
}

func contextBlock(run *analyze.Run) map[string]any {
	ts := run.CompletedAt
	if ts.IsZero() {
		ts = run.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("sift • run %s • %s", run.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func statusEmoji(run *analyze.Run) string {
	switch {
	case run.Status == analyze.StatusFailed:
		return "\U0001f534" // red circle
	case run.Report != nil && len(run.Report.Errors) > 0:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}
