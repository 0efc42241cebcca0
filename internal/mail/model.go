package mail

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Level is an email's importance classification, ordered from most to least
// important.
type Level string

const (
	LevelCritical Level = "CRITICAL"
	LevelHigh     Level = "HIGH"
	LevelMedium   Level = "MEDIUM"
	LevelLow      Level = "LOW"
	LevelSpam     Level = "SPAM"
)

// ValidLevel reports whether s is one of the known importance levels.
func ValidLevel(s string) bool {
	switch Level(s) {
	case LevelCritical, LevelHigh, LevelMedium, LevelLow, LevelSpam:
		return true
	}
	return false
}

// LevelForScore maps a numeric score to a Level via fixed thresholds.
// A safety override always yields CRITICAL regardless of score.
func LevelForScore(score float64, safetyOverride bool) Level {
	switch {
	case safetyOverride || score >= 9:
		return LevelCritical
	case score >= 7:
		return LevelHigh
	case score >= 5:
		return LevelMedium
	case score >= 2:
		return LevelLow
	default:
		return LevelSpam
	}
}

// Category tags for classified emails. The set is open; these are the
// conventional values the classifiers emit.
const (
	CategoryPromotional = "promotional"
	CategoryNewsletter  = "newsletter"
	CategorySocial      = "social"
	CategoryAutomated   = "automated"
	CategoryPersonal    = "personal"
	CategoryFinancial   = "financial"
	CategorySecurity    = "security"
	CategoryMedical     = "medical"
	CategoryOther       = "other"
)

// ImportanceScore is the outcome of classifying one message. AnalyzedAt is
// stamped by the store when the result is persisted.
type ImportanceScore struct {
	Score          float64   `json:"importance_score"`
	Level          Level     `json:"level"`
	SafeToDelete   bool      `json:"safe_to_delete"`
	SafetyOverride bool      `json:"safety_override"`
	Reasons        []string  `json:"reasons"`
	Category       string    `json:"category"`
	AnalyzedAt     time.Time `json:"analyzed_at,omitzero"`
}

// NewImportanceScore validates and constructs an ImportanceScore.
// Callers must not persist a score that failed construction.
func NewImportanceScore(score float64, level Level, safeToDelete, safetyOverride bool, reasons []string, category string) (*ImportanceScore, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, fmt.Errorf("importance score must be a finite number, got %v", score)
	}
	if !ValidLevel(string(level)) {
		return nil, fmt.Errorf("invalid importance level %q", level)
	}
	if reasons == nil {
		reasons = []string{}
	}
	if category == "" {
		category = CategoryOther
	}
	return &ImportanceScore{
		Score:          score,
		Level:          level,
		SafeToDelete:   safeToDelete,
		SafetyOverride: safetyOverride,
		Reasons:        reasons,
		Category:       category,
	}, nil
}

// Summary is a short LLM-generated summary of one message.
type Summary struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"key_points"`
	Sentiment         string   `json:"sentiment,omitempty"`
	UrgencyIndicators []string `json:"urgency_indicators"`
}

// Attachment describes one message attachment.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Message is a single retrieved email whose importance is being assessed.
// Identity fields are immutable once stored; only the analysis fields
// (Importance, Summary) change, and only via Store.UpdateAnalysis.
type Message struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"thread_id"`
	Sender       string       `json:"sender"`
	Subject      string       `json:"subject"`
	Date         string       `json:"date"` // ISO-8601, as supplied by the connector
	TextBody     string       `json:"text_body"`
	HTMLBody     string       `json:"html_body"`
	Snippet      string       `json:"snippet"`
	Labels       []string     `json:"labels"`
	SizeEstimate int64        `json:"size_estimate"`
	Attachments  []Attachment `json:"attachments"`

	Importance *ImportanceScore `json:"analysis,omitempty"`
	Summary    *Summary         `json:"summary,omitempty"`

	// SavedAt is stamped by the store on write.
	SavedAt time.Time `json:"saved_at,omitzero"`
}

// Normalize fills nil list fields. Connector payloads and stored documents
// may omit them; downstream code assumes empty, never null.
func (m *Message) Normalize() {
	if m.Labels == nil {
		m.Labels = []string{}
	}
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
	}
	if m.Importance != nil && m.Importance.Reasons == nil {
		m.Importance.Reasons = []string{}
	}
	if m.Summary != nil && m.Summary.UrgencyIndicators == nil {
		m.Summary.UrgencyIndicators = []string{}
	}
}

// Analyzed reports whether the message has an importance result.
func (m *Message) Analyzed() bool {
	return m.Importance != nil
}

// HighPriority reports whether the message classified as CRITICAL or HIGH.
func (m *Message) HighPriority() bool {
	if m.Importance == nil {
		return false
	}
	return m.Importance.Level == LevelCritical || m.Importance.Level == LevelHigh
}

// IsDeletionCandidate applies the full deletion-safety predicate. The safety
// override is a hard veto even if SafeToDelete was stored as true.
func (m *Message) IsDeletionCandidate(minScore float64) bool {
	s := m.Importance
	return s != nil &&
		s.SafeToDelete &&
		s.Score <= minScore &&
		!s.SafetyOverride
}

// SenderDomain returns the lowercased domain of the sender address, handling
// the "Name <addr@domain>" form. Empty when there is no @.
func (m *Message) SenderDomain() string {
	addr := m.Sender
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return strings.ToLower(strings.TrimSpace(addr[i+1:]))
	}
	return ""
}

// SenderName returns the display part of the sender, or the bare address.
func (m *Message) SenderName() string {
	if i := strings.Index(m.Sender, "<"); i > 0 {
		return strings.TrimSpace(m.Sender[:i])
	}
	return m.Sender
}

// AgeDays returns the message age in whole days, 0 if the date is unparseable.
func (m *Message) AgeDays() int {
	d := strings.ReplaceAll(m.Date, "Z", "+00:00")
	t, err := time.Parse("2006-01-02T15:04:05-07:00", d)
	if err != nil {
		if t, err = time.Parse("2006-01-02", m.Date); err != nil {
			return 0
		}
	}
	return int(time.Since(t).Hours() / 24)
}

// AnalysisConfig carries tunables for a classification run. List fields are
// never nil after Normalize.
type AnalysisConfig struct {
	ImportanceModel      string   `json:"importance_model"`
	SummaryModel         string   `json:"summary_model"`
	VIPSenders           []string `json:"vip_senders"`
	VIPDomains           []string `json:"vip_domains"`
	ImportanceThreshold  float64  `json:"importance_threshold"`
	DeletionThreshold    float64  `json:"deletion_threshold"`
	MaxBatchSize         int      `json:"max_batch_size"`
	EnableSafetyOverride bool     `json:"enable_safety_override"`
	EnableSummarization  bool     `json:"enable_summarization"`
}

// Normalize fills nil list fields and clamps the batch size to at least 1.
func (c *AnalysisConfig) Normalize() {
	if c.VIPSenders == nil {
		c.VIPSenders = []string{}
	}
	if c.VIPDomains == nil {
		c.VIPDomains = []string{}
	}
	if c.MaxBatchSize < 1 {
		c.MaxBatchSize = 1
	}
}
