package mail

import (
	"context"
	"time"
)

// Metadata describes the current contents of a Store.
type Metadata struct {
	LastSync      time.Time `json:"last_sync,omitzero"`
	LastAnalysis  time.Time `json:"last_analysis,omitzero"`
	TotalEmails   int       `json:"total_emails"`
	AnalyzedCount int       `json:"analyzed_count"`
}

// Store is the persistence interface for messages and their analysis results.
// Writes are atomic with respect to crash and readers; the store assumes a
// single writer and does not serialize concurrent writer processes.
type Store interface {
	// Replace discards prior content and stores the given messages as the
	// entire store, recomputing metadata.
	Replace(ctx context.Context, msgs []*Message) error

	// Merge overlays the given messages onto existing content by id: new ids
	// are appended, existing ids are replaced wholesale. Idempotent per id.
	Merge(ctx context.Context, msgs []*Message) error

	// UpdateAnalysis attaches the analysis result (and optional summary) to
	// one existing message, stamping the analysis timestamp. Returns false
	// without modifying the store when the id is unknown.
	UpdateAnalysis(ctx context.Context, id string, score *ImportanceScore, sum *Summary) (bool, error)

	// LoadAll returns every stored message in insertion order.
	LoadAll(ctx context.Context) ([]*Message, error)

	// Unanalyzed returns the stored messages lacking an importance result.
	Unanalyzed(ctx context.Context) ([]*Message, error)

	// Candidates returns the messages passing the deletion-safety predicate
	// at the given score ceiling.
	Candidates(ctx context.Context, minScore float64) ([]*Message, error)

	// Metadata returns the current store metadata.
	Metadata(ctx context.Context) (*Metadata, error)
}
