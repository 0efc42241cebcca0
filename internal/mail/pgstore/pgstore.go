// Package pgstore provides a PostgreSQL implementation of mail.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/mail"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/mail/pgstore")

//go:embed schema.sql
var schema string

// Store persists messages in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const emailColumns = `id, thread_id, sender, subject, date, text_body, html_body, snippet,
	labels, size_estimate, attachments, analysis, summary, saved_at`

// Replace discards prior content and stores msgs as the entire corpus.
func (s *Store) Replace(ctx context.Context, msgs []*mail.Message) error {
	ctx, span := tracer.Start(ctx, "pgstore.Replace", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("sift.message.count", len(msgs)),
	))
	defer span.End()

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM emails`); err != nil {
			return fmt.Errorf("clear emails: %w", err)
		}
		for _, m := range msgs {
			if err := upsertEmail(ctx, tx, m); err != nil {
				return err
			}
		}
		return stampSync(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Merge overlays msgs onto existing content by id. New rows append at the end
// of the ordering; existing rows keep their position.
func (s *Store) Merge(ctx context.Context, msgs []*mail.Message) error {
	ctx, span := tracer.Start(ctx, "pgstore.Merge", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.Int("sift.message.count", len(msgs)),
	))
	defer span.End()

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		for _, m := range msgs {
			if err := upsertEmail(ctx, tx, m); err != nil {
				return err
			}
		}
		return stampSync(ctx, tx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// UpdateAnalysis attaches score (and optional sum) to one message. Returns
// false when the id is not stored.
func (s *Store) UpdateAnalysis(ctx context.Context, id string, score *mail.ImportanceScore, sum *mail.Summary) (bool, error) {
	ctx, span := tracer.Start(ctx, "pgstore.UpdateAnalysis", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("sift.message.id", id),
	))
	defer span.End()

	sc := *score
	sc.AnalyzedAt = time.Now().UTC()
	analysisJSON, err := json.Marshal(&sc)
	if err != nil {
		return false, fmt.Errorf("marshal analysis: %w", err)
	}
	var summaryJSON []byte
	if sum != nil {
		if summaryJSON, err = json.Marshal(sum); err != nil {
			return false, fmt.Errorf("marshal summary: %w", err)
		}
	}

	var found bool
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		query := `UPDATE emails SET analysis = $2, summary = COALESCE($3, summary) WHERE id = $1`
		tag, err := tx.Exec(ctx, query, id, analysisJSON, summaryJSON)
		if err != nil {
			return fmt.Errorf("update analysis: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		found = true
		if _, err := tx.Exec(ctx, `UPDATE store_meta SET last_analysis = now() WHERE id = 1`); err != nil {
			return fmt.Errorf("stamp last_analysis: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	return found, nil
}

// LoadAll returns every stored message in insertion order.
func (s *Store) LoadAll(ctx context.Context) ([]*mail.Message, error) {
	return s.queryEmails(ctx, "pgstore.LoadAll",
		`SELECT `+emailColumns+` FROM emails ORDER BY position`)
}

// Unanalyzed returns the stored messages lacking an importance result.
func (s *Store) Unanalyzed(ctx context.Context) ([]*mail.Message, error) {
	return s.queryEmails(ctx, "pgstore.Unanalyzed",
		`SELECT `+emailColumns+` FROM emails WHERE analysis IS NULL ORDER BY position`)
}

// Candidates returns the messages passing the deletion-safety predicate at
// the given score ceiling.
func (s *Store) Candidates(ctx context.Context, minScore float64) ([]*mail.Message, error) {
	return s.queryEmails(ctx, "pgstore.Candidates",
		`SELECT `+emailColumns+` FROM emails
		 WHERE (analysis->>'safe_to_delete')::boolean
		   AND NOT (analysis->>'safety_override')::boolean
		   AND (analysis->>'importance_score')::float8 <= $1
		 ORDER BY position`, minScore)
}

// Metadata returns the current store metadata.
func (s *Store) Metadata(ctx context.Context) (*mail.Metadata, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Metadata", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var (
		meta         mail.Metadata
		lastSync     *time.Time
		lastAnalysis *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT m.last_sync, m.last_analysis,
		        (SELECT count(*) FROM emails),
		        (SELECT count(*) FROM emails WHERE analysis IS NOT NULL)
		 FROM store_meta m WHERE m.id = 1`,
	).Scan(&lastSync, &lastAnalysis, &meta.TotalEmails, &meta.AnalyzedCount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	if lastSync != nil {
		meta.LastSync = *lastSync
	}
	if lastAnalysis != nil {
		meta.LastAnalysis = *lastAnalysis
	}
	return &meta, nil
}

func (s *Store) queryEmails(ctx context.Context, spanName, query string, args ...any) ([]*mail.Message, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query emails: %w", err)
	}
	defer rows.Close()

	var out []*mail.Message
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate emails: %w", err)
	}
	return out, nil
}

func (s *Store) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func upsertEmail(ctx context.Context, tx pgx.Tx, m *mail.Message) error {
	labelsJSON, err := json.Marshal(m.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels for %s: %w", m.ID, err)
	}
	attachmentsJSON, err := json.Marshal(m.Attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments for %s: %w", m.ID, err)
	}
	var analysisJSON, summaryJSON []byte
	if m.Importance != nil {
		if analysisJSON, err = json.Marshal(m.Importance); err != nil {
			return fmt.Errorf("marshal analysis for %s: %w", m.ID, err)
		}
	}
	if m.Summary != nil {
		if summaryJSON, err = json.Marshal(m.Summary); err != nil {
			return fmt.Errorf("marshal summary for %s: %w", m.ID, err)
		}
	}

	query := `INSERT INTO emails (
		id, thread_id, sender, subject, date, text_body, html_body, snippet,
		labels, size_estimate, attachments, analysis, summary, saved_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
	ON CONFLICT (id) DO UPDATE SET
		thread_id     = EXCLUDED.thread_id,
		sender        = EXCLUDED.sender,
		subject       = EXCLUDED.subject,
		date          = EXCLUDED.date,
		text_body     = EXCLUDED.text_body,
		html_body     = EXCLUDED.html_body,
		snippet       = EXCLUDED.snippet,
		labels        = EXCLUDED.labels,
		size_estimate = EXCLUDED.size_estimate,
		attachments   = EXCLUDED.attachments,
		analysis      = EXCLUDED.analysis,
		summary       = EXCLUDED.summary,
		saved_at      = EXCLUDED.saved_at`

	_, err = tx.Exec(ctx, query,
		m.ID, m.ThreadID, m.Sender, m.Subject, m.Date, m.TextBody, m.HTMLBody, m.Snippet,
		labelsJSON, m.SizeEstimate, attachmentsJSON, analysisJSON, summaryJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert email %s: %w", m.ID, err)
	}
	return nil
}

func stampSync(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `UPDATE store_meta SET last_sync = now() WHERE id = 1`); err != nil {
		return fmt.Errorf("stamp last_sync: %w", err)
	}
	return nil
}

func scanEmail(row pgx.Row) (*mail.Message, error) {
	var (
		m               mail.Message
		labelsJSON      []byte
		attachmentsJSON []byte
		analysisJSON    []byte
		summaryJSON     []byte
	)

	err := row.Scan(
		&m.ID, &m.ThreadID, &m.Sender, &m.Subject, &m.Date, &m.TextBody, &m.HTMLBody, &m.Snippet,
		&labelsJSON, &m.SizeEstimate, &attachmentsJSON, &analysisJSON, &summaryJSON, &m.SavedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan email: %w", err)
	}

	if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels for %s: %w", m.ID, err)
	}
	if err := json.Unmarshal(attachmentsJSON, &m.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshal attachments for %s: %w", m.ID, err)
	}
	if analysisJSON != nil {
		if err := json.Unmarshal(analysisJSON, &m.Importance); err != nil {
			return nil, fmt.Errorf("unmarshal analysis for %s: %w", m.ID, err)
		}
	}
	if summaryJSON != nil {
		if err := json.Unmarshal(summaryJSON, &m.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary for %s: %w", m.ID, err)
		}
	}
	return &m, nil
}
