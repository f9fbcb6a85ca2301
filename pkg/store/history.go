// Package store persists scan history to Postgres for audit review. The
// classification path never depends on it: inserts are best effort and a
// nil store disables persistence entirely.
package store

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phishguard-io/phishguard/pkg/fusion"
)

// Record is one persisted scan.
type Record struct {
	ID          uuid.UUID
	ContentType string
	Verdict     fusion.Verdict
	Rule        string
	CreatedAt   time.Time
}

// History writes scan records to Postgres. Safe to use as nil.
type History struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS scan_history (
	id           UUID PRIMARY KEY,
	content_type TEXT NOT NULL,
	is_phishing  BOOLEAN NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	risk_score   INT NOT NULL,
	severity     TEXT NOT NULL,
	rule         TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Open connects to Postgres and ensures the history table exists. Returns
// nil (persistence disabled) when dsn is empty.
func Open(ctx context.Context, dsn string) (*History, error) {
	if dsn == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	return &History{pool: pool}, nil
}

// Insert records one scan. Best effort: failures are logged, never
// propagated to the request path. Raw content is deliberately not stored.
func (h *History) Insert(ctx context.Context, contentType string, v fusion.Verdict) uuid.UUID {
	id := uuid.New()
	if h == nil {
		return id
	}
	_, err := h.pool.Exec(ctx,
		`INSERT INTO scan_history (id, content_type, is_phishing, confidence, risk_score, severity, rule)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, contentType, v.IsPhishing, v.Confidence, v.RiskScore, string(v.Severity),
		v.Explanation.AnalysisMethod,
	)
	if err != nil {
		log.Printf("[STORE] insert failed: %v", err)
	}
	return id
}

// Recent returns the newest records for one content type, most recent
// first. Explanation detail is not persisted, only the verdict summary.
func (h *History) Recent(ctx context.Context, contentType string, limit int) ([]Record, error) {
	if h == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := h.pool.Query(ctx,
		`SELECT id, content_type, is_phishing, confidence, risk_score, severity, rule, created_at
		 FROM scan_history WHERE content_type = $1
		 ORDER BY created_at DESC LIMIT $2`,
		contentType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var severity string
		if err := rows.Scan(&r.ID, &r.ContentType, &r.Verdict.IsPhishing, &r.Verdict.Confidence,
			&r.Verdict.RiskScore, &severity, &r.Rule, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Verdict.Severity = fusion.Severity(severity)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (h *History) Close() {
	if h != nil && h.pool != nil {
		h.pool.Close()
	}
}
