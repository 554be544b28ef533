package activity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger is the write-only sink callers invoke after proposal mutations.
// Delivery is best-effort: the core never depends on a log write succeeding.
type Logger interface {
	Record(ctx context.Context, entry Entry) error
}

// PGLogger writes entries into activity_log.
type PGLogger struct {
	pool *pgxpool.Pool
}

// NewPGLogger returns a Postgres-backed activity logger.
func NewPGLogger(pool *pgxpool.Pool) *PGLogger {
	return &PGLogger{pool: pool}
}

// Record persists the log entry.
func (l *PGLogger) Record(ctx context.Context, entry Entry) error {
	if l == nil {
		return errors.New("activity logger not initialised")
	}
	if entry.ProposalID == 0 || entry.Kind == "" {
		return errors.New("activity entry requires proposal_id and kind")
	}
	occurredAt := entry.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	detail := pgtype.Text{}
	if entry.Detail != nil {
		detail = pgtype.Text{String: *entry.Detail, Valid: true}
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO activity_log (proposal_id, kind, description, detail, occurred_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ProposalID, entry.Kind, entry.Description, detail, occurredAt)
	return err
}

// ListByProposal returns entries for one proposal, newest first.
func (l *PGLogger) ListByProposal(ctx context.Context, proposalID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, proposal_id, kind, description, detail, occurred_at
		 FROM activity_log WHERE proposal_id = $1
		 ORDER BY occurred_at DESC, id DESC LIMIT $2`,
		proposalID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail pgtype.Text
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Kind, &e.Description, &detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		if detail.Valid {
			val := detail.String
			e.Detail = &val
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NopLogger discards entries; used in tests and tooling.
type NopLogger struct{}

// Record implements Logger.
func (NopLogger) Record(context.Context, Entry) error { return nil }
