package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedeck/quotedeck/internal/platform/db"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// RepositoryPort defines persistence for payment terms. Due specs are stored
// flattened into three nullable columns; DueColumns and DueFromColumns do the
// conversion at the boundary.
type RepositoryPort interface {
	ListByProposal(ctx context.Context, proposalID int64) ([]PaymentTerm, error)
	Get(ctx context.Context, id int64) (*PaymentTerm, error)
	Create(ctx context.Context, term *PaymentTerm) error
	Update(ctx context.Context, term *PaymentTerm) error
	Delete(ctx context.Context, id int64) error
	ReplaceForProposal(ctx context.Context, proposalID int64, terms []PaymentTerm) ([]PaymentTerm, error)
	UpdateAmounts(ctx context.Context, terms []PaymentTerm) error
	NextSequenceNumber(ctx context.Context, proposalID int64) (int, error)
}

// ErrNotFound indicates the payment term does not exist. It wraps the httpx
// sentinel so handlers map it to 404 without package-level translation.
var ErrNotFound = fmt.Errorf("payments: term not found: %w", httpx.ErrNotFound)

// Repository provides PostgreSQL backed persistence for payment terms.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const termColumns = `id, proposal_id, name, percentage, amount, sequence_number,
	due_condition, due_days, due_date, status, paid_at, method, reference,
	created_at, updated_at`

func scanTerm(row pgx.Row) (*PaymentTerm, error) {
	var t PaymentTerm
	var condition, method, reference pgtype.Text
	var days pgtype.Int4
	var dueDate, paidAt pgtype.Timestamptz

	err := row.Scan(&t.ID, &t.ProposalID, &t.Name, &t.Percentage, &t.Amount,
		&t.SequenceNumber, &condition, &days, &dueDate, &t.Status, &paidAt,
		&method, &reference, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	var condPtr *string
	var daysPtr *int
	var datePtr *time.Time
	if condition.Valid {
		condPtr = &condition.String
	}
	if days.Valid {
		d := int(days.Int32)
		daysPtr = &d
	}
	if dueDate.Valid {
		datePtr = &dueDate.Time
	}
	var ambiguous bool
	t.Due, ambiguous = DueFromColumns(condPtr, daysPtr, datePtr)
	if ambiguous {
		slog.Default().Warn("payment term carries multiple due representations",
			slog.Int64("term_id", t.ID))
	}

	if paidAt.Valid {
		t.PaidAt = &paidAt.Time
	}
	if method.Valid {
		t.Method = &method.String
	}
	if reference.Valid {
		t.Reference = &reference.String
	}
	return &t, nil
}

func dueParams(due DueSpec) (pgtype.Text, pgtype.Int4, pgtype.Timestamptz) {
	condition, days, date := DueColumns(due)
	var c pgtype.Text
	var d pgtype.Int4
	var dt pgtype.Timestamptz
	if condition != nil {
		c = pgtype.Text{String: *condition, Valid: true}
	}
	if days != nil {
		d = pgtype.Int4{Int32: int32(*days), Valid: true}
	}
	if date != nil {
		dt = pgtype.Timestamptz{Time: *date, Valid: true}
	}
	return c, d, dt
}

// ListByProposal returns the proposal's terms in storage order.
func (r *Repository) ListByProposal(ctx context.Context, proposalID int64) ([]PaymentTerm, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+termColumns+` FROM payment_terms WHERE proposal_id = $1 ORDER BY id`,
		proposalID)
	if err != nil {
		return nil, fmt.Errorf("payments: list terms: %w", err)
	}
	defer rows.Close()

	var terms []PaymentTerm
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, fmt.Errorf("payments: scan term: %w", err)
		}
		terms = append(terms, *t)
	}
	return terms, rows.Err()
}

// Get fetches a single term.
func (r *Repository) Get(ctx context.Context, id int64) (*PaymentTerm, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+termColumns+` FROM payment_terms WHERE id = $1`, id)
	t, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("payments: get term: %w", err)
	}
	return t, nil
}

// Create inserts a term and fills the generated fields.
func (r *Repository) Create(ctx context.Context, term *PaymentTerm) error {
	condition, days, date := dueParams(term.Due)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_terms (proposal_id, name, percentage, amount,
			sequence_number, due_condition, due_days, due_date, status,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		term.ProposalID, term.Name, term.Percentage, term.Amount,
		term.SequenceNumber, condition, days, date, term.Status,
	).Scan(&term.ID, &term.CreatedAt, &term.UpdatedAt)
	if err != nil {
		return fmt.Errorf("payments: create term: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of a term.
func (r *Repository) Update(ctx context.Context, term *PaymentTerm) error {
	condition, days, date := dueParams(term.Due)
	var paidAt pgtype.Timestamptz
	if term.PaidAt != nil {
		paidAt = pgtype.Timestamptz{Time: *term.PaidAt, Valid: true}
	}
	var method, reference pgtype.Text
	if term.Method != nil {
		method = pgtype.Text{String: *term.Method, Valid: true}
	}
	if term.Reference != nil {
		reference = pgtype.Text{String: *term.Reference, Valid: true}
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_terms SET name = $1, percentage = $2, amount = $3,
			sequence_number = $4, due_condition = $5, due_days = $6,
			due_date = $7, status = $8, paid_at = $9, method = $10,
			reference = $11, updated_at = NOW()
		 WHERE id = $12`,
		term.Name, term.Percentage, term.Amount, term.SequenceNumber,
		condition, days, date, term.Status, paidAt, method, reference, term.ID)
	if err != nil {
		return fmt.Errorf("payments: update term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a term.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payment_terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("payments: delete term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceForProposal deletes every existing term and inserts the given set in
// one transaction. Used by template application, which is a full replacement
// rather than a merge.
func (r *Repository) ReplaceForProposal(ctx context.Context, proposalID int64, terms []PaymentTerm) ([]PaymentTerm, error) {
	out := make([]PaymentTerm, len(terms))
	copy(out, terms)

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment_terms WHERE proposal_id = $1`, proposalID); err != nil {
			return fmt.Errorf("clear terms: %w", err)
		}
		for i := range out {
			out[i].ProposalID = proposalID
			condition, days, date := dueParams(out[i].Due)
			err := tx.QueryRow(ctx,
				`INSERT INTO payment_terms (proposal_id, name, percentage,
					amount, sequence_number, due_condition, due_days, due_date,
					status, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
				 RETURNING id, created_at, updated_at`,
				proposalID, out[i].Name, out[i].Percentage, out[i].Amount,
				out[i].SequenceNumber, condition, days, date, out[i].Status,
			).Scan(&out[i].ID, &out[i].CreatedAt, &out[i].UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert term %q: %w", out[i].Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("payments: replace terms: %w", err)
	}
	return out, nil
}

// UpdateAmounts persists re-derived amounts after the proposal total changed.
func (r *Repository) UpdateAmounts(ctx context.Context, terms []PaymentTerm) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range terms {
			if _, err := tx.Exec(ctx,
				`UPDATE payment_terms SET amount = $1, updated_at = NOW() WHERE id = $2`,
				t.Amount, t.ID); err != nil {
				return fmt.Errorf("payments: update amount for term %d: %w", t.ID, err)
			}
		}
		return nil
	})
}

// NextSequenceNumber returns one past the highest sequence number in use.
func (r *Repository) NextSequenceNumber(ctx context.Context, proposalID int64) (int, error) {
	var next int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) + 1 FROM payment_terms WHERE proposal_id = $1`,
		proposalID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("payments: next sequence number: %w", err)
	}
	return next, nil
}
