package proposals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedeck/quotedeck/internal/platform/db"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// RepositoryPort defines data access for the proposal aggregate. Every child
// mutation runs the row change, the per-tax figure refresh, and the total
// rewrite in one transaction, and returns the committed aggregate.
type RepositoryPort interface {
	Create(ctx context.Context, p *Proposal) error
	Get(ctx context.Context, id int64) (*Proposal, error)
	GetWithChildren(ctx context.Context, id int64) (*Proposal, error)
	List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithCustomer, int, error)
	Update(ctx context.Context, p *Proposal) error
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status ProposalStatus, sentAt *time.Time) error
	NextNumber(ctx context.Context) (string, error)

	AddItem(ctx context.Context, item *LineItem) (*Proposal, error)
	SaveItem(ctx context.Context, item *LineItem) (*Proposal, error)
	RemoveItem(ctx context.Context, proposalID, itemID int64) (*Proposal, error)
	AddEngineering(ctx context.Context, entry *EngineeringEntry) (*Proposal, error)
	RemoveEngineering(ctx context.Context, proposalID, entryID int64) (*Proposal, error)
	AddExpense(ctx context.Context, expense *ExpenseEntry) (*Proposal, error)
	RemoveExpense(ctx context.Context, proposalID, expenseID int64) (*Proposal, error)
	AddTax(ctx context.Context, tax *CustomTax) (*Proposal, error)
	RemoveTax(ctx context.Context, proposalID, taxID int64) (*Proposal, error)
}

// ErrNotFound indicates the proposal or child row does not exist. It wraps
// the httpx sentinel so handlers map it to 404 without package-level
// translation.
var ErrNotFound = fmt.Errorf("proposals: not found: %w", httpx.ErrNotFound)

// Repository provides PostgreSQL backed persistence for proposals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const proposalColumns = `id, number, customer_id, status, notes, total_amount, sent_at, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	var notes pgtype.Text
	var sentAt pgtype.Timestamptz
	err := row.Scan(&p.ID, &p.Number, &p.CustomerID, &p.Status, &notes,
		&p.TotalAmount, &sentAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	if sentAt.Valid {
		p.SentAt = &sentAt.Time
	}
	return &p, nil
}

// Create inserts a proposal header.
func (r *Repository) Create(ctx context.Context, p *Proposal) error {
	var notes pgtype.Text
	if p.Notes != nil {
		notes = pgtype.Text{String: *p.Notes, Valid: true}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proposals (number, customer_id, status, notes, total_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		p.Number, p.CustomerID, p.Status, notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("proposals: create: %w", err)
	}
	return nil
}

// Get fetches the proposal header only.
func (r *Repository) Get(ctx context.Context, id int64) (*Proposal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	p, err := scanProposal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("proposals: get: %w", err)
	}
	return p, nil
}

// GetWithChildren fetches the full aggregate.
func (r *Repository) GetWithChildren(ctx context.Context, id int64) (*Proposal, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, r.pool, p); err != nil {
		return nil, err
	}
	return p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) loadChildren(ctx context.Context, q querier, p *Proposal) error {
	items, err := r.listItems(ctx, q, p.ID)
	if err != nil {
		return err
	}
	p.Items = items

	engineering, err := r.listEngineering(ctx, q, p.ID)
	if err != nil {
		return err
	}
	p.Engineering = engineering

	expenses, err := r.listExpenses(ctx, q, p.ID)
	if err != nil {
		return err
	}
	p.Expenses = expenses

	taxes, err := r.listTaxes(ctx, q, p.ID)
	if err != nil {
		return err
	}
	p.Taxes = taxes
	return nil
}

// List returns proposals joined with the customer name, newest first.
func (r *Repository) List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithCustomer, int, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []any{}
	idx := 1
	if req.CustomerID != nil {
		where += fmt.Sprintf(" AND p.customer_id = $%d", idx)
		args = append(args, *req.CustomerID)
		idx++
	}
	if req.Status != nil {
		where += fmt.Sprintf(" AND p.status = $%d", idx)
		args = append(args, *req.Status)
		idx++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM proposals p` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("proposals: count: %w", err)
	}

	query := `SELECT p.id, p.number, p.customer_id, p.status, p.notes,
			p.total_amount, p.sent_at, p.created_at, p.updated_at, c.name
		FROM proposals p
		JOIN customers c ON c.id = p.customer_id` + where +
		fmt.Sprintf(" ORDER BY p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("proposals: list: %w", err)
	}
	defer rows.Close()

	var out []ProposalWithCustomer
	for rows.Next() {
		var p ProposalWithCustomer
		var notes pgtype.Text
		var sentAt pgtype.Timestamptz
		err := rows.Scan(&p.ID, &p.Number, &p.CustomerID, &p.Status, &notes,
			&p.TotalAmount, &sentAt, &p.CreatedAt, &p.UpdatedAt, &p.CustomerName)
		if err != nil {
			return nil, 0, fmt.Errorf("proposals: scan: %w", err)
		}
		if notes.Valid {
			p.Notes = &notes.String
		}
		if sentAt.Valid {
			p.SentAt = &sentAt.Time
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Update rewrites the mutable header columns.
func (r *Repository) Update(ctx context.Context, p *Proposal) error {
	var notes pgtype.Text
	if p.Notes != nil {
		notes = pgtype.Text{String: *p.Notes, Valid: true}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE proposals SET customer_id = $1, notes = $2, updated_at = NOW() WHERE id = $3`,
		p.CustomerID, notes, p.ID)
	if err != nil {
		return fmt.Errorf("proposals: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the proposal; child rows cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("proposals: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus writes the status and, when the proposal is first sent, the
// sent timestamp.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status ProposalStatus, sentAt *time.Time) error {
	var sent pgtype.Timestamptz
	if sentAt != nil {
		sent = pgtype.Timestamptz{Time: *sentAt, Valid: true}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE proposals SET status = $1, sent_at = COALESCE($2, sent_at), updated_at = NOW() WHERE id = $3`,
		status, sent, id)
	if err != nil {
		return fmt.Errorf("proposals: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mutate runs fn against the aggregate inside one transaction, then recomputes
// and persists the total from the post-mutation child rows. The reloaded
// aggregate is returned so callers see the figures that were committed.
func (r *Repository) mutate(ctx context.Context, id int64, fn func(ctx context.Context, tx pgx.Tx, p *Proposal) error) (*Proposal, error) {
	var result *Proposal
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id)
		p, err := scanProposal(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := r.loadChildren(ctx, tx, p); err != nil {
			return err
		}

		if err := fn(ctx, tx, p); err != nil {
			return err
		}

		if err := r.loadChildren(ctx, tx, p); err != nil {
			return err
		}

		// Refresh the cached per-tax figures; the base may have moved with
		// the mutation even when no tax row was touched.
		base := TaxableProductsAmount(p.Items)
		for i := range p.Taxes {
			amount := TaxAmount(p.Taxes[i].Rate, base)
			if amount != p.Taxes[i].Amount {
				if err := updateTaxAmount(ctx, tx, p.Taxes[i].ID, amount); err != nil {
					return err
				}
				p.Taxes[i].Amount = amount
			}
		}

		p.TotalAmount = TotalAmount(p)
		if _, err := tx.Exec(ctx,
			`UPDATE proposals SET total_amount = $1, updated_at = NOW() WHERE id = $2`,
			p.TotalAmount, p.ID); err != nil {
			return fmt.Errorf("persist total: %w", err)
		}
		result = p
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("proposals: mutate: %w", err)
	}
	return result, nil
}

// NextNumber allocates the next proposal number (Q-YYYY-NNNN).
func (r *Repository) NextNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE EXTRACT(YEAR FROM created_at) = $1`, year).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("proposals: next number: %w", err)
	}
	return fmt.Sprintf("Q-%d-%04d", year, count+1), nil
}

// --- Child collections ---

func (r *Repository) listItems(ctx context.Context, q querier, proposalID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx,
		`SELECT id, proposal_id, product_id, name, quantity, discount_percent,
			unit_price, list_price, partner_price, apply_custom_tax, amount,
			created_at, updated_at
		 FROM proposal_items WHERE proposal_id = $1 ORDER BY id`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("proposals: list items: %w", err)
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		var productID pgtype.Int8
		err := rows.Scan(&item.ID, &item.ProposalID, &productID, &item.Name,
			&item.Quantity, &item.DiscountPercent, &item.UnitPrice,
			&item.ListPrice, &item.PartnerPrice, &item.ApplyCustomTax,
			&item.Amount, &item.CreatedAt, &item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("proposals: scan item: %w", err)
		}
		if productID.Valid {
			item.ProductID = &productID.Int64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) listEngineering(ctx context.Context, q querier, proposalID int64) ([]EngineeringEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT id, proposal_id, description, days, daily_rate, amount, created_at, updated_at
		 FROM proposal_engineering WHERE proposal_id = $1 ORDER BY id`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("proposals: list engineering: %w", err)
	}
	defer rows.Close()

	var entries []EngineeringEntry
	for rows.Next() {
		var e EngineeringEntry
		err := rows.Scan(&e.ID, &e.ProposalID, &e.Description, &e.Days,
			&e.DailyRate, &e.Amount, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("proposals: scan engineering: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) listExpenses(ctx context.Context, q querier, proposalID int64) ([]ExpenseEntry, error) {
	rows, err := q.Query(ctx,
		`SELECT id, proposal_id, description, amount, created_at, updated_at
		 FROM proposal_expenses WHERE proposal_id = $1 ORDER BY id`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("proposals: list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []ExpenseEntry
	for rows.Next() {
		var e ExpenseEntry
		err := rows.Scan(&e.ID, &e.ProposalID, &e.Description, &e.Amount, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("proposals: scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) listTaxes(ctx context.Context, q querier, proposalID int64) ([]CustomTax, error) {
	rows, err := q.Query(ctx,
		`SELECT id, proposal_id, name, rate, amount, created_at, updated_at
		 FROM proposal_taxes WHERE proposal_id = $1 ORDER BY id`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("proposals: list taxes: %w", err)
	}
	defer rows.Close()

	var taxes []CustomTax
	for rows.Next() {
		var t CustomTax
		err := rows.Scan(&t.ID, &t.ProposalID, &t.Name, &t.Rate, &t.Amount, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("proposals: scan tax: %w", err)
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

// AddItem inserts a line item and rewrites the total in one transaction.
func (r *Repository) AddItem(ctx context.Context, item *LineItem) (*Proposal, error) {
	return r.mutate(ctx, item.ProposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return insertItem(ctx, tx, item)
	})
}

// SaveItem rewrites a line item and the total in one transaction.
func (r *Repository) SaveItem(ctx context.Context, item *LineItem) (*Proposal, error) {
	return r.mutate(ctx, item.ProposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return updateItem(ctx, tx, item)
	})
}

// RemoveItem deletes a line item and rewrites the total in one transaction.
func (r *Repository) RemoveItem(ctx context.Context, proposalID, itemID int64) (*Proposal, error) {
	return r.mutate(ctx, proposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return deleteChild(ctx, tx, "proposal_items", itemID, proposalID)
	})
}

// AddEngineering inserts a service line and rewrites the total.
func (r *Repository) AddEngineering(ctx context.Context, entry *EngineeringEntry) (*Proposal, error) {
	return r.mutate(ctx, entry.ProposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return insertEngineering(ctx, tx, entry)
	})
}

// RemoveEngineering deletes a service line and rewrites the total.
func (r *Repository) RemoveEngineering(ctx context.Context, proposalID, entryID int64) (*Proposal, error) {
	return r.mutate(ctx, proposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return deleteChild(ctx, tx, "proposal_engineering", entryID, proposalID)
	})
}

// AddExpense inserts an expense and rewrites the total.
func (r *Repository) AddExpense(ctx context.Context, expense *ExpenseEntry) (*Proposal, error) {
	return r.mutate(ctx, expense.ProposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return insertExpense(ctx, tx, expense)
	})
}

// RemoveExpense deletes an expense and rewrites the total.
func (r *Repository) RemoveExpense(ctx context.Context, proposalID, expenseID int64) (*Proposal, error) {
	return r.mutate(ctx, proposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return deleteChild(ctx, tx, "proposal_expenses", expenseID, proposalID)
	})
}

// AddTax inserts a custom tax; its cached amount is computed against the
// taxable base inside the transaction.
func (r *Repository) AddTax(ctx context.Context, tax *CustomTax) (*Proposal, error) {
	return r.mutate(ctx, tax.ProposalID, func(ctx context.Context, tx pgx.Tx, current *Proposal) error {
		tax.Amount = TaxAmount(tax.Rate, TaxableProductsAmount(current.Items))
		return insertTax(ctx, tx, tax)
	})
}

// RemoveTax deletes a custom tax and rewrites the total.
func (r *Repository) RemoveTax(ctx context.Context, proposalID, taxID int64) (*Proposal, error) {
	return r.mutate(ctx, proposalID, func(ctx context.Context, tx pgx.Tx, _ *Proposal) error {
		return deleteChild(ctx, tx, "proposal_taxes", taxID, proposalID)
	})
}

func insertItem(ctx context.Context, tx pgx.Tx, item *LineItem) error {
	var productID pgtype.Int8
	if item.ProductID != nil {
		productID = pgtype.Int8{Int64: *item.ProductID, Valid: true}
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO proposal_items (proposal_id, product_id, name, quantity,
			discount_percent, unit_price, list_price, partner_price,
			apply_custom_tax, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		item.ProposalID, productID, item.Name, item.Quantity,
		item.DiscountPercent, item.UnitPrice, item.ListPrice,
		item.PartnerPrice, item.ApplyCustomTax, item.Amount,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func updateItem(ctx context.Context, tx pgx.Tx, item *LineItem) error {
	tag, err := tx.Exec(ctx,
		`UPDATE proposal_items SET name = $1, quantity = $2,
			discount_percent = $3, unit_price = $4, apply_custom_tax = $5,
			amount = $6, updated_at = NOW()
		 WHERE id = $7 AND proposal_id = $8`,
		item.Name, item.Quantity, item.DiscountPercent, item.UnitPrice,
		item.ApplyCustomTax, item.Amount, item.ID, item.ProposalID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteChild removes one child row of the given table. The table name is
// always a compile-time constant.
func deleteChild(ctx context.Context, tx pgx.Tx, table string, id, proposalID int64) error {
	tag, err := tx.Exec(ctx,
		`DELETE FROM `+table+` WHERE id = $1 AND proposal_id = $2`, id, proposalID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func insertEngineering(ctx context.Context, tx pgx.Tx, entry *EngineeringEntry) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO proposal_engineering (proposal_id, description, days, daily_rate, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		entry.ProposalID, entry.Description, entry.Days, entry.DailyRate, entry.Amount,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert engineering: %w", err)
	}
	return nil
}

func insertExpense(ctx context.Context, tx pgx.Tx, expense *ExpenseEntry) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO proposal_expenses (proposal_id, description, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		expense.ProposalID, expense.Description, expense.Amount,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func insertTax(ctx context.Context, tx pgx.Tx, tax *CustomTax) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO proposal_taxes (proposal_id, name, rate, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		tax.ProposalID, tax.Name, tax.Rate, tax.Amount,
	).Scan(&tax.ID, &tax.CreatedAt, &tax.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tax: %w", err)
	}
	return nil
}

func updateTaxAmount(ctx context.Context, tx pgx.Tx, id int64, amount float64) error {
	_, err := tx.Exec(ctx,
		`UPDATE proposal_taxes SET amount = $1, updated_at = NOW() WHERE id = $2`,
		amount, id)
	if err != nil {
		return fmt.Errorf("update tax amount: %w", err)
	}
	return nil
}
