package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access for customers.
type RepositoryPort interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
	Update(ctx context.Context, c *Customer) error
	Delete(ctx context.Context, id int64) error
}

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customers: not found")

// ErrHasProposals indicates the customer still owns proposals.
var ErrHasProposals = errors.New("customers: proposals still reference this customer")

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, name, email, phone, vat_number, address, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var email, phone, vat, address, notes pgtype.Text
	err := row.Scan(&c.ID, &c.Name, &email, &phone, &vat, &address, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		col pgtype.Text
		dst **string
	}{
		{email, &c.Email}, {phone, &c.Phone}, {vat, &c.VATNumber},
		{address, &c.Address}, {notes, &c.Notes},
	} {
		if pair.col.Valid {
			v := pair.col.String
			*pair.dst = &v
		}
	}
	return &c, nil
}

func textParam(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

// Create inserts a customer.
func (r *Repository) Create(ctx context.Context, c *Customer) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO customers (name, email, phone, vat_number, address, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		c.Name, textParam(c.Email), textParam(c.Phone), textParam(c.VATNumber),
		textParam(c.Address), textParam(c.Notes),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("customers: create: %w", err)
	}
	return nil
}

// Get fetches one customer.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: get: %w", err)
	}
	return c, nil
}

// List returns customers matching the search term, name-ordered.
func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + search + "%"

	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM customers WHERE name ILIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE name ILIKE $1 ORDER BY name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("customers: scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

// Update rewrites the customer row.
func (r *Repository) Update(ctx context.Context, c *Customer) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE customers SET name = $1, email = $2, phone = $3, vat_number = $4,
			address = $5, notes = $6, updated_at = NOW()
		 WHERE id = $7`,
		c.Name, textParam(c.Email), textParam(c.Phone), textParam(c.VATNumber),
		textParam(c.Address), textParam(c.Notes), c.ID)
	if err != nil {
		return fmt.Errorf("customers: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a customer unless proposals still reference it.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE customer_id = $1`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("customers: delete check: %w", err)
	}
	if count > 0 {
		return ErrHasProposals
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("customers: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
