package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access for the product catalog.
type RepositoryPort interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Product, int, error)
	Update(ctx context.Context, p *Product) error
}

// ErrNotFound indicates the product does not exist.
var ErrNotFound = errors.New("catalog: not found")

// ErrDuplicateSKU indicates the SKU is already taken.
var ErrDuplicateSKU = errors.New("catalog: duplicate sku")

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, description, list_price, partner_price, active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var description pgtype.Text
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &description, &p.ListPrice,
		&p.PartnerPrice, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	return &p, nil
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, p *Product) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, p.SKU).Scan(&exists); err != nil {
		return fmt.Errorf("catalog: sku check: %w", err)
	}
	if exists {
		return ErrDuplicateSKU
	}

	var description pgtype.Text
	if p.Description != nil {
		description = pgtype.Text{String: *p.Description, Valid: true}
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (sku, name, description, list_price, partner_price, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		p.SKU, p.Name, description, p.ListPrice, p.PartnerPrice,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: create: %w", err)
	}
	p.Active = true
	return nil
}

// Get fetches one product.
func (r *Repository) Get(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return p, nil
}

// List returns products matching the search term.
func (r *Repository) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Product, int, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + search + "%"

	where := ` WHERE (name ILIKE $1 OR sku ILIKE $1)`
	if activeOnly {
		where += ` AND active`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY name LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan: %w", err)
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Update rewrites the product row.
func (r *Repository) Update(ctx context.Context, p *Product) error {
	var description pgtype.Text
	if p.Description != nil {
		description = pgtype.Text{String: *p.Description, Valid: true}
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET name = $1, description = $2, list_price = $3,
			partner_price = $4, active = $5, updated_at = NOW()
		 WHERE id = $6`,
		p.Name, description, p.ListPrice, p.PartnerPrice, p.Active, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
