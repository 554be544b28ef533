package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// Service handles catalog business logic. Proposals read pricing through it;
// prices are snapshotted onto proposal lines at add time, so catalog updates
// never rewrite existing quotes.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create adds a product.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	p := &Product{
		SKU:          req.SKU,
		Name:         req.Name,
		Description:  req.Description,
		ListPrice:    req.ListPrice,
		PartnerPrice: req.PartnerPrice,
	}
	err := s.repo.Create(ctx, p)
	if errors.Is(err, ErrDuplicateSKU) {
		return nil, fmt.Errorf("%w: sku %q", httpx.ErrDuplicate, req.SKU)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return p, err
}

// List returns products matching the search term.
func (s *Service) List(ctx context.Context, search string, activeOnly bool, limit, offset int) ([]Product, int, error) {
	return s.repo.List(ctx, search, activeOnly, limit, offset)
}

// Update changes product fields. Existing proposal lines keep their
// snapshotted prices.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.ListPrice != nil {
		p.ListPrice = *req.ListPrice
	}
	if req.PartnerPrice != nil {
		p.PartnerPrice = *req.PartnerPrice
	}
	if req.Active != nil {
		p.Active = *req.Active
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
