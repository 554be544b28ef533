package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// Service handles customer business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create adds a customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	c := &Customer{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		VATNumber: req.VATNumber,
		Address:   req.Address,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
	}
	return c, err
}

// List returns customers matching the search term.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}

// Update changes customer fields.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = req.Email
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.VATNumber != nil {
		c.VATNumber = req.VATNumber
	}
	if req.Address != nil {
		c.Address = req.Address
	}
	if req.Notes != nil {
		c.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a customer; refused while proposals reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
	case errors.Is(err, ErrHasProposals):
		return fmt.Errorf("%w: customer %d still has proposals", httpx.ErrConflict, id)
	}
	return err
}
