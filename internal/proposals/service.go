package proposals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// ProductPricing is the catalog snapshot taken when a line is added. The
// proposal keeps its own copy so later catalog changes never move a quoted
// price.
type ProductPricing struct {
	Name         string
	ListPrice    float64
	PartnerPrice float64
}

// ProductSource resolves catalog pricing for referenced products.
type ProductSource interface {
	PricingFor(ctx context.Context, productID int64) (ProductPricing, error)
}

// PaymentsSync re-derives payment term amounts after the total changed.
type PaymentsSync interface {
	SyncAmounts(ctx context.Context, proposalID int64, total float64) error
}

// Service handles proposal business logic. Every child mutation runs inside a
// repository transaction that also rewrites the cached total; the payment
// schedule and summary cache are synchronised immediately after commit.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	products ProductSource
	payments PaymentsSync
	cache    *SummaryCache
	activity activity.Logger
	now      func() time.Time
}

// NewService builds a Service instance. payments and cache may be nil in
// tooling contexts.
func NewService(logger *slog.Logger, repo RepositoryPort, products ProductSource, payments PaymentsSync, cache *SummaryCache, log activity.Logger) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		products: products,
		payments: payments,
		cache:    cache,
		activity: log,
		now:      time.Now,
	}
}

// validTransitions captures the allowed status moves. Terminal states can be
// reopened to DRAFT only.
var validTransitions = map[ProposalStatus][]ProposalStatus{
	StatusDraft:   {StatusPending, StatusSent},
	StatusPending: {StatusDraft, StatusSent},
	StatusSent:    {StatusWon, StatusLost, StatusExpired, StatusDraft},
	StatusWon:     {StatusDraft},
	StatusLost:    {StatusDraft},
	StatusExpired: {StatusDraft, StatusSent},
}

// Create opens a new draft proposal. A number is allocated when none is given.
func (s *Service) Create(ctx context.Context, req CreateProposalRequest) (*Proposal, error) {
	number := req.Number
	if number == "" {
		var err error
		number, err = s.repo.NextNumber(ctx)
		if err != nil {
			return nil, err
		}
	}

	p := &Proposal{
		Number:     number,
		CustomerID: req.CustomerID,
		Status:     StatusDraft,
		Notes:      req.Notes,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.record(ctx, p.ID, activity.KindProposalCreated, fmt.Sprintf("Proposal %s created", p.Number))
	return p, nil
}

// Get returns the full aggregate with derived figures.
func (s *Service) Get(ctx context.Context, id int64) (*ProposalView, error) {
	p, err := s.repo.GetWithChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.buildView(p), nil
}

// List returns proposals with customer names, paginated.
func (s *Service) List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithCustomer, int, error) {
	return s.repo.List(ctx, req)
}

// Update changes header fields.
func (s *Service) Update(ctx context.Context, id int64, req UpdateProposalRequest) (*Proposal, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.CustomerID != nil {
		p.CustomerID = *req.CustomerID
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.record(ctx, id, activity.KindProposalUpdated, "Proposal details updated")
	return p, nil
}

// Delete removes the proposal and all children.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ChangeStatus moves the proposal along the lifecycle. The first transition
// to SENT stamps SentAt, which anchors Net-N payment terms.
func (s *Service) ChangeStatus(ctx context.Context, id int64, status ProposalStatus) (*Proposal, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	if !transitionAllowed(p.Status, status) {
		return nil, fmt.Errorf("%w: cannot move proposal from %s to %s", httpx.ErrConflict, p.Status, status)
	}

	var sentAt *time.Time
	if status == StatusSent && p.SentAt == nil {
		now := s.now()
		sentAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, status, sentAt); err != nil {
		return nil, err
	}

	s.record(ctx, id, activity.KindStatusChanged,
		fmt.Sprintf("Status changed from %s to %s", p.Status, status))

	p.Status = status
	if sentAt != nil {
		p.SentAt = sentAt
	}
	return p, nil
}

// Summary returns the derived figure set, served from the cache when warm.
func (s *Service) Summary(ctx context.Context, id int64) (FinancialSummary, error) {
	return s.cache.Fetch(ctx, id, func(ctx context.Context) (FinancialSummary, error) {
		p, err := s.repo.GetWithChildren(ctx, id)
		if err != nil {
			return FinancialSummary{}, err
		}
		return Summarize(p), nil
	})
}

// Info returns the proposal header without children; the payment schedule
// reads its total and timestamps through this.
func (s *Service) Info(ctx context.Context, id int64) (*Proposal, error) {
	return s.repo.Get(ctx, id)
}

// AddItem appends a product line. Catalog pricing is snapshotted onto the
// line; the unit price comes from the request, the multiplier, or the
// discounted list price, in that order.
func (s *Service) AddItem(ctx context.Context, proposalID int64, req AddItemRequest) (*Proposal, error) {
	item := LineItem{
		ProposalID:      proposalID,
		ProductID:       req.ProductID,
		Name:            req.Name,
		Quantity:        req.Quantity,
		DiscountPercent: req.DiscountPercent,
		ApplyCustomTax:  req.ApplyCustomTax,
	}

	if req.ProductID != nil {
		pricing, err := s.products.PricingFor(ctx, *req.ProductID)
		if err != nil {
			return nil, err
		}
		item.ListPrice = pricing.ListPrice
		item.PartnerPrice = pricing.PartnerPrice
		if item.Name == "" {
			item.Name = pricing.Name
		}
	}

	switch {
	case req.UnitPrice != nil:
		item.UnitPrice = *req.UnitPrice
	case req.Multiplier != nil:
		item.UnitPrice = UnitPriceFrom(item.ListPrice, *req.Multiplier, item.DiscountPercent)
	default:
		item.UnitPrice = UnitPriceFrom(item.ListPrice, 1.0, item.DiscountPercent)
	}
	item.Amount = LineItemAmount(item)

	p, err := s.repo.AddItem(ctx, &item)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemAdded, fmt.Sprintf("Item %q added", item.Name))
	s.afterTotalChange(ctx, p)
	return p, nil
}

// UpdateItem rewrites a line and re-derives its amount.
func (s *Service) UpdateItem(ctx context.Context, proposalID, itemID int64, req UpdateItemRequest) (*Proposal, error) {
	current, err := s.repo.GetWithChildren(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	item := findItem(current.Items, itemID)
	if item == nil {
		return nil, ErrNotFound
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.DiscountPercent != nil {
		item.DiscountPercent = *req.DiscountPercent
	}
	if req.ApplyCustomTax != nil {
		item.ApplyCustomTax = *req.ApplyCustomTax
	}
	switch {
	case req.UnitPrice != nil:
		item.UnitPrice = *req.UnitPrice
	case req.Multiplier != nil:
		item.UnitPrice = UnitPriceFrom(item.ListPrice, *req.Multiplier, item.DiscountPercent)
	}
	item.Amount = LineItemAmount(*item)

	p, err := s.repo.SaveItem(ctx, item)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemUpdated, fmt.Sprintf("Item %d updated", itemID))
	s.afterTotalChange(ctx, p)
	return p, nil
}

// DeleteItem removes a line.
func (s *Service) DeleteItem(ctx context.Context, proposalID, itemID int64) (*Proposal, error) {
	return s.deleteChild(ctx, proposalID, itemID, "Item removed", s.repo.RemoveItem)
}

// AddEngineering appends a service line; its amount is days times rate.
func (s *Service) AddEngineering(ctx context.Context, proposalID int64, req AddEngineeringRequest) (*Proposal, error) {
	entry := EngineeringEntry{
		ProposalID:  proposalID,
		Description: req.Description,
		Days:        req.Days,
		DailyRate:   req.DailyRate,
	}
	entry.Amount = EngineeringAmount(entry)

	p, err := s.repo.AddEngineering(ctx, &entry)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemAdded, fmt.Sprintf("Engineering %q added", entry.Description))
	s.afterTotalChange(ctx, p)
	return p, nil
}

// DeleteEngineering removes a service line.
func (s *Service) DeleteEngineering(ctx context.Context, proposalID, entryID int64) (*Proposal, error) {
	return s.deleteChild(ctx, proposalID, entryID, "Engineering entry removed", s.repo.RemoveEngineering)
}

// AddExpense appends a pass-through cost line.
func (s *Service) AddExpense(ctx context.Context, proposalID int64, req AddExpenseRequest) (*Proposal, error) {
	expense := ExpenseEntry{
		ProposalID:  proposalID,
		Description: req.Description,
		Amount:      req.Amount,
	}

	p, err := s.repo.AddExpense(ctx, &expense)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemAdded, fmt.Sprintf("Expense %q added", expense.Description))
	s.afterTotalChange(ctx, p)
	return p, nil
}

// DeleteExpense removes a cost line.
func (s *Service) DeleteExpense(ctx context.Context, proposalID, expenseID int64) (*Proposal, error) {
	return s.deleteChild(ctx, proposalID, expenseID, "Expense removed", s.repo.RemoveExpense)
}

// AddTax appends a custom tax. Its cached amount is computed against the
// taxable base inside the same transaction.
func (s *Service) AddTax(ctx context.Context, proposalID int64, req AddTaxRequest) (*Proposal, error) {
	tax := CustomTax{
		ProposalID: proposalID,
		Name:       req.Name,
		Rate:       req.Rate,
	}

	p, err := s.repo.AddTax(ctx, &tax)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemAdded, fmt.Sprintf("Tax %q (%.2f%%) added", tax.Name, tax.Rate))
	s.afterTotalChange(ctx, p)
	return p, nil
}

// DeleteTax removes a custom tax.
func (s *Service) DeleteTax(ctx context.Context, proposalID, taxID int64) (*Proposal, error) {
	return s.deleteChild(ctx, proposalID, taxID, "Tax removed", s.repo.RemoveTax)
}

func (s *Service) deleteChild(ctx context.Context, proposalID, childID int64, description string, remove func(ctx context.Context, proposalID, childID int64) (*Proposal, error)) (*Proposal, error) {
	p, err := remove(ctx, proposalID, childID)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindItemRemoved, description)
	s.afterTotalChange(ctx, p)
	return p, nil
}

// afterTotalChange fans the committed total out to the payment schedule and
// drops the cached summary. Failures are logged, not propagated: the total is
// already durable and the schedule converges on the next sync.
func (s *Service) afterTotalChange(ctx context.Context, p *Proposal) {
	if s.payments != nil {
		if err := s.payments.SyncAmounts(ctx, p.ID, p.TotalAmount); err != nil {
			s.logger.Error("payment amount sync failed",
				slog.Int64("proposal_id", p.ID),
				slog.Any("error", err))
		}
	}
	s.invalidate(ctx, p.ID)
}

func (s *Service) invalidate(ctx context.Context, proposalID int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, proposalID)
	}
}

func (s *Service) buildView(p *Proposal) *ProposalView {
	view := &ProposalView{
		Proposal: *p,
		Items:    make([]ItemView, 0, len(p.Items)),
		Summary:  Summarize(p),
	}
	for _, item := range p.Items {
		view.Items = append(view.Items, ItemView{
			LineItem:   item,
			Multiplier: Multiplier(item.ListPrice, item.DiscountPercent, item.UnitPrice),
			Profit:     LineItemProfit(item),
			Margin:     LineItemMargin(item),
		})
	}
	return view
}

func (s *Service) record(ctx context.Context, proposalID int64, kind, description string) {
	err := s.activity.Record(ctx, activity.Entry{
		ProposalID:  proposalID,
		Kind:        kind,
		Description: description,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("activity record failed",
			slog.Int64("proposal_id", proposalID),
			slog.String("kind", kind),
			slog.Any("error", err))
	}
}

func transitionAllowed(from, to ProposalStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func findItem(items []LineItem, id int64) *LineItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}
