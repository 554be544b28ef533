package proposals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotedeck/quotedeck/internal/activity"
)

// fakeRepo keeps aggregates in memory and mirrors the transactional
// contract: every child mutation refreshes tax amounts and the total before
// returning the aggregate.
type fakeRepo struct {
	proposals map[int64]*Proposal
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{proposals: make(map[int64]*Proposal), nextID: 1}
}

func (f *fakeRepo) nextVal() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeRepo) Create(_ context.Context, p *Proposal) error {
	p.ID = f.nextVal()
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	copied := *p
	f.proposals[p.ID] = &copied
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	copied.Items = nil
	copied.Engineering = nil
	copied.Expenses = nil
	copied.Taxes = nil
	return &copied, nil
}

func (f *fakeRepo) GetWithChildren(_ context.Context, id int64) (*Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	copied.Items = append([]LineItem(nil), p.Items...)
	copied.Engineering = append([]EngineeringEntry(nil), p.Engineering...)
	copied.Expenses = append([]ExpenseEntry(nil), p.Expenses...)
	copied.Taxes = append([]CustomTax(nil), p.Taxes...)
	return &copied, nil
}

func (f *fakeRepo) List(_ context.Context, _ ListProposalsRequest) ([]ProposalWithCustomer, int, error) {
	var out []ProposalWithCustomer
	for _, p := range f.proposals {
		out = append(out, ProposalWithCustomer{Proposal: *p, CustomerName: "Customer"})
	}
	return out, len(out), nil
}

func (f *fakeRepo) Update(_ context.Context, p *Proposal) error {
	stored, ok := f.proposals[p.ID]
	if !ok {
		return ErrNotFound
	}
	stored.CustomerID = p.CustomerID
	stored.Notes = p.Notes
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.proposals[id]; !ok {
		return ErrNotFound
	}
	delete(f.proposals, id)
	return nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id int64, status ProposalStatus, sentAt *time.Time) error {
	p, ok := f.proposals[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	if sentAt != nil {
		p.SentAt = sentAt
	}
	return nil
}

func (f *fakeRepo) NextNumber(_ context.Context) (string, error) {
	return fmt.Sprintf("Q-2026-%04d", len(f.proposals)+1), nil
}

// recompute mirrors the post-mutation bookkeeping of the real repository.
func (f *fakeRepo) recompute(p *Proposal) {
	base := TaxableProductsAmount(p.Items)
	for i := range p.Taxes {
		p.Taxes[i].Amount = TaxAmount(p.Taxes[i].Rate, base)
	}
	p.TotalAmount = TotalAmount(p)
}

func (f *fakeRepo) mutate(id int64, fn func(p *Proposal) error) (*Proposal, error) {
	p, ok := f.proposals[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	f.recompute(p)
	copied := *p
	return &copied, nil
}

func (f *fakeRepo) AddItem(_ context.Context, item *LineItem) (*Proposal, error) {
	return f.mutate(item.ProposalID, func(p *Proposal) error {
		item.ID = f.nextVal()
		p.Items = append(p.Items, *item)
		return nil
	})
}

func (f *fakeRepo) SaveItem(_ context.Context, item *LineItem) (*Proposal, error) {
	return f.mutate(item.ProposalID, func(p *Proposal) error {
		for i := range p.Items {
			if p.Items[i].ID == item.ID {
				p.Items[i] = *item
				return nil
			}
		}
		return ErrNotFound
	})
}

func (f *fakeRepo) RemoveItem(_ context.Context, proposalID, itemID int64) (*Proposal, error) {
	return f.mutate(proposalID, func(p *Proposal) error {
		for i := range p.Items {
			if p.Items[i].ID == itemID {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (f *fakeRepo) AddEngineering(_ context.Context, entry *EngineeringEntry) (*Proposal, error) {
	return f.mutate(entry.ProposalID, func(p *Proposal) error {
		entry.ID = f.nextVal()
		p.Engineering = append(p.Engineering, *entry)
		return nil
	})
}

func (f *fakeRepo) RemoveEngineering(_ context.Context, proposalID, entryID int64) (*Proposal, error) {
	return f.mutate(proposalID, func(p *Proposal) error {
		for i := range p.Engineering {
			if p.Engineering[i].ID == entryID {
				p.Engineering = append(p.Engineering[:i], p.Engineering[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (f *fakeRepo) AddExpense(_ context.Context, expense *ExpenseEntry) (*Proposal, error) {
	return f.mutate(expense.ProposalID, func(p *Proposal) error {
		expense.ID = f.nextVal()
		p.Expenses = append(p.Expenses, *expense)
		return nil
	})
}

func (f *fakeRepo) RemoveExpense(_ context.Context, proposalID, expenseID int64) (*Proposal, error) {
	return f.mutate(proposalID, func(p *Proposal) error {
		for i := range p.Expenses {
			if p.Expenses[i].ID == expenseID {
				p.Expenses = append(p.Expenses[:i], p.Expenses[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (f *fakeRepo) AddTax(_ context.Context, tax *CustomTax) (*Proposal, error) {
	return f.mutate(tax.ProposalID, func(p *Proposal) error {
		tax.ID = f.nextVal()
		p.Taxes = append(p.Taxes, *tax)
		return nil
	})
}

func (f *fakeRepo) RemoveTax(_ context.Context, proposalID, taxID int64) (*Proposal, error) {
	return f.mutate(proposalID, func(p *Proposal) error {
		for i := range p.Taxes {
			if p.Taxes[i].ID == taxID {
				p.Taxes = append(p.Taxes[:i], p.Taxes[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

type fakeProducts struct {
	pricing map[int64]ProductPricing
}

func (f *fakeProducts) PricingFor(_ context.Context, productID int64) (ProductPricing, error) {
	p, ok := f.pricing[productID]
	if !ok {
		return ProductPricing{}, errors.New("product not found")
	}
	return p, nil
}

type recordingSync struct {
	calls  int
	totals []float64
}

func (r *recordingSync) SyncAmounts(_ context.Context, _ int64, total float64) error {
	r.calls++
	r.totals = append(r.totals, total)
	return nil
}

func newTestService() (*Service, *fakeRepo, *recordingSync) {
	repo := newFakeRepo()
	products := &fakeProducts{pricing: map[int64]ProductPricing{
		10: {Name: "Firewall", ListPrice: 1000, PartnerPrice: 600},
		11: {Name: "Switch", ListPrice: 200, PartnerPrice: 120},
	}}
	sync := &recordingSync{}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, products, sync, nil, activity.NopLogger{})
	return svc, repo, sync
}

func createDraft(t *testing.T, svc *Service) *Proposal {
	t.Helper()
	p, err := svc.Create(context.Background(), CreateProposalRequest{CustomerID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, p.Status)
	require.NotEmpty(t, p.Number)
	return p
}

func TestAddItemSnapshotsCatalogPricing(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(10)
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID: &productID,
		Name:      "Edge firewall",
		Quantity:  2,
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	item := updated.Items[0]
	require.Equal(t, 1000.0, item.ListPrice)
	require.Equal(t, 600.0, item.PartnerPrice)
	require.Equal(t, 1000.0, item.UnitPrice)
	require.Equal(t, 2000.0, item.Amount)
	require.Equal(t, 2000.0, updated.TotalAmount)
}

func TestAddItemMultiplierPricing(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(10)
	multiplier := 1.2
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID:       &productID,
		Name:            "Edge firewall",
		Quantity:        1,
		DiscountPercent: 10,
		Multiplier:      &multiplier,
	})
	require.NoError(t, err)

	// 1000 * 1.2 * 0.9
	require.Equal(t, 1080.0, updated.Items[0].UnitPrice)
}

func TestMutationsKeepTotalCurrent(t *testing.T) {
	svc, _, sync := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(11)
	price := 300.0
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID: &productID,
		Name:      "Core switch",
		Quantity:  10,
		UnitPrice: &price,
	})
	require.NoError(t, err)
	require.Equal(t, 3000.0, updated.TotalAmount)

	updated, err = svc.AddEngineering(ctx, p.ID, AddEngineeringRequest{
		Description: "Installation", Days: 2, DailyRate: 500,
	})
	require.NoError(t, err)
	require.Equal(t, 4000.0, updated.TotalAmount)

	updated, err = svc.AddExpense(ctx, p.ID, AddExpenseRequest{Description: "Travel", Amount: 250})
	require.NoError(t, err)
	require.Equal(t, 4250.0, updated.TotalAmount)

	// Every mutation pushed the fresh total to the payment schedule.
	require.Equal(t, 3, sync.calls)
	require.Equal(t, []float64{3000, 4000, 4250}, sync.totals)
}

func TestTaxFollowsTaxableBase(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(10)
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID:      &productID,
		Name:           "Edge firewall",
		Quantity:       1,
		ApplyCustomTax: true,
	})
	require.NoError(t, err)

	updated, err = svc.AddTax(ctx, p.ID, AddTaxRequest{Name: "Import duty", Rate: 10})
	require.NoError(t, err)
	require.Len(t, updated.Taxes, 1)
	// 10% of the 600 partner cost, not of the 1000 sale price.
	require.Equal(t, 60.0, updated.Taxes[0].Amount)
	require.Equal(t, 1060.0, updated.TotalAmount)

	// Adding a second taxable item moves the cached tax figure too.
	updated, err = svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID:      &productID,
		Name:           "Second firewall",
		Quantity:       1,
		ApplyCustomTax: true,
	})
	require.NoError(t, err)
	require.Equal(t, 120.0, updated.Taxes[0].Amount)
}

func TestUpdateItemRederivesAmount(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(11)
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID: &productID, Name: "Switch", Quantity: 1,
	})
	require.NoError(t, err)
	itemID := updated.Items[0].ID

	qty := 5
	updated, err = svc.UpdateItem(ctx, p.ID, itemID, UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	require.Equal(t, 1000.0, updated.Items[0].Amount)
	require.Equal(t, 1000.0, updated.TotalAmount)
}

func TestDeleteItemShrinksTotal(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(11)
	updated, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID: &productID, Name: "Switch", Quantity: 1,
	})
	require.NoError(t, err)

	updated, err = svc.DeleteItem(ctx, p.ID, updated.Items[0].ID)
	require.NoError(t, err)
	require.Empty(t, updated.Items)
	require.Equal(t, 0.0, updated.TotalAmount)
}

func TestStatusTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	sent, err := svc.ChangeStatus(ctx, p.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	firstSent := *sent.SentAt

	won, err := svc.ChangeStatus(ctx, p.ID, StatusWon)
	require.NoError(t, err)
	require.Equal(t, StatusWon, won.Status)

	// WON cannot jump straight back to SENT.
	_, err = svc.ChangeStatus(ctx, p.ID, StatusSent)
	require.Error(t, err)

	// Reopen, resend: the original sent timestamp is preserved.
	_, err = svc.ChangeStatus(ctx, p.ID, StatusDraft)
	require.NoError(t, err)
	resent, err := svc.ChangeStatus(ctx, p.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, firstSent, *resent.SentAt)
}

func TestGetDecoratesItems(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	productID := int64(10)
	price := 1250.0
	_, err := svc.AddItem(ctx, p.ID, AddItemRequest{
		ProductID: &productID, Name: "Firewall", Quantity: 2, UnitPrice: &price,
	})
	require.NoError(t, err)

	view, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, 1.25, view.Items[0].Multiplier)
	require.Equal(t, 1300.0, view.Items[0].Profit)
	require.Equal(t, 52.0, view.Items[0].Margin)
	require.Equal(t, view.Summary.TotalAmount, view.TotalAmount)
}

func TestSummaryWithoutCacheComputesDirectly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	p := createDraft(t, svc)

	_, err := svc.AddExpense(ctx, p.ID, AddExpenseRequest{Description: "Travel", Amount: 500})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 500.0, summary.TotalAmount)
	require.Equal(t, 500.0, summary.TotalCost)
	require.Equal(t, 0.0, summary.GrossProfit)
}
