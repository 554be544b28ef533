package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotedeck/quotedeck/internal/activity"
)

type fakeRepo struct {
	terms  map[int64]*PaymentTerm
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{terms: make(map[int64]*PaymentTerm), nextID: 1}
}

func (f *fakeRepo) ListByProposal(_ context.Context, proposalID int64) ([]PaymentTerm, error) {
	var out []PaymentTerm
	for id := int64(1); id < f.nextID; id++ {
		if t, ok := f.terms[id]; ok && t.ProposalID == proposalID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (*PaymentTerm, error) {
	t, ok := f.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeRepo) Create(_ context.Context, term *PaymentTerm) error {
	term.ID = f.nextID
	f.nextID++
	now := time.Now()
	term.CreatedAt = now
	term.UpdatedAt = now
	copied := *term
	f.terms[term.ID] = &copied
	return nil
}

func (f *fakeRepo) Update(_ context.Context, term *PaymentTerm) error {
	if _, ok := f.terms[term.ID]; !ok {
		return ErrNotFound
	}
	term.UpdatedAt = time.Now()
	copied := *term
	f.terms[term.ID] = &copied
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.terms[id]; !ok {
		return ErrNotFound
	}
	delete(f.terms, id)
	return nil
}

func (f *fakeRepo) ReplaceForProposal(ctx context.Context, proposalID int64, terms []PaymentTerm) ([]PaymentTerm, error) {
	for id, t := range f.terms {
		if t.ProposalID == proposalID {
			delete(f.terms, id)
		}
	}
	out := make([]PaymentTerm, 0, len(terms))
	for _, t := range terms {
		t.ProposalID = proposalID
		if err := f.Create(ctx, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) UpdateAmounts(_ context.Context, terms []PaymentTerm) error {
	for _, t := range terms {
		if stored, ok := f.terms[t.ID]; ok {
			stored.Amount = t.Amount
		}
	}
	return nil
}

func (f *fakeRepo) NextSequenceNumber(_ context.Context, proposalID int64) (int, error) {
	max := 0
	for _, t := range f.terms {
		if t.ProposalID == proposalID && t.SequenceNumber > max {
			max = t.SequenceNumber
		}
	}
	return max + 1, nil
}

type fakeProposals struct {
	info ProposalInfo
}

func (f *fakeProposals) ProposalInfo(context.Context, int64) (ProposalInfo, error) {
	return f.info, nil
}

func newTestService(total float64) (*Service, *fakeRepo, *fakeProposals) {
	repo := newFakeRepo()
	proposals := &fakeProposals{info: ProposalInfo{
		ID:          1,
		TotalAmount: total,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, proposals, activity.NopLogger{}, AnchorSent)
	return svc, repo, proposals
}

func TestCreateTermDerivesAmountAndSequence(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	first, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Deposit", Percentage: 30})
	require.NoError(t, err)
	require.Equal(t, 3000.0, first.Amount)
	require.Equal(t, 1, first.SequenceNumber)
	require.Equal(t, TermStatusPending, first.Status)

	second, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Balance", Percentage: 70})
	require.NoError(t, err)
	require.Equal(t, 7000.0, second.Amount)
	require.Equal(t, 2, second.SequenceNumber)
}

func TestCreateTermRejectsAmbiguousDue(t *testing.T) {
	svc, _, _ := newTestService(10000)
	condition := "Upon signing"
	days := 30

	_, err := svc.CreateTerm(context.Background(), 1, CreateTermRequest{
		Name:       "Deposit",
		Percentage: 30,
		Due:        &DueSpecRequest{Condition: &condition, Days: &days},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exactly one")
}

func TestUpdateTermPercentageRederivesAmount(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	term, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Deposit", Percentage: 30})
	require.NoError(t, err)

	pct := 40.0
	updated, err := svc.UpdateTerm(ctx, term.ID, UpdateTermRequest{Percentage: &pct})
	require.NoError(t, err)
	require.Equal(t, 4000.0, updated.Amount)
}

func TestApplyTemplateReplacesExistingSchedule(t *testing.T) {
	svc, repo, _ := newTestService(10000)
	ctx := context.Background()

	_, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Old term", Percentage: 100})
	require.NoError(t, err)

	terms, err := svc.ApplyTemplate(ctx, 1, "progressive")
	require.NoError(t, err)
	require.Len(t, terms, 3)
	require.Equal(t, 2000.0, terms[0].Amount)
	require.Equal(t, 3000.0, terms[1].Amount)
	require.Equal(t, 5000.0, terms[2].Amount)
	require.Equal(t, []int{1, 2, 3}, []int{terms[0].SequenceNumber, terms[1].SequenceNumber, terms[2].SequenceNumber})

	stored, err := repo.ListByProposal(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, term := range stored {
		require.NotEqual(t, "Old term", term.Name)
	}
}

func TestApplyTemplateUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(10000)

	_, err := svc.ApplyTemplate(context.Background(), 1, "no-such-template")
	require.Error(t, err)
}

func TestSyncAmountsFollowsNewTotal(t *testing.T) {
	svc, repo, proposals := newTestService(10000)
	ctx := context.Background()

	_, err := svc.ApplyTemplate(ctx, 1, "50-50")
	require.NoError(t, err)

	proposals.info.TotalAmount = 8000
	require.NoError(t, svc.SyncAmounts(ctx, 1, 8000))

	terms, err := repo.ListByProposal(ctx, 1)
	require.NoError(t, err)
	for _, term := range terms {
		require.Equal(t, 4000.0, term.Amount)
	}
}

func TestRecordPaymentStampsTerm(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	term, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Deposit", Percentage: 50})
	require.NoError(t, err)

	method := "bank_transfer"
	reference := "TX-1042"
	paid, err := svc.RecordPayment(ctx, term.ID, RecordPaymentRequest{Method: &method, Reference: &reference})
	require.NoError(t, err)
	require.True(t, paid.IsPaid())
	require.NotNil(t, paid.PaidAt)
	require.Equal(t, "bank_transfer", *paid.Method)
	require.Equal(t, "TX-1042", *paid.Reference)

	// Double payment is a conflict.
	_, err = svc.RecordPayment(ctx, term.ID, RecordPaymentRequest{})
	require.Error(t, err)
}

func TestUndoPaymentClearsStamp(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	term, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Deposit", Percentage: 50})
	require.NoError(t, err)

	_, err = svc.UndoPayment(ctx, term.ID)
	require.Error(t, err, "unpaid term cannot be reverted")

	_, err = svc.RecordPayment(ctx, term.ID, RecordPaymentRequest{})
	require.NoError(t, err)

	reverted, err := svc.UndoPayment(ctx, term.ID)
	require.NoError(t, err)
	require.False(t, reverted.IsPaid())
	require.Nil(t, reverted.PaidAt)
	require.Nil(t, reverted.Method)
	require.Nil(t, reverted.Reference)
}

func TestScheduleViewSortsAndAggregates(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	_, err := svc.ApplyTemplate(ctx, 1, "30-70")
	require.NoError(t, err)

	view, err := svc.Schedule(ctx, 1)
	require.NoError(t, err)
	require.Len(t, view.Terms, 2)
	require.Equal(t, "Deposit", view.Terms[0].Name)
	require.True(t, view.Status.Balanced)
	require.Empty(t, view.Warning)
	require.Equal(t, 10000.0, view.Status.TotalDue)
}

func TestScheduleWarnsOnUnbalancedPercentages(t *testing.T) {
	svc, _, _ := newTestService(10000)
	ctx := context.Background()

	_, err := svc.CreateTerm(ctx, 1, CreateTermRequest{Name: "Deposit", Percentage: 30})
	require.NoError(t, err)

	view, err := svc.Schedule(ctx, 1)
	require.NoError(t, err)
	require.False(t, view.Status.Balanced)
	require.Contains(t, view.Warning, "30.00%")
}
