package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// ProposalInfo is the slice of proposal state the schedule needs: the total
// that amounts derive from and the timestamps that anchor Net-N terms.
type ProposalInfo struct {
	ID          int64
	TotalAmount float64
	SentAt      *time.Time
	CreatedAt   time.Time
}

// ProposalSource supplies proposal snapshots without coupling this package to
// the proposal aggregate.
type ProposalSource interface {
	ProposalInfo(ctx context.Context, proposalID int64) (ProposalInfo, error)
}

// Service handles payment-schedule business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	proposals ProposalSource
	activity  activity.Logger
	anchor    AnchorPolicy
	now       func() time.Time
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, proposals ProposalSource, log activity.Logger, anchor AnchorPolicy) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		proposals: proposals,
		activity:  log,
		anchor:    anchor,
		now:       time.Now,
	}
}

// Schedule returns the proposal's terms in display order together with the
// aggregate status. An unbalanced percentage sum surfaces as a warning only.
func (s *Service) Schedule(ctx context.Context, proposalID int64) (*ScheduleView, error) {
	info, err := s.proposals.ProposalInfo(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	terms, err := s.repo.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	SortTerms(terms)

	now := s.now()
	anchor := ResolveAnchor(s.anchor, info.SentAt, info.CreatedAt, now)
	view := &ScheduleView{
		Terms:  terms,
		Status: AggregateStatus(info.TotalAmount, terms, anchor, now),
	}
	if len(terms) > 0 && !view.Status.Balanced {
		view.Warning = fmt.Sprintf("payment percentages sum to %.2f%%, not 100%%", view.Status.TotalPercentage)
	}
	return view, nil
}

// Status returns the aggregate schedule status on its own.
func (s *Service) Status(ctx context.Context, proposalID int64) (ScheduleStatus, error) {
	view, err := s.Schedule(ctx, proposalID)
	if err != nil {
		return ScheduleStatus{}, err
	}
	return view.Status, nil
}

// CreateTerm adds a term to the schedule. The amount is derived from the
// current proposal total; the sequence number is assigned past the highest in
// use.
func (s *Service) CreateTerm(ctx context.Context, proposalID int64, req CreateTermRequest) (*PaymentTerm, error) {
	info, err := s.proposals.ProposalInfo(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	due, err := s.resolveDue(req.Due)
	if err != nil {
		return nil, err
	}

	seq, err := s.repo.NextSequenceNumber(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	term := &PaymentTerm{
		ProposalID:     proposalID,
		Name:           req.Name,
		Percentage:     req.Percentage,
		Amount:         TermAmount(info.TotalAmount, req.Percentage),
		SequenceNumber: seq,
		Due:            due,
		Status:         TermStatusPending,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindProposalUpdated,
		fmt.Sprintf("Payment term %q added (%.2f%%)", term.Name, term.Percentage))
	s.warnIfUnbalanced(ctx, proposalID)
	return term, nil
}

// UpdateTerm changes a term's name, percentage, or due spec. A percentage
// change re-derives the amount from the current total.
func (s *Service) UpdateTerm(ctx context.Context, termID int64, req UpdateTermRequest) (*PaymentTerm, error) {
	term, err := s.repo.Get(ctx, termID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		term.Name = *req.Name
	}
	if req.Percentage != nil {
		info, err := s.proposals.ProposalInfo(ctx, term.ProposalID)
		if err != nil {
			return nil, err
		}
		term.Percentage = *req.Percentage
		term.Amount = TermAmount(info.TotalAmount, term.Percentage)
	}
	if req.Due != nil {
		due, err := s.resolveDue(req.Due)
		if err != nil {
			return nil, err
		}
		term.Due = due
	}

	if err := s.repo.Update(ctx, term); err != nil {
		return nil, err
	}

	s.record(ctx, term.ProposalID, activity.KindProposalUpdated,
		fmt.Sprintf("Payment term %q updated", term.Name))
	s.warnIfUnbalanced(ctx, term.ProposalID)
	return term, nil
}

// DeleteTerm removes a term from the schedule.
func (s *Service) DeleteTerm(ctx context.Context, termID int64) error {
	term, err := s.repo.Get(ctx, termID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, termID); err != nil {
		return err
	}
	s.record(ctx, term.ProposalID, activity.KindProposalUpdated,
		fmt.Sprintf("Payment term %q removed", term.Name))
	return nil
}

// Templates lists the built-in schedule presets.
func (s *Service) Templates() []ScheduleTemplate {
	return BuiltinTemplates()
}

// ApplyTemplate replaces the proposal's entire schedule with a preset. Terms
// get sequence numbers in template order and amounts derived from the current
// total. Recorded payments on the old terms are discarded with the terms.
func (s *Service) ApplyTemplate(ctx context.Context, proposalID int64, key string) ([]PaymentTerm, error) {
	tpl, ok := TemplateByKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: unknown template %q", httpx.ErrValidation, key)
	}
	info, err := s.proposals.ProposalInfo(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	terms := make([]PaymentTerm, 0, len(tpl.Lines))
	for i, line := range tpl.Lines {
		terms = append(terms, PaymentTerm{
			ProposalID:     proposalID,
			Name:           line.Name,
			Percentage:     line.Percentage,
			Amount:         TermAmount(info.TotalAmount, line.Percentage),
			SequenceNumber: i + 1,
			Due:            line.Due,
			Status:         TermStatusPending,
		})
	}

	created, err := s.repo.ReplaceForProposal(ctx, proposalID, terms)
	if err != nil {
		return nil, err
	}

	s.record(ctx, proposalID, activity.KindTemplateApplied,
		fmt.Sprintf("Payment template %q applied (%d terms)", tpl.Name, len(created)))
	return created, nil
}

// SyncAmounts re-derives every term amount after the proposal total changed.
// Callers invoke it from the same logical mutation that changed the total.
func (s *Service) SyncAmounts(ctx context.Context, proposalID int64, total float64) error {
	terms, err := s.repo.ListByProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if len(terms) == 0 {
		return nil
	}
	RecomputeAmounts(terms, total)
	return s.repo.UpdateAmounts(ctx, terms)
}

// RecordPayment marks a term paid, stamping the payment time, method and
// reference on the term itself.
func (s *Service) RecordPayment(ctx context.Context, termID int64, req RecordPaymentRequest) (*PaymentTerm, error) {
	term, err := s.repo.Get(ctx, termID)
	if err != nil {
		return nil, err
	}
	if term.IsPaid() {
		return nil, fmt.Errorf("%w: term %d is already paid", httpx.ErrConflict, termID)
	}

	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	term.Status = TermStatusPaid
	term.PaidAt = &paidAt
	term.Method = req.Method
	term.Reference = req.Reference

	if err := s.repo.Update(ctx, term); err != nil {
		return nil, err
	}

	s.record(ctx, term.ProposalID, activity.KindPaymentRecorded,
		fmt.Sprintf("Payment recorded for term %q (%.2f)", term.Name, term.Amount))

	if info, err := s.proposals.ProposalInfo(ctx, term.ProposalID); err == nil {
		terms, err := s.repo.ListByProposal(ctx, term.ProposalID)
		if err == nil && IsFullyPaid(info.TotalAmount, terms) {
			s.record(ctx, term.ProposalID, activity.KindPaymentRecorded, "Proposal fully paid")
		}
	}
	return term, nil
}

// UndoPayment reverts a paid term to pending and clears the payment fields.
func (s *Service) UndoPayment(ctx context.Context, termID int64) (*PaymentTerm, error) {
	term, err := s.repo.Get(ctx, termID)
	if err != nil {
		return nil, err
	}
	if !term.IsPaid() {
		return nil, fmt.Errorf("%w: term %d is not paid", httpx.ErrConflict, termID)
	}

	term.Status = TermStatusPending
	term.PaidAt = nil
	term.Method = nil
	term.Reference = nil

	if err := s.repo.Update(ctx, term); err != nil {
		return nil, err
	}

	s.record(ctx, term.ProposalID, activity.KindPaymentReverted,
		fmt.Sprintf("Payment reverted for term %q", term.Name))
	return term, nil
}

// resolveDue validates the exactly-one invariant at the write boundary.
func (s *Service) resolveDue(req *DueSpecRequest) (DueSpec, error) {
	if req == nil {
		return DueSpec{}, nil
	}
	due, set := req.Spec()
	if set > 1 {
		return DueSpec{}, fmt.Errorf("%w: due spec must carry exactly one of condition, days, date", httpx.ErrValidation)
	}
	return due, nil
}

func (s *Service) warnIfUnbalanced(ctx context.Context, proposalID int64) {
	terms, err := s.repo.ListByProposal(ctx, proposalID)
	if err != nil {
		return
	}
	if len(terms) > 0 && !PercentagesBalanced(terms) {
		s.logger.Warn("payment percentages unbalanced",
			slog.Int64("proposal_id", proposalID),
			slog.Float64("total_percentage", TotalPercentage(terms)))
	}
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
