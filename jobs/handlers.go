package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	"github.com/quotedeck/quotedeck/internal/activity"
	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/payments"
	"github.com/quotedeck/quotedeck/internal/proposals"
	"github.com/quotedeck/quotedeck/report"
)

// Deps collects the services task handlers work against.
type Deps struct {
	Logger    *slog.Logger
	Proposals *proposals.Service
	Customers *customers.Service
	Payments  *payments.Service
	Activity  activity.Logger
	Renderer  *report.Renderer
	PDF       *report.Client

	ExportDir string
	SMTPAddr  string
	SMTPFrom  string
}

// HandleProposalExport renders the proposal to PDF and writes it under the
// export directory as <number>.pdf.
func (d *Deps) HandleProposalExport(ctx context.Context, t *asynq.Task) error {
	var payload ProposalExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	view, err := d.Proposals.Get(ctx, payload.ProposalID)
	if err != nil {
		return fmt.Errorf("load proposal %d: %w", payload.ProposalID, err)
	}
	customer, err := d.Customers.Get(ctx, view.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer %d: %w", view.CustomerID, err)
	}
	schedule, err := d.Payments.Schedule(ctx, payload.ProposalID)
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	html, err := d.Renderer.RenderProposal(report.ProposalDocument{
		Proposal: view,
		Customer: customer,
		Schedule: schedule,
	})
	if err != nil {
		return err
	}

	pdf, err := d.PDF.RenderPDF(ctx, html)
	if err != nil {
		return fmt.Errorf("convert to pdf: %w", err)
	}

	if err := os.MkdirAll(d.ExportDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.ExportDir, view.Number+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return err
	}

	d.Logger.Info("proposal exported",
		slog.Int64("proposal_id", payload.ProposalID),
		slog.String("path", path))
	d.recordActivity(ctx, payload.ProposalID, activity.KindExportRequested,
		fmt.Sprintf("Proposal exported to %s", filepath.Base(path)))
	return nil
}

// HandleSendEmail mails the proposal notification through the configured SMTP
// relay.
func (d *Deps) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		d.SMTPFrom, payload.To, payload.Subject, payload.Body)
	if err := smtp.SendMail(d.SMTPAddr, nil, d.SMTPFrom, []string{payload.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", payload.To, err)
	}

	d.Logger.Info("proposal email sent",
		slog.Int64("proposal_id", payload.ProposalID),
		slog.String("to", payload.To))
	return nil
}

// HandleOverdueScan walks sent proposals and records an activity entry for
// each with overdue unpaid terms, so the feed surfaces them without anyone
// opening the proposal.
func (d *Deps) HandleOverdueScan(ctx context.Context, _ *asynq.Task) error {
	status := proposals.StatusSent
	sent, _, err := d.Proposals.List(ctx, proposals.ListProposalsRequest{Status: &status, Limit: 500})
	if err != nil {
		return fmt.Errorf("list sent proposals: %w", err)
	}

	flagged := 0
	for _, p := range sent {
		scheduleStatus, err := d.Payments.Status(ctx, p.ID)
		if err != nil {
			d.Logger.Warn("overdue scan skipped proposal",
				slog.Int64("proposal_id", p.ID),
				slog.Any("error", err))
			continue
		}
		if !scheduleStatus.HasOverdue {
			continue
		}
		flagged++
		d.recordActivity(ctx, p.ID, activity.KindPaymentOverdue,
			fmt.Sprintf("Overdue payment detected; %.2f still due", scheduleStatus.TotalDue))
	}

	d.Logger.Info("overdue scan finished",
		slog.Int("scanned", len(sent)),
		slog.Int("flagged", flagged))
	return nil
}

func (d *Deps) recordActivity(ctx context.Context, proposalID int64, kind, description string) {
	if d.Activity == nil {
		return
	}
	if err := d.Activity.Record(ctx, activity.Entry{
		ProposalID:  proposalID,
		Kind:        kind,
		Description: description,
	}); err != nil {
		d.Logger.Warn("activity record failed",
			slog.Int64("proposal_id", proposalID),
			slog.Any("error", err))
	}
}
