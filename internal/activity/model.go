package activity

import "time"

// Event kinds recorded against a proposal.
const (
	KindProposalCreated = "proposal.created"
	KindProposalUpdated = "proposal.updated"
	KindStatusChanged   = "proposal.status_changed"
	KindItemAdded       = "item.added"
	KindItemUpdated     = "item.updated"
	KindItemRemoved     = "item.removed"
	KindPaymentRecorded = "payment.recorded"
	KindPaymentReverted = "payment.reverted"
	KindTemplateApplied = "payment.template_applied"
	KindPaymentOverdue  = "payment.overdue"
	KindExportRequested = "export.requested"
)

// Entry is one activity-log record for a proposal.
type Entry struct {
	ID          int64     `json:"id" db:"id"`
	ProposalID  int64     `json:"proposal_id" db:"proposal_id"`
	Kind        string    `json:"kind" db:"kind"`
	Description string    `json:"description" db:"description"`
	Detail      *string   `json:"detail,omitempty" db:"detail"`
	OccurredAt  time.Time `json:"occurred_at" db:"occurred_at"`
}
