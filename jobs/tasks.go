package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskProposalExportPDF renders a proposal to PDF and stores it.
	TaskProposalExportPDF = "proposal:export_pdf"
	// TaskProposalSendEmail emails an exported proposal to the customer.
	TaskProposalSendEmail = "proposal:send_email"
	// TaskOverdueScan walks unpaid payment terms and flags overdue ones.
	TaskOverdueScan = "payments:overdue_scan"
)

// ProposalExportPayload identifies the proposal to render.
type ProposalExportPayload struct {
	ProposalID int64 `json:"proposal_id"`
}

// NewProposalExportTask constructs an export task.
func NewProposalExportTask(payload ProposalExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProposalExportPDF, data), nil
}

// SendEmailPayload describes the proposal email to send.
type SendEmailPayload struct {
	ProposalID int64  `json:"proposal_id"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// NewSendEmailTask constructs a send-email task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProposalSendEmail, data), nil
}

// NewOverdueScanTask constructs the periodic overdue scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueScan, nil)
}
