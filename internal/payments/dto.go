package payments

import "time"

// DueSpecRequest carries one due-date representation on the wire. Validation
// rejects requests carrying more than one.
type DueSpecRequest struct {
	Condition *string    `json:"condition,omitempty" validate:"omitempty,max=255"`
	Days      *int       `json:"days,omitempty" validate:"omitempty,gt=0,lte=3650"`
	Date      *time.Time `json:"date,omitempty"`
}

// Spec converts the request into a DueSpec, reporting how many
// representations were supplied.
func (r DueSpecRequest) Spec() (DueSpec, int) {
	set := 0
	if r.Condition != nil && *r.Condition != "" {
		set++
	}
	if r.Days != nil {
		set++
	}
	if r.Date != nil {
		set++
	}

	switch {
	case r.Date != nil:
		return DueOnDate(*r.Date), set
	case r.Days != nil:
		return DueInDays(*r.Days), set
	case r.Condition != nil && *r.Condition != "":
		return DueOnCondition(*r.Condition), set
	}
	return DueSpec{}, set
}

type CreateTermRequest struct {
	Name       string          `json:"name" validate:"required,max=255"`
	Percentage float64         `json:"percentage" validate:"required,gt=0,lte=100"`
	Due        *DueSpecRequest `json:"due,omitempty"`
}

type UpdateTermRequest struct {
	Name       *string         `json:"name,omitempty" validate:"omitempty,max=255"`
	Percentage *float64        `json:"percentage,omitempty" validate:"omitempty,gt=0,lte=100"`
	Due        *DueSpecRequest `json:"due,omitempty"`
}

type ApplyTemplateRequest struct {
	TemplateKey string `json:"template_key" validate:"required,max=64"`
}

type RecordPaymentRequest struct {
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	Method    *string    `json:"method,omitempty" validate:"omitempty,max=64"`
	Reference *string    `json:"reference,omitempty" validate:"omitempty,max=128"`
}

// ScheduleView is the list response: terms in display order plus the
// aggregate status and the soft percentage warning.
type ScheduleView struct {
	Terms   []PaymentTerm  `json:"terms"`
	Status  ScheduleStatus `json:"status"`
	Warning string         `json:"warning,omitempty"`
}
