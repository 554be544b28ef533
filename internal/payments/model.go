package payments

import (
	"fmt"
	"time"
)

type TermStatus string

const (
	TermStatusPending TermStatus = "PENDING"
	TermStatusPaid    TermStatus = "PAID"
)

// DueKind discriminates the three due-date representations.
type DueKind string

const (
	DueKindNone      DueKind = ""
	DueKindCondition DueKind = "CONDITION"
	DueKindDays      DueKind = "DAYS"
	DueKindDate      DueKind = "DATE"
)

// DueSpec is the due-date representation of a payment term: a free-text
// condition, a days-after-anchor count, or an absolute date. Exactly one is
// carried; constructors are the only way to build a non-zero spec, so the
// unused fields can never leak through a write path.
type DueSpec struct {
	Kind      DueKind    `json:"kind"`
	Condition string     `json:"condition,omitempty"`
	Days      int        `json:"days,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
}

// DueOnCondition builds a condition-based due spec ("Upon signing").
func DueOnCondition(condition string) DueSpec {
	return DueSpec{Kind: DueKindCondition, Condition: condition}
}

// DueInDays builds a Net-N-days due spec.
func DueInDays(days int) DueSpec {
	return DueSpec{Kind: DueKindDays, Days: days}
}

// DueOnDate builds an absolute-date due spec.
func DueOnDate(date time.Time) DueSpec {
	d := date
	return DueSpec{Kind: DueKindDate, Date: &d}
}

// IsZero reports whether no due representation is set.
func (d DueSpec) IsZero() bool {
	return d.Kind == DueKindNone
}

// Display renders the spec for humans; an unset spec reads "not specified".
func (d DueSpec) Display() string {
	switch d.Kind {
	case DueKindCondition:
		return d.Condition
	case DueKindDays:
		return fmt.Sprintf("Net %d days", d.Days)
	case DueKindDate:
		if d.Date != nil {
			return d.Date.Format("2006-01-02")
		}
	}
	return "not specified"
}

// PaymentTerm is one scheduled installment of the proposal total. Percentage
// is the durable source of truth; Amount is always re-derived from it.
// SequenceNumber fixes display order explicitly; legacy records without one
// fall back to the name heuristic in SortTerms.
type PaymentTerm struct {
	ID             int64      `json:"id" db:"id"`
	ProposalID     int64      `json:"proposal_id" db:"proposal_id"`
	Name           string     `json:"name" db:"name"`
	Percentage     float64    `json:"percentage" db:"percentage"`
	Amount         float64    `json:"amount" db:"amount"`
	SequenceNumber int        `json:"sequence_number" db:"sequence_number"`
	Due            DueSpec    `json:"due" db:"-"`
	Status         TermStatus `json:"status" db:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	Method         *string    `json:"method,omitempty" db:"method"`
	Reference      *string    `json:"reference,omitempty" db:"reference"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPaid reports whether the term has been settled.
func (t PaymentTerm) IsPaid() bool {
	return t.Status == TermStatusPaid
}

// DueFromColumns rebuilds a DueSpec from the flat storage columns. Writes
// enforce exactly-one, but a legacy or hand-edited row can carry more than
// one representation; reads resolve that with a fixed precedence of
// date > days > condition and report the ambiguity so callers can log it.
func DueFromColumns(condition *string, days *int, date *time.Time) (due DueSpec, ambiguous bool) {
	set := 0
	if condition != nil && *condition != "" {
		set++
	}
	if days != nil && *days > 0 {
		set++
	}
	if date != nil && !date.IsZero() {
		set++
	}
	ambiguous = set > 1

	switch {
	case date != nil && !date.IsZero():
		return DueOnDate(*date), ambiguous
	case days != nil && *days > 0:
		return DueInDays(*days), ambiguous
	case condition != nil && *condition != "":
		return DueOnCondition(*condition), ambiguous
	}
	return DueSpec{}, false
}

// DueColumns flattens a DueSpec for storage, clearing the unused
// representations so the exactly-one invariant holds at write time.
func DueColumns(due DueSpec) (condition *string, days *int, date *time.Time) {
	switch due.Kind {
	case DueKindCondition:
		c := due.Condition
		return &c, nil, nil
	case DueKindDays:
		d := due.Days
		return nil, &d, nil
	case DueKindDate:
		if due.Date != nil {
			t := *due.Date
			return nil, nil, &t
		}
	}
	return nil, nil, nil
}
