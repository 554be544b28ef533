package payments

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pure schedule computations. The service layer persists; everything in this
// file operates on in-memory snapshots and a proposal total supplied by the
// financial engine.

// Epsilon bounds floating comparisons on derived money values.
const Epsilon = 1e-6

// AnchorPolicy selects the reference point for Net-N-days terms. Evaluating
// them against "now" never stabilises, so the policy makes the choice
// explicit instead of hard-coding one.
type AnchorPolicy string

const (
	AnchorSent       AnchorPolicy = "sent"
	AnchorCreated    AnchorPolicy = "created"
	AnchorEvaluation AnchorPolicy = "now"
)

// ResolveAnchor picks the Net-N reference point. AnchorSent falls back to the
// creation date when the proposal was never sent.
func ResolveAnchor(policy AnchorPolicy, sentAt *time.Time, createdAt time.Time, now time.Time) time.Time {
	switch policy {
	case AnchorSent:
		if sentAt != nil && !sentAt.IsZero() {
			return *sentAt
		}
		if !createdAt.IsZero() {
			return createdAt
		}
		return now
	case AnchorCreated:
		if !createdAt.IsZero() {
			return createdAt
		}
		return now
	default:
		return now
	}
}

// TermAmount derives an installment amount from the proposal total and the
// term's percentage, rounded to cents.
func TermAmount(total, percentage float64) float64 {
	return decimal.NewFromFloat(total).
		Mul(decimal.NewFromFloat(percentage)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// RecomputeAmounts re-derives every term's amount from its stored percentage.
// Percentages are the durable source of truth; calling this twice against the
// same total is a no-op.
func RecomputeAmounts(terms []PaymentTerm, total float64) {
	for i := range terms {
		terms[i].Amount = TermAmount(total, terms[i].Percentage)
	}
}

// TotalPercentage sums the stored percentages.
func TotalPercentage(terms []PaymentTerm) float64 {
	sum := decimal.Zero
	for _, t := range terms {
		sum = sum.Add(decimal.NewFromFloat(t.Percentage))
	}
	return sum.InexactFloat64()
}

// PercentagesBalanced reports whether percentages sum to 100. Callers surface
// this as a warning; an unbalanced schedule never blocks a save.
func PercentagesBalanced(terms []PaymentTerm) bool {
	diff := TotalPercentage(terms) - 100
	return diff > -Epsilon && diff < Epsilon
}

// TotalPaid sums the amounts of settled terms.
func TotalPaid(terms []PaymentTerm) float64 {
	sum := decimal.Zero
	for _, t := range terms {
		if t.IsPaid() {
			sum = sum.Add(decimal.NewFromFloat(t.Amount))
		}
	}
	return sum.Round(2).InexactFloat64()
}

// TotalDue is the proposal total minus what has been paid.
func TotalDue(total float64, terms []PaymentTerm) float64 {
	return decimal.NewFromFloat(total).
		Sub(decimal.NewFromFloat(TotalPaid(terms))).
		Round(2).
		InexactFloat64()
}

// IsFullyPaid reports whether nothing remains due. A proposal with no terms
// at all is never fully paid.
func IsFullyPaid(total float64, terms []PaymentTerm) bool {
	if len(terms) == 0 {
		return false
	}
	return TotalDue(total, terms) <= Epsilon
}

// ResolveDueDate turns a term's due spec into a concrete date where one
// exists. Condition-based terms have no resolvable date.
func ResolveDueDate(term PaymentTerm, anchor time.Time) (time.Time, bool) {
	switch term.Due.Kind {
	case DueKindDate:
		if term.Due.Date != nil {
			return *term.Due.Date, true
		}
	case DueKindDays:
		return anchor.AddDate(0, 0, term.Due.Days), true
	}
	return time.Time{}, false
}

// HasOverdue reports whether any unpaid term's resolved due date has passed.
func HasOverdue(terms []PaymentTerm, anchor, now time.Time) bool {
	for _, t := range terms {
		if t.IsPaid() {
			continue
		}
		due, ok := ResolveDueDate(t, anchor)
		if ok && due.Before(now) {
			return true
		}
	}
	return false
}

// OverdueTerms returns the unpaid terms whose resolved due date has passed.
func OverdueTerms(terms []PaymentTerm, anchor, now time.Time) []PaymentTerm {
	var out []PaymentTerm
	for _, t := range terms {
		if t.IsPaid() {
			continue
		}
		due, ok := ResolveDueDate(t, anchor)
		if ok && due.Before(now) {
			out = append(out, t)
		}
	}
	return out
}

// ordinalFromName is the legacy display-order heuristic kept for records
// created before sequence numbers existed. Name substrings map to ordinals;
// "final" always sorts last.
func ordinalFromName(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "final"):
		return 1 << 20
	case strings.Contains(lower, "first"):
		return 1
	case strings.Contains(lower, "second"):
		return 2
	case strings.Contains(lower, "third"):
		return 3
	case strings.Contains(lower, "fourth"):
		return 4
	}
	return 0
}

// SortTerms orders terms for display: explicit sequence number first, then
// the name-ordinal heuristic for legacy rows, then ascending due days, then
// descending percentage. The sort is stable so equal terms keep their
// insertion order.
func SortTerms(terms []PaymentTerm) {
	sort.SliceStable(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]

		aSeq, bSeq := a.SequenceNumber, b.SequenceNumber
		if aSeq > 0 || bSeq > 0 {
			if aSeq > 0 && bSeq > 0 {
				return aSeq < bSeq
			}
			// Sequenced terms come before legacy ones.
			return aSeq > 0
		}

		aOrd, bOrd := ordinalFromName(a.Name), ordinalFromName(b.Name)
		if aOrd != bOrd {
			if aOrd == 0 {
				return false
			}
			if bOrd == 0 {
				return true
			}
			return aOrd < bOrd
		}

		aDays, bDays := dueDays(a), dueDays(b)
		if aDays != bDays {
			return aDays < bDays
		}

		return a.Percentage > b.Percentage
	})
}

func dueDays(t PaymentTerm) int {
	if t.Due.Kind == DueKindDays {
		return t.Due.Days
	}
	return 1 << 30
}

// ScheduleStatus aggregates payment state for one proposal.
type ScheduleStatus struct {
	TotalAmount     float64 `json:"total_amount"`
	TotalPaid       float64 `json:"total_paid"`
	TotalDue        float64 `json:"total_due"`
	TotalPercentage float64 `json:"total_percentage"`
	Balanced        bool    `json:"balanced"`
	FullyPaid       bool    `json:"fully_paid"`
	HasOverdue      bool    `json:"has_overdue"`
	TermCount       int     `json:"term_count"`
}

// AggregateStatus derives the schedule status from a term snapshot.
func AggregateStatus(total float64, terms []PaymentTerm, anchor, now time.Time) ScheduleStatus {
	return ScheduleStatus{
		TotalAmount:     total,
		TotalPaid:       TotalPaid(terms),
		TotalDue:        TotalDue(total, terms),
		TotalPercentage: TotalPercentage(terms),
		Balanced:        PercentagesBalanced(terms),
		FullyPaid:       IsFullyPaid(total, terms),
		HasOverdue:      HasOverdue(terms, anchor, now),
		TermCount:       len(terms),
	}
}
