package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTermAmountDerivation(t *testing.T) {
	require.Equal(t, 5000.0, TermAmount(10000, 50))
	require.Equal(t, 3333.34, TermAmount(9999.99, 33.3334))
	require.Equal(t, 0.0, TermAmount(0, 50))
}

func TestRecomputeAmountsIsIdempotent(t *testing.T) {
	terms := []PaymentTerm{
		{Name: "First installment", Percentage: 40},
		{Name: "Final installment", Percentage: 60},
	}

	RecomputeAmounts(terms, 12345.67)
	first := []float64{terms[0].Amount, terms[1].Amount}

	RecomputeAmounts(terms, 12345.67)
	require.Equal(t, first[0], terms[0].Amount)
	require.Equal(t, first[1], terms[1].Amount)
}

func TestRecomputeAmountsFollowsTotal(t *testing.T) {
	terms := []PaymentTerm{{Percentage: 50}, {Percentage: 50}}

	RecomputeAmounts(terms, 10000)
	require.Equal(t, 5000.0, terms[0].Amount)

	RecomputeAmounts(terms, 8000)
	require.Equal(t, 4000.0, terms[0].Amount)
	require.Equal(t, 4000.0, terms[1].Amount)
}

func TestFiftyFiftyTemplate(t *testing.T) {
	tpl, ok := TemplateByKey("50-50")
	require.True(t, ok)
	require.Len(t, tpl.Lines, 2)

	terms := make([]PaymentTerm, 0, len(tpl.Lines))
	for i, line := range tpl.Lines {
		terms = append(terms, PaymentTerm{
			Name:           line.Name,
			Percentage:     line.Percentage,
			SequenceNumber: i + 1,
			Due:            line.Due,
			Amount:         TermAmount(10000, line.Percentage),
		})
	}

	require.Equal(t, 5000.0, terms[0].Amount)
	require.Equal(t, 5000.0, terms[1].Amount)
	require.Equal(t, "Upon signing", terms[0].Due.Display())
	require.Equal(t, "Net 30 days", terms[1].Due.Display())
	require.True(t, PercentagesBalanced(terms))
}

func TestBuiltinTemplatesAllBalance(t *testing.T) {
	for _, tpl := range BuiltinTemplates() {
		terms := make([]PaymentTerm, 0, len(tpl.Lines))
		for _, line := range tpl.Lines {
			require.False(t, line.Due.IsZero(), "template %s line %q has no due spec", tpl.Key, line.Name)
			terms = append(terms, PaymentTerm{Percentage: line.Percentage})
		}
		require.True(t, PercentagesBalanced(terms), "template %s does not sum to 100", tpl.Key)
	}
}

func TestPercentageWarningIsSoft(t *testing.T) {
	terms := []PaymentTerm{{Percentage: 30}, {Percentage: 30}}
	require.False(t, PercentagesBalanced(terms))
	require.InDelta(t, 60.0, TotalPercentage(terms), Epsilon)
}

func TestFullyPaidDetection(t *testing.T) {
	terms := []PaymentTerm{
		{Percentage: 100, Amount: 1000, Status: TermStatusPaid},
	}

	require.Equal(t, 1000.0, TotalPaid(terms))
	require.Equal(t, 0.0, TotalDue(1000, terms))
	require.True(t, IsFullyPaid(1000, terms))
}

func TestNoTermsIsNeverFullyPaid(t *testing.T) {
	require.False(t, IsFullyPaid(0, nil))
	require.False(t, IsFullyPaid(1000, nil))
}

func TestPartialPaymentLeavesBalanceDue(t *testing.T) {
	terms := []PaymentTerm{
		{Percentage: 50, Amount: 500, Status: TermStatusPaid},
		{Percentage: 50, Amount: 500},
	}

	require.Equal(t, 500.0, TotalPaid(terms))
	require.Equal(t, 500.0, TotalDue(1000, terms))
	require.False(t, IsFullyPaid(1000, terms))
}

func TestOverdueDetectionNetDays(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	anchor := now.AddDate(0, 0, -45)

	terms := []PaymentTerm{
		{Name: "First installment", Due: DueInDays(30)},
	}

	require.True(t, HasOverdue(terms, anchor, now))

	// Paid terms are never overdue.
	terms[0].Status = TermStatusPaid
	require.False(t, HasOverdue(terms, anchor, now))
}

func TestOverdueDetectionAbsoluteDate(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	past := []PaymentTerm{{Due: DueOnDate(now.AddDate(0, 0, -1))}}
	future := []PaymentTerm{{Due: DueOnDate(now.AddDate(0, 0, 1))}}

	require.True(t, HasOverdue(past, now, now))
	require.False(t, HasOverdue(future, now, now))
}

func TestConditionTermsNeverOverdue(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	terms := []PaymentTerm{{Due: DueOnCondition("Upon signing")}}

	require.False(t, HasOverdue(terms, now.AddDate(0, -6, 0), now))

	_, ok := ResolveDueDate(terms[0], now)
	require.False(t, ok)
}

func TestResolveAnchorPolicies(t *testing.T) {
	created := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	sent := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, sent, ResolveAnchor(AnchorSent, &sent, created, now))
	require.Equal(t, created, ResolveAnchor(AnchorSent, nil, created, now))
	require.Equal(t, created, ResolveAnchor(AnchorCreated, &sent, created, now))
	require.Equal(t, now, ResolveAnchor(AnchorEvaluation, &sent, created, now))
}

func TestDueColumnsRoundTrip(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for _, due := range []DueSpec{
		DueOnCondition("Upon signing"),
		DueInDays(30),
		DueOnDate(date),
	} {
		condition, days, dateCol := DueColumns(due)

		// Exactly one representation survives the write path.
		set := 0
		if condition != nil {
			set++
		}
		if days != nil {
			set++
		}
		if dateCol != nil {
			set++
		}
		require.Equal(t, 1, set)

		back, ambiguous := DueFromColumns(condition, days, dateCol)
		require.False(t, ambiguous)
		require.Equal(t, due.Kind, back.Kind)
	}
}

func TestDueFromColumnsAmbiguousPrecedence(t *testing.T) {
	condition := "Upon signing"
	days := 30
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// All three set: date wins.
	due, ambiguous := DueFromColumns(&condition, &days, &date)
	require.True(t, ambiguous)
	require.Equal(t, DueKindDate, due.Kind)

	// Days and condition: days win.
	due, ambiguous = DueFromColumns(&condition, &days, nil)
	require.True(t, ambiguous)
	require.Equal(t, DueKindDays, due.Kind)

	// Nothing set.
	due, ambiguous = DueFromColumns(nil, nil, nil)
	require.False(t, ambiguous)
	require.True(t, due.IsZero())
	require.Equal(t, "not specified", due.Display())
}

func TestSortTermsBySequenceNumber(t *testing.T) {
	terms := []PaymentTerm{
		{Name: "Final installment", SequenceNumber: 3},
		{Name: "First installment", SequenceNumber: 1},
		{Name: "Second installment", SequenceNumber: 2},
	}

	SortTerms(terms)
	require.Equal(t, "First installment", terms[0].Name)
	require.Equal(t, "Second installment", terms[1].Name)
	require.Equal(t, "Final installment", terms[2].Name)
}

func TestSortTermsLegacyNameHeuristic(t *testing.T) {
	terms := []PaymentTerm{
		{Name: "Final payment"},
		{Name: "Second payment"},
		{Name: "First payment"},
	}

	SortTerms(terms)
	require.Equal(t, "First payment", terms[0].Name)
	require.Equal(t, "Second payment", terms[1].Name)
	require.Equal(t, "Final payment", terms[2].Name)
}

func TestSortTermsFallbacks(t *testing.T) {
	// No sequence, no recognisable name: due days ascending, then
	// percentage descending.
	terms := []PaymentTerm{
		{Name: "B", Due: DueInDays(60), Percentage: 20},
		{Name: "A", Due: DueInDays(30), Percentage: 10},
		{Name: "D", Due: DueOnCondition("Later"), Percentage: 5},
		{Name: "C", Due: DueOnCondition("Whenever"), Percentage: 65},
	}

	SortTerms(terms)
	require.Equal(t, "A", terms[0].Name)
	require.Equal(t, "B", terms[1].Name)
	require.Equal(t, "C", terms[2].Name)
	require.Equal(t, "D", terms[3].Name)
}

func TestSequencedTermsComeBeforeLegacy(t *testing.T) {
	terms := []PaymentTerm{
		{Name: "Legacy"},
		{Name: "Sequenced", SequenceNumber: 1},
	}

	SortTerms(terms)
	require.Equal(t, "Sequenced", terms[0].Name)
}

func TestAggregateStatus(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	anchor := now.AddDate(0, 0, -60)
	terms := []PaymentTerm{
		{Percentage: 50, Amount: 500, Status: TermStatusPaid},
		{Percentage: 50, Amount: 500, Due: DueInDays(30)},
	}

	status := AggregateStatus(1000, terms, anchor, now)
	require.Equal(t, 500.0, status.TotalPaid)
	require.Equal(t, 500.0, status.TotalDue)
	require.True(t, status.Balanced)
	require.False(t, status.FullyPaid)
	require.True(t, status.HasOverdue)
	require.Equal(t, 2, status.TermCount)
}
