package proposals

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func productID(id int64) *int64 {
	return &id
}

func testProposal() *Proposal {
	items := []LineItem{
		{ProductID: productID(10), Name: "Controller", Quantity: 2, UnitPrice: 150, ListPrice: 200, PartnerPrice: 50, ApplyCustomTax: true},
		{ProductID: productID(11), Name: "Sensor", Quantity: 4, UnitPrice: 50, ListPrice: 60, PartnerPrice: 50},
		{ProductID: productID(12), Name: "Gateway", Quantity: 3, UnitPrice: 120, ListPrice: 150, PartnerPrice: 100, ApplyCustomTax: true},
	}
	for i := range items {
		items[i].Amount = LineItemAmount(items[i])
	}
	engineering := []EngineeringEntry{
		{Description: "Commissioning", Days: 2, DailyRate: 800},
	}
	for i := range engineering {
		engineering[i].Amount = EngineeringAmount(engineering[i])
	}
	return &Proposal{
		Items:       items,
		Engineering: engineering,
		Expenses: []ExpenseEntry{
			{Description: "Travel", Amount: 250},
		},
		Taxes: []CustomTax{
			{Name: "Import duty", Rate: 10},
		},
	}
}

func TestTotalAmountDecomposition(t *testing.T) {
	p := testProposal()

	base := TaxableProductsAmount(p.Items)
	sum := SubtotalProducts(p.Items) +
		SubtotalEngineering(p.Engineering) +
		SubtotalExpenses(p.Expenses) +
		SubtotalTaxes(p.Taxes, base)

	require.InDelta(t, sum, TotalAmount(p), 1e-6)
}

func TestTaxableBaseOnlyIncludesFlaggedItems(t *testing.T) {
	items := []LineItem{
		{ProductID: productID(1), Quantity: 1, PartnerPrice: 100, ApplyCustomTax: true},
		{ProductID: productID(2), Quantity: 1, PartnerPrice: 200},
		{ProductID: productID(3), Quantity: 1, PartnerPrice: 300, ApplyCustomTax: true},
	}
	taxes := []CustomTax{{Name: "Duty", Rate: 10}}

	base := TaxableProductsAmount(items)
	require.InDelta(t, 400.0, base, 1e-6)
	require.InDelta(t, 40.0, SubtotalTaxes(taxes, base), 1e-6)
}

func TestTaxesShareOneBaseWithoutCompounding(t *testing.T) {
	items := []LineItem{
		{ProductID: productID(1), Quantity: 2, PartnerPrice: 500, ApplyCustomTax: true},
	}
	taxes := []CustomTax{
		{Name: "Duty", Rate: 10},
		{Name: "Levy", Rate: 5},
	}

	base := TaxableProductsAmount(items)
	require.InDelta(t, 1000.0, base, 1e-6)
	// 10% of 1000 plus 5% of 1000, each against the same base.
	require.InDelta(t, 150.0, SubtotalTaxes(taxes, base), 1e-6)
}

func TestProfitMarginZeroWhenEmpty(t *testing.T) {
	p := &Proposal{}
	require.Equal(t, 0.0, TotalAmount(p))
	require.Equal(t, 0.0, ProfitMargin(p))
}

func TestProfitMarginMatchesDefinition(t *testing.T) {
	p := testProposal()

	total := TotalAmount(p)
	cost := TotalCost(p)
	require.Greater(t, total, 0.0)
	require.InDelta(t, (total-cost)/total*100, ProfitMargin(p), 0.01)
}

func TestNegativeProfitStillComputes(t *testing.T) {
	items := []LineItem{
		{ProductID: productID(1), Quantity: 1, UnitPrice: 50, PartnerPrice: 100},
	}
	items[0].Amount = LineItemAmount(items[0])
	p := &Proposal{Items: items}

	require.InDelta(t, -50.0, GrossProfit(p), 1e-6)
	require.InDelta(t, -100.0, ProfitMargin(p), 1e-6)
}

func TestPartnerCostIgnoresTaxFlag(t *testing.T) {
	items := []LineItem{
		{ProductID: productID(1), Quantity: 2, PartnerPrice: 100, ApplyCustomTax: true},
		{ProductID: productID(2), Quantity: 1, PartnerPrice: 300},
	}
	require.InDelta(t, 500.0, PartnerCost(items), 1e-6)
}

func TestMissingProductContributesZeroCost(t *testing.T) {
	items := []LineItem{
		{ProductID: nil, Quantity: 3, UnitPrice: 100, PartnerPrice: 999, ApplyCustomTax: true},
	}
	items[0].Amount = LineItemAmount(items[0])

	require.Equal(t, 0.0, PartnerCost(items))
	require.Equal(t, 0.0, TaxableProductsAmount(items))
	require.InDelta(t, 300.0, LineItemProfit(items[0]), 1e-6)
}

func TestEngineeringIsFullMargin(t *testing.T) {
	entry := EngineeringEntry{Days: 3, DailyRate: 750}
	entry.Amount = EngineeringAmount(entry)
	p := &Proposal{Engineering: []EngineeringEntry{entry}}

	require.InDelta(t, 2250.0, TotalAmount(p), 1e-6)
	require.Equal(t, 0.0, TotalCost(p))
	require.InDelta(t, 100.0, ProfitMargin(p), 1e-6)
}

func TestExpensesAreZeroMargin(t *testing.T) {
	p := &Proposal{Expenses: []ExpenseEntry{{Description: "Freight", Amount: 400}}}

	require.InDelta(t, 400.0, TotalAmount(p), 1e-6)
	require.InDelta(t, 400.0, TotalCost(p), 1e-6)
	require.Equal(t, 0.0, GrossProfit(p))
	require.Equal(t, 0.0, ProfitMargin(p))
}

func TestLineItemMargin(t *testing.T) {
	item := LineItem{ProductID: productID(1), Quantity: 2, UnitPrice: 100, PartnerPrice: 60}
	item.Amount = LineItemAmount(item)

	require.InDelta(t, 80.0, LineItemProfit(item), 1e-6)
	require.InDelta(t, 40.0, LineItemMargin(item), 1e-6)

	zero := LineItem{Quantity: 1}
	require.Equal(t, 0.0, LineItemMargin(zero))
}

func TestMultiplierRoundTrip(t *testing.T) {
	listPrice := 200.0
	discount := 20.0
	multiplier := 1.25

	unitPrice := UnitPriceFrom(listPrice, multiplier, discount)
	require.InDelta(t, 200.0, unitPrice, 1e-6)
	require.InDelta(t, multiplier, Multiplier(listPrice, discount, unitPrice), 1e-4)
}

func TestMultiplierGuards(t *testing.T) {
	// Zero list price.
	require.Equal(t, 1.0, Multiplier(0, 10, 90))
	// Discount factor at or below zero.
	require.Equal(t, 1.0, Multiplier(100, 100, 90))
	require.Equal(t, 1.0, Multiplier(100, 150, 90))
}

func TestSummarizeIsConsistent(t *testing.T) {
	p := testProposal()
	s := Summarize(p)

	require.InDelta(t, s.SubtotalProducts+s.SubtotalEngineering+s.SubtotalExpenses+s.SubtotalTaxes, s.TotalAmount, 1e-6)
	require.InDelta(t, s.TotalAmount-s.TotalCost, s.GrossProfit, 1e-6)
	require.InDelta(t, TotalAmount(p), s.TotalAmount, 1e-6)
}

func TestRecomputationIsStable(t *testing.T) {
	p := testProposal()

	first := TotalAmount(p)
	p.TotalAmount = first
	second := TotalAmount(p)
	require.Equal(t, first, second)
}
