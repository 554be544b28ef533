package proposals

import "github.com/shopspring/decimal"

// The financial engine. Every derived figure in the system (subtotals, cost,
// profit, margin, payment term amounts, exports) is computed here and nowhere
// else. All functions are pure and total: empty collections and zero
// denominators yield 0, never NaN or an error. Intermediate arithmetic runs
// on decimals and is rounded to cents at the point each figure is produced,
// so repeated recomputation cannot drift.

// round2 rounds a decimal to cents and returns it as float64.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// LineItemAmount derives a line's amount from its unit price and quantity.
func LineItemAmount(item LineItem) float64 {
	return round2(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
}

// EngineeringAmount derives a service line's amount from days and daily rate.
func EngineeringAmount(entry EngineeringEntry) float64 {
	return round2(decimal.NewFromFloat(entry.Days).Mul(decimal.NewFromFloat(entry.DailyRate)))
}

// SubtotalProducts sums line item amounts.
func SubtotalProducts(items []LineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Amount))
	}
	return round2(sum)
}

// SubtotalEngineering sums engineering entry amounts.
func SubtotalEngineering(entries []EngineeringEntry) float64 {
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(decimal.NewFromFloat(entry.Amount))
	}
	return round2(sum)
}

// SubtotalExpenses sums expense entry amounts.
func SubtotalExpenses(expenses []ExpenseEntry) float64 {
	sum := decimal.Zero
	for _, expense := range expenses {
		sum = sum.Add(decimal.NewFromFloat(expense.Amount))
	}
	return round2(sum)
}

// TaxableProductsAmount is the custom-tax base: partner cost of line items
// flagged taxable. Items without a product reference contribute nothing.
func TaxableProductsAmount(items []LineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		if !item.ApplyCustomTax || item.ProductID == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(item.PartnerPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return round2(sum)
}

// TaxAmount computes one custom tax against the shared base. Taxes are not
// compounded; every tax entry is applied to the same base independently.
func TaxAmount(rate, taxableBase float64) float64 {
	return round2(decimal.NewFromFloat(rate).Div(decimal.NewFromInt(100)).Mul(decimal.NewFromFloat(taxableBase)))
}

// SubtotalTaxes sums every custom tax applied to the same taxable base.
func SubtotalTaxes(taxes []CustomTax, taxableBase float64) float64 {
	sum := decimal.Zero
	for _, tax := range taxes {
		sum = sum.Add(decimal.NewFromFloat(TaxAmount(tax.Rate, taxableBase)))
	}
	return round2(sum)
}

// TotalAmount is the canonical proposal total: products + engineering +
// expenses + taxes. Payment terms, summaries, and exports must read this
// value rather than recomputing it independently.
func TotalAmount(p *Proposal) float64 {
	base := TaxableProductsAmount(p.Items)
	sum := decimal.NewFromFloat(SubtotalProducts(p.Items)).
		Add(decimal.NewFromFloat(SubtotalEngineering(p.Engineering))).
		Add(decimal.NewFromFloat(SubtotalExpenses(p.Expenses))).
		Add(decimal.NewFromFloat(SubtotalTaxes(p.Taxes, base)))
	return round2(sum)
}

// PartnerCost is the true product acquisition cost across all line items with
// a product reference, regardless of the tax flag.
func PartnerCost(items []LineItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(item.PartnerPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return round2(sum)
}

// TotalCost aggregates partner cost, expenses, and custom taxes. Engineering
// is zero-cost; custom taxes reduce profit, not revenue.
func TotalCost(p *Proposal) float64 {
	base := TaxableProductsAmount(p.Items)
	sum := decimal.NewFromFloat(PartnerCost(p.Items)).
		Add(decimal.NewFromFloat(SubtotalExpenses(p.Expenses))).
		Add(decimal.NewFromFloat(SubtotalTaxes(p.Taxes, base)))
	return round2(sum)
}

// GrossProfit is revenue minus total cost.
func GrossProfit(p *Proposal) float64 {
	return round2(decimal.NewFromFloat(TotalAmount(p)).Sub(decimal.NewFromFloat(TotalCost(p))))
}

// ProfitMargin is gross profit over revenue as a percentage, 0 when revenue
// is zero.
func ProfitMargin(p *Proposal) float64 {
	total := TotalAmount(p)
	if total <= 0 {
		return 0
	}
	return round2(decimal.NewFromFloat(GrossProfit(p)).Div(decimal.NewFromFloat(total)).Mul(decimal.NewFromInt(100)))
}

// LineItemProfit is a single line's revenue minus its partner cost.
func LineItemProfit(item LineItem) float64 {
	cost := decimal.Zero
	if item.ProductID != nil {
		cost = decimal.NewFromFloat(item.PartnerPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return round2(decimal.NewFromFloat(item.Amount).Sub(cost))
}

// LineItemMargin is a single line's margin percentage, 0 when its amount is
// zero.
func LineItemMargin(item LineItem) float64 {
	if item.Amount <= 0 {
		return 0
	}
	return round2(decimal.NewFromFloat(LineItemProfit(item)).Div(decimal.NewFromFloat(item.Amount)).Mul(decimal.NewFromInt(100)))
}

// Multiplier back-computes the manual price multiplier from a stored unit
// price: unitPrice / (listPrice * (1 - discount/100)). Defaults to 1.0 when
// the list price or the discount factor leaves nothing to divide by.
func Multiplier(listPrice, discountPercent, unitPrice float64) float64 {
	if listPrice <= 0 {
		return 1.0
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercent).Div(decimal.NewFromInt(100)))
	if factor.LessThanOrEqual(decimal.Zero) {
		return 1.0
	}
	base := decimal.NewFromFloat(listPrice).Mul(factor)
	return decimal.NewFromFloat(unitPrice).Div(base).Round(4).InexactFloat64()
}

// UnitPriceFrom is the forward direction of the multiplier:
// listPrice * multiplier * (1 - discount/100).
func UnitPriceFrom(listPrice, multiplier, discountPercent float64) float64 {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPercent).Div(decimal.NewFromInt(100)))
	return round2(decimal.NewFromFloat(listPrice).Mul(decimal.NewFromFloat(multiplier)).Mul(factor))
}

// FinancialSummary is the full derived figure set for one proposal.
type FinancialSummary struct {
	SubtotalProducts    float64 `json:"subtotal_products"`
	SubtotalEngineering float64 `json:"subtotal_engineering"`
	SubtotalExpenses    float64 `json:"subtotal_expenses"`
	TaxableBase         float64 `json:"taxable_base"`
	SubtotalTaxes       float64 `json:"subtotal_taxes"`
	TotalAmount         float64 `json:"total_amount"`
	PartnerCost         float64 `json:"partner_cost"`
	TotalCost           float64 `json:"total_cost"`
	GrossProfit         float64 `json:"gross_profit"`
	ProfitMargin        float64 `json:"profit_margin"`
}

// Summarize computes every derived figure from the proposal snapshot.
func Summarize(p *Proposal) FinancialSummary {
	base := TaxableProductsAmount(p.Items)
	return FinancialSummary{
		SubtotalProducts:    SubtotalProducts(p.Items),
		SubtotalEngineering: SubtotalEngineering(p.Engineering),
		SubtotalExpenses:    SubtotalExpenses(p.Expenses),
		TaxableBase:         base,
		SubtotalTaxes:       SubtotalTaxes(p.Taxes, base),
		TotalAmount:         TotalAmount(p),
		PartnerCost:         PartnerCost(p.Items),
		TotalCost:           TotalCost(p),
		GrossProfit:         GrossProfit(p),
		ProfitMargin:        ProfitMargin(p),
	}
}
