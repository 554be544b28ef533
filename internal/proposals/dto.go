package proposals

type CreateProposalRequest struct {
	CustomerID int64   `json:"customer_id" validate:"required,gt=0"`
	Number     string  `json:"number" validate:"omitempty,max=32"`
	Notes      *string `json:"notes,omitempty"`
}

type UpdateProposalRequest struct {
	CustomerID *int64  `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Notes      *string `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	Status ProposalStatus `json:"status" validate:"required,oneof=DRAFT PENDING SENT WON LOST EXPIRED"`
}

// AddItemRequest creates a product line. When ProductID is set, list and
// partner prices are snapshotted from the catalog; UnitPrice falls back to the
// multiplier-derived price when omitted.
type AddItemRequest struct {
	ProductID       *int64   `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Name            string   `json:"name" validate:"required,max=255"`
	Quantity        int      `json:"quantity" validate:"required,gt=0"`
	DiscountPercent float64  `json:"discount_percent" validate:"gte=0,lte=100"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Multiplier      *float64 `json:"multiplier,omitempty" validate:"omitempty,gt=0"`
	ApplyCustomTax  bool     `json:"apply_custom_tax"`
}

type UpdateItemRequest struct {
	Name            *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Quantity        *int     `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	DiscountPercent *float64 `json:"discount_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	UnitPrice       *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	Multiplier      *float64 `json:"multiplier,omitempty" validate:"omitempty,gt=0"`
	ApplyCustomTax  *bool    `json:"apply_custom_tax,omitempty"`
}

type AddEngineeringRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Days        float64 `json:"days" validate:"required,gt=0"`
	DailyRate   float64 `json:"daily_rate" validate:"required,gte=0"`
}

type AddExpenseRequest struct {
	Description string  `json:"description" validate:"required,max=255"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
}

type AddTaxRequest struct {
	Name string  `json:"name" validate:"required,max=255"`
	Rate float64 `json:"rate" validate:"required,gt=0,lte=100"`
}

type ListProposalsRequest struct {
	CustomerID *int64          `json:"customer_id,omitempty"`
	Status     *ProposalStatus `json:"status,omitempty"`
	Limit      int             `json:"limit" validate:"gte=0,lte=500"`
	Offset     int             `json:"offset" validate:"gte=0"`
}

// ItemView decorates a line item with its derived figures.
type ItemView struct {
	LineItem
	Multiplier float64 `json:"multiplier"`
	Profit     float64 `json:"profit"`
	Margin     float64 `json:"margin"`
}

// ProposalView is the detail response: the aggregate plus its summary. The
// decorated item views shadow the embedded raw slice in the JSON output.
type ProposalView struct {
	Proposal
	Items   []ItemView       `json:"items"`
	Summary FinancialSummary `json:"summary"`
}
