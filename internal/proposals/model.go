package proposals

import "time"

type ProposalStatus string

const (
	StatusDraft   ProposalStatus = "DRAFT"
	StatusPending ProposalStatus = "PENDING"
	StatusSent    ProposalStatus = "SENT"
	StatusWon     ProposalStatus = "WON"
	StatusLost    ProposalStatus = "LOST"
	StatusExpired ProposalStatus = "EXPIRED"
)

// Proposal is the aggregate root for a single quote/deal. TotalAmount is a
// cached derivation of the four subtotal categories; it is recomputed and
// persisted after every mutation of a child collection and is the only total
// the rest of the system reads.
type Proposal struct {
	ID          int64          `json:"id" db:"id"`
	Number      string         `json:"number" db:"number"`
	CustomerID  int64          `json:"customer_id" db:"customer_id"`
	Status      ProposalStatus `json:"status" db:"status"`
	Notes       *string        `json:"notes,omitempty" db:"notes"`
	TotalAmount float64        `json:"total_amount" db:"total_amount"`
	SentAt      *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`

	Items       []LineItem         `json:"items,omitempty" db:"-"`
	Engineering []EngineeringEntry `json:"engineering,omitempty" db:"-"`
	Expenses    []ExpenseEntry     `json:"expenses,omitempty" db:"-"`
	Taxes       []CustomTax        `json:"taxes,omitempty" db:"-"`
}

// LineItem is a product line. ListPrice and PartnerPrice are snapshots of the
// catalog pricing at the time the line was added; PartnerPrice is the
// acquisition cost used for profit and tax-base computation. Amount is always
// recomputed from UnitPrice and Quantity at save time.
type LineItem struct {
	ID              int64     `json:"id" db:"id"`
	ProposalID      int64     `json:"proposal_id" db:"proposal_id"`
	ProductID       *int64    `json:"product_id,omitempty" db:"product_id"`
	Name            string    `json:"name" db:"name"`
	Quantity        int       `json:"quantity" db:"quantity"`
	DiscountPercent float64   `json:"discount_percent" db:"discount_percent"`
	UnitPrice       float64   `json:"unit_price" db:"unit_price"`
	ListPrice       float64   `json:"list_price" db:"list_price"`
	PartnerPrice    float64   `json:"partner_price" db:"partner_price"`
	ApplyCustomTax  bool      `json:"apply_custom_tax" db:"apply_custom_tax"`
	Amount          float64   `json:"amount" db:"amount"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// EngineeringEntry is a service line billed by days at a daily rate.
// Engineering carries no cost, so it is treated as 100% margin.
type EngineeringEntry struct {
	ID          int64     `json:"id" db:"id"`
	ProposalID  int64     `json:"proposal_id" db:"proposal_id"`
	Description string    `json:"description" db:"description"`
	Days        float64   `json:"days" db:"days"`
	DailyRate   float64   `json:"daily_rate" db:"daily_rate"`
	Amount      float64   `json:"amount" db:"amount"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ExpenseEntry is a direct cost passed through at face value: revenue equals
// cost, zero margin.
type ExpenseEntry struct {
	ID          int64     `json:"id" db:"id"`
	ProposalID  int64     `json:"proposal_id" db:"proposal_id"`
	Description string    `json:"description" db:"description"`
	Amount      float64   `json:"amount" db:"amount"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CustomTax applies its rate against the partner-cost base of taxable line
// items, never against revenue. Amount caches the computed figure for display
// alongside the rate.
type CustomTax struct {
	ID         int64     `json:"id" db:"id"`
	ProposalID int64     `json:"proposal_id" db:"proposal_id"`
	Name       string    `json:"name" db:"name"`
	Rate       float64   `json:"rate" db:"rate"`
	Amount     float64   `json:"amount" db:"amount"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProposalWithCustomer joins the customer name for list views.
type ProposalWithCustomer struct {
	Proposal
	CustomerName string `json:"customer_name" db:"customer_name"`
}
