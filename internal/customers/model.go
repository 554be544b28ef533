package customers

import "time"

// Customer is the party a proposal is addressed to.
type Customer struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	VATNumber *string   `json:"vat_number,omitempty" db:"vat_number"`
	Address   *string   `json:"address,omitempty" db:"address"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateCustomerRequest struct {
	Name      string  `json:"name" validate:"required,max=255"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=64"`
	VATNumber *string `json:"vat_number,omitempty" validate:"omitempty,max=64"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type UpdateCustomerRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=64"`
	VATNumber *string `json:"vat_number,omitempty" validate:"omitempty,max=64"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}
