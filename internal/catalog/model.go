package catalog

import "time"

// Product is a catalog entry carrying the two prices the financial engine
// works from: the list price quoted to customers and the partner price the
// product is acquired at.
type Product struct {
	ID           int64     `json:"id" db:"id"`
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description,omitempty" db:"description"`
	ListPrice    float64   `json:"list_price" db:"list_price"`
	PartnerPrice float64   `json:"partner_price" db:"partner_price"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type CreateProductRequest struct {
	SKU          string  `json:"sku" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=255"`
	Description  *string `json:"description,omitempty"`
	ListPrice    float64 `json:"list_price" validate:"gte=0"`
	PartnerPrice float64 `json:"partner_price" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name         *string  `json:"name,omitempty" validate:"omitempty,max=255"`
	Description  *string  `json:"description,omitempty"`
	ListPrice    *float64 `json:"list_price,omitempty" validate:"omitempty,gte=0"`
	PartnerPrice *float64 `json:"partner_price,omitempty" validate:"omitempty,gte=0"`
	Active       *bool    `json:"active,omitempty"`
}
