package products

import (
	"github.com/shopspring/decimal"
)

// CreateProductInput is the validated vendor payload for a new listing.
type CreateProductInput struct {
	CategoryID      string          `json:"category_id" validate:"required,uuid"`
	Name            string          `json:"name" validate:"required,max=200"`
	Description     string          `json:"description" validate:"max=5000"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	ImageURLs       []string        `json:"image_urls" validate:"max=10,dive,url"`
}

// UpdateProductInput carries partial updates. Nil fields keep their value.
type UpdateProductInput struct {
	CategoryID      *string          `json:"category_id" validate:"omitempty,uuid"`
	Name            *string          `json:"name" validate:"omitempty,max=200"`
	Description     *string          `json:"description" validate:"omitempty,max=5000"`
	Price           *decimal.Decimal `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	Quantity        *int             `json:"quantity" validate:"omitempty,gte=0"`
	IsActive        *bool            `json:"is_active"`
}
