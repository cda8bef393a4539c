package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog listing owned by a vendor. DiscountedPrice is stored
// so list queries never recompute it.
type Product struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	VendorID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"vendor_id"`
	CategoryID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"category_id"`
	Name            string          `gorm:"not null" json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"price"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	DiscountedPrice decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"discounted_price"`
	Quantity        int             `gorm:"not null;default:0" json:"quantity"`
	Rating          decimal.Decimal `gorm:"type:numeric(3,1);not null;default:0" json:"rating"`
	ImageURLs       pq.StringArray  `gorm:"type:text[]" json:"image_urls"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ApplyDiscount recomputes the stored discounted price from Price and
// DiscountPercent, rounded to cents.
func (p *Product) ApplyDiscount() {
	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(p.DiscountPercent).Div(hundred)
	p.DiscountedPrice = p.Price.Mul(factor).Round(2)
}
