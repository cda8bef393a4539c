package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single open cart per customer. Totals are denormalized and
// recomputed whenever items change.
type Cart struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	NumOfItems  int             `gorm:"not null;default:0" json:"num_of_items"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"total_amount"`

	Items []CartItem `gorm:"foreignKey:CartID" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
