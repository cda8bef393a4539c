package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/pkg/enums"
)

// Order is a placed checkout. Items snapshot unit prices at placement time.
type Order struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID         `gorm:"type:uuid;index;not null" json:"user_id"`
	Address     string            `gorm:"not null" json:"address"`
	Status      enums.OrderStatus `gorm:"type:varchar(16);not null" json:"status"`
	TotalAmount decimal.Decimal   `gorm:"type:numeric(18,2);not null" json:"total_amount"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
