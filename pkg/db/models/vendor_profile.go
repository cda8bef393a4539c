package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorProfile holds the vendor-specific fields attached to a user.
type VendorProfile struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID             uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CompanyName        string    `gorm:"not null" json:"company_name"`
	VerificationDocURL string    `json:"verification_doc_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VendorProfile) TableName() string { return "vendor_profiles" }

func (p *VendorProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
