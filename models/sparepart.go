package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SparePart is one inventory item consumed by repair closeouts.
type SparePart struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	SKU       string    `gorm:"size:100;uniqueIndex;not null" json:"sku"`
	Category  string    `gorm:"size:100" json:"category,omitempty"`
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`
	Price     float64   `gorm:"not null;default:0" json:"price"`
	MinLevel  int       `gorm:"not null;default:5" json:"minLevel"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *SparePart) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}

// TableName specifies the table name for SparePart
func (SparePart) TableName() string {
	return "spare_parts"
}

// LowStock reports whether the quantity has fallen to or below the reorder
// threshold.
func (p *SparePart) LowStock() bool {
	return p.Quantity <= p.MinLevel
}
