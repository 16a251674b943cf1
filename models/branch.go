package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch is one retail location. Latitude/Longitude anchor the arrival
// geofence check for technicians.
type Branch struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	Location  string     `gorm:"size:255;not null" json:"location"`
	Latitude  float64    `gorm:"column:latitude" json:"latitude"`
	Longitude float64    `gorm:"column:longitude" json:"longitude"`
	ManagerID *uuid.UUID `gorm:"type:uuid" json:"managerId,omitempty"`
	Phone     string     `gorm:"size:15" json:"phone,omitempty"`
	IsActive  bool       `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (b *Branch) BeforeCreate(tx *gorm.DB) (err error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return
}

// TableName specifies the table name for Branch
func (Branch) TableName() string {
	return "branches"
}
