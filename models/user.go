// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values. The role is a plain string carried in the JWT claims;
// there is no permission engine behind it.
const (
	RoleAdmin         = "ADMIN"
	RoleBranchManager = "BRANCH_MANAGER"
	RoleTechnician    = "TECHNICIAN"
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Phone        string     `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	Email        string     `gorm:"size:100" json:"email,omitempty"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         string     `gorm:"size:30;not null;index" json:"role"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index" json:"branchId,omitempty"`
	Branch       *Branch    `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Avatar       string     `gorm:"size:500" json:"avatar,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// IsTechnician reports whether the user can be assigned to tickets.
func (u *User) IsTechnician() bool {
	return u.Role == RoleTechnician
}
