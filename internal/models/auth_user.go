package models

import "github.com/google/uuid"

// AuthUser is the authentication principal. It knows nothing about the
// restaurant; AuthStaffMapping ties it to a Staff row.
type AuthUser struct {
	Base
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

type AuthStaffMapping struct {
	Base
	AuthUserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"auth_user_id"`
	StaffID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"staff_id"`
}

func (AuthStaffMapping) TableName() string { return "auth_staff_mapping" }
