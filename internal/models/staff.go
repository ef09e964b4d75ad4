package models

import (
	"time"

	"github.com/google/uuid"
)

type StaffStatus string

const (
	StaffActive   StaffStatus = "ACTIVE"
	StaffInactive StaffStatus = "INACTIVE"
	StaffOnLeave  StaffStatus = "ON_LEAVE"
)

func (s StaffStatus) Valid() bool {
	switch s {
	case StaffActive, StaffInactive, StaffOnLeave:
		return true
	}
	return false
}

type Staff struct {
	Base
	BranchID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"branch_id"`
	Branch      *Branch     `json:"-"`
	FranchiseID uuid.UUID   `gorm:"type:uuid;index;not null" json:"franchise_id"`
	FirstName   string      `gorm:"size:100;not null" json:"first_name"`
	LastName    string      `gorm:"size:100;not null" json:"last_name"`
	Code        string      `gorm:"size:20;not null;uniqueIndex" json:"code"`
	RoleID      uuid.UUID   `gorm:"type:uuid;index;not null" json:"role_id"`
	Role        *Role       `json:"role,omitempty"`
	Status      StaffStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	Email       string      `gorm:"size:100" json:"email"`
	Phone       string      `gorm:"size:50" json:"phone"`
	HireDate    time.Time   `gorm:"not null" json:"hire_date"`
}

func (Staff) TableName() string { return "staff" }

func (s *Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}
