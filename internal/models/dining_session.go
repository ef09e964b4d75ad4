package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
)

// DiningSession is the open tab of one table. TotalAmount is the running
// subtotal of its orders, TaxAmount the running tax.
type DiningSession struct {
	Base
	BranchID       uuid.UUID        `gorm:"type:uuid;index;not null" json:"branch_id"`
	TableID        uuid.UUID        `gorm:"type:uuid;index;not null" json:"table_id"`
	Table          *RestaurantTable `json:"table,omitempty"`
	Status         SessionStatus    `gorm:"size:20;not null;index" json:"status"`
	NumberOfGuests int              `gorm:"not null;default:1" json:"number_of_guests"`
	TotalAmount    float64          `gorm:"not null" json:"total_amount"`
	TaxAmount      float64          `gorm:"not null" json:"tax_amount"`
	IsBillPrinted  bool             `gorm:"not null" json:"is_bill_printed"`
	Notes          string           `gorm:"size:500" json:"notes"`
	ChangedBy      *uuid.UUID       `gorm:"type:uuid" json:"changed_by"`
	ChangedAt      *time.Time       `json:"changed_at"`
	CompletedAt    *time.Time       `json:"completed_at"`

	Orders []Order `json:"orders,omitempty"`
}

// GrandTotal is what the payment must cover, at full precision.
func (s *DiningSession) GrandTotal() float64 {
	return s.TotalAmount + s.TaxAmount
}
