package models

import "github.com/google/uuid"

type PaymentStatus string

const PaymentCompleted PaymentStatus = "COMPLETED"

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

type Payment struct {
	Base
	BranchID        uuid.UUID     `gorm:"type:uuid;index;not null" json:"branch_id"`
	DiningSessionID uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"dining_session_id"`
	OrderID         uuid.UUID     `gorm:"type:uuid;index;not null" json:"order_id"` // first order of the session
	Amount          float64       `gorm:"not null" json:"amount"`
	Method          PaymentMethod `gorm:"size:20;not null" json:"method"`
	Status          PaymentStatus `gorm:"size:20;not null" json:"status"`
	ProcessedBy     *uuid.UUID    `gorm:"type:uuid" json:"processed_by"`
}
