package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderServed     OrderStatus = "SERVED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderInProgress: {OrderCompleted, OrderCancelled},
	OrderCompleted:  {OrderServed},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderInProgress, OrderCompleted, OrderServed, OrderCancelled:
		return true
	}
	return false
}

type Order struct {
	Base
	BranchID        uuid.UUID        `gorm:"type:uuid;index;not null" json:"branch_id"`
	DiningSessionID uuid.UUID        `gorm:"type:uuid;index;not null" json:"dining_session_id"`
	TableID         uuid.UUID        `gorm:"type:uuid;index;not null" json:"table_id"`
	Table           *RestaurantTable `json:"table,omitempty"`
	OrderNumber     int              `gorm:"not null" json:"order_number"`
	Status          OrderStatus      `gorm:"size:20;not null;index" json:"status"`
	TotalAmount     float64          `gorm:"not null" json:"total_amount"`
	TaxAmount       float64          `gorm:"not null" json:"tax_amount"`
	CreatedBy       *uuid.UUID       `gorm:"type:uuid" json:"created_by"`
	WaiterID        *uuid.UUID       `gorm:"type:uuid" json:"waiter_id"`
	CompletedAt     *time.Time       `json:"completed_at"`
	ServedAt        *time.Time       `json:"served_at"`
	CancelledAt     *time.Time       `json:"cancelled_at"`

	Items []OrderItem `json:"order_items,omitempty"`
}

// OrderItem references the menu row; the price is read from it live.
type OrderItem struct {
	Base
	OrderID         uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ItemID          uuid.UUID `gorm:"type:uuid;index;not null" json:"item_id"`
	Item            *MenuItem `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity        int       `gorm:"not null" json:"quantity"`
	SpecialRequests string    `gorm:"column:item_special_requests;size:255" json:"item_special_requests"`
}
