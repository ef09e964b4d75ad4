package models

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
)

type RestaurantTable struct {
	Base
	BranchID         uuid.UUID   `gorm:"type:uuid;index;not null;uniqueIndex:ux_table_branch_number,priority:1" json:"branch_id"`
	TableNumber      string      `gorm:"size:20;not null;uniqueIndex:ux_table_branch_number,priority:2" json:"table_number"`
	Capacity         int         `gorm:"not null;default:4" json:"capacity"`
	Status           TableStatus `gorm:"size:20;not null;default:AVAILABLE" json:"status"`
	LastStatusUpdate *time.Time  `json:"last_status_update"`
}
