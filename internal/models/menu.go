package models

import "github.com/google/uuid"

type MenuItem struct {
	Base
	BranchID    uuid.UUID `gorm:"type:uuid;index;not null" json:"branch_id"`
	Name        string    `gorm:"column:name_of_item;size:100;not null" json:"name_of_item"`
	Cost        float64   `gorm:"not null" json:"cost"`
	Category    string    `gorm:"size:50;not null;index" json:"category"`
	Description string    `gorm:"size:255" json:"description"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
}

func (MenuItem) TableName() string { return "menu" }
