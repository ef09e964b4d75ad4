package models

import "github.com/google/uuid"

type BranchStatus string

const (
	BranchActive            BranchStatus = "ACTIVE"
	BranchInactive          BranchStatus = "INACTIVE"
	BranchTemporarilyClosed BranchStatus = "TEMPORARILY_CLOSED"
)

func (s BranchStatus) Valid() bool {
	switch s {
	case BranchActive, BranchInactive, BranchTemporarilyClosed:
		return true
	}
	return false
}

type Branch struct {
	Base
	FranchiseID    uuid.UUID    `gorm:"type:uuid;index;not null" json:"franchise_id"`
	Franchise      *Franchise   `json:"-"`
	Name           string       `gorm:"size:100;not null" json:"name"`
	Code           string       `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Status         BranchStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	NumberOfTables int          `gorm:"not null;default:0" json:"number_of_tables"`
	Address        string       `gorm:"size:255" json:"address"`
	City           string       `gorm:"size:100" json:"city"`
	State          string       `gorm:"size:100" json:"state"`
	Country        string       `gorm:"size:100" json:"country"`
	PostalCode     string       `gorm:"size:20" json:"postal_code"`
	Timezone       string       `gorm:"size:50;default:UTC" json:"timezone"`
	OpeningTime    string       `gorm:"size:5" json:"opening_time"` // HH:MM
	ClosingTime    string       `gorm:"size:5" json:"closing_time"`
}
