package models

type FranchiseStatus string

const (
	FranchiseActive   FranchiseStatus = "ACTIVE"
	FranchiseInactive FranchiseStatus = "INACTIVE"
)

type Franchise struct {
	Base
	Name         string          `gorm:"size:100;not null" json:"name"`
	Code         string          `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Status       FranchiseStatus `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	OwnerName    string          `gorm:"size:100" json:"owner_name"`
	ContactEmail string          `gorm:"size:100" json:"contact_email"`
	ContactPhone string          `gorm:"size:50" json:"contact_phone"`
	LogoURL      string          `gorm:"size:255" json:"logo_url"`

	Branches []Branch `json:"-"`
}
