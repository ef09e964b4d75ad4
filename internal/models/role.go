package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PermissionMap is the stored "{module}_{action}" -> granted form of a role.
type PermissionMap map[string]bool

func (m PermissionMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *PermissionMap) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = PermissionMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("permission map: unsupported type %T", src)
	}
	out := PermissionMap{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

type Role struct {
	Base
	FranchiseID uuid.UUID     `gorm:"type:uuid;index;not null" json:"franchise_id"`
	Name        string        `gorm:"size:100;not null" json:"name"`
	Description string        `gorm:"size:255" json:"description"`
	IsOwner     bool          `gorm:"not null;default:false" json:"is_owner"`
	Permissions PermissionMap `gorm:"type:jsonb;not null" json:"permissions"`
}
