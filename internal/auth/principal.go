package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
)

// ErrUnknownPrincipal means the principal has no usable staff record. The
// session must be treated as unauthenticated.
var ErrUnknownPrincipal = errors.New("no active staff for principal")

// Principal is the per request identity handed to every handler.
type Principal struct {
	AuthUserID uuid.UUID
	Staff      models.Staff
	Grant      permissions.Grant
}

func (p *Principal) IsOwner() bool { return p.Grant.Set.IsOwner() }

func (p *Principal) Can(perm permissions.Permission) bool {
	return p.Grant.Set.Has(perm)
}

func (p *Principal) StaffID() uuid.UUID { return p.Staff.ID }

// Resolver maps an authenticated principal to staff and role capabilities.
type Resolver struct {
	db    *gorm.DB
	roles *permissions.Cache
}

func NewResolver(db *gorm.DB, cacheSize int) (*Resolver, error) {
	r := &Resolver{db: db}
	cache, err := permissions.NewCache(cacheSize, r.loadRole)
	if err != nil {
		return nil, err
	}
	r.roles = cache
	return r, nil
}

// Roles exposes the capability cache so role writes can invalidate it.
func (r *Resolver) Roles() *permissions.Cache { return r.roles }

func (r *Resolver) Resolve(ctx context.Context, authUserID uuid.UUID) (*Principal, error) {
	db := r.db.WithContext(ctx)

	var mapping models.AuthStaffMapping
	if err := db.Where("auth_user_id = ?", authUserID).First(&mapping).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("load staff mapping: %w", err)
	}

	var staff models.Staff
	if err := db.First(&staff, "id = ?", mapping.StaffID).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if staff.Status == models.StaffInactive {
		return nil, ErrUnknownPrincipal
	}

	grant, err := r.roles.Get(ctx, staff.RoleID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUnknownPrincipal
		}
		return nil, fmt.Errorf("load role: %w", err)
	}

	return &Principal{AuthUserID: authUserID, Staff: staff, Grant: grant}, nil
}

func (r *Resolver) loadRole(ctx context.Context, roleID uuid.UUID) (*permissions.Grant, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", roleID).Error; err != nil {
		return nil, err
	}
	return &permissions.Grant{
		RoleID:   role.ID,
		RoleName: role.Name,
		Set:      permissions.FromRole(&role),
	}, nil
}
