// Package scope resolves which branches a request may touch.
package scope

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/database"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
)

var (
	ErrBranchRequired  = errors.New("branch_id is required")
	ErrBranchForbidden = errors.New("branch is outside your scope")
)

// Scope is the branch filter of one request. BranchID nil means every branch
// of the franchise and is only produced for owners.
type Scope struct {
	FranchiseID uuid.UUID
	BranchID    *uuid.UUID
}

// Resolve applies the selection rules: owners may pick any branch of their
// franchise or none, everyone else is pinned to the assigned branch.
func Resolve(ctx context.Context, db *gorm.DB, p *auth.Principal, requested *uuid.UUID) (Scope, error) {
	s := Scope{FranchiseID: p.Staff.FranchiseID}

	if !p.IsOwner() {
		assigned := p.Staff.BranchID
		if requested != nil && *requested != assigned {
			return Scope{}, ErrBranchForbidden
		}
		s.BranchID = &assigned
		return s, nil
	}

	if requested == nil {
		return s, nil
	}

	var branch models.Branch
	err := db.WithContext(ctx).Select("id", "franchise_id").First(&branch, "id = ?", *requested).Error
	if err != nil {
		if database.IsNotFound(err) {
			return Scope{}, ErrBranchForbidden
		}
		return Scope{}, fmt.Errorf("load branch: %w", err)
	}
	if branch.FranchiseID != p.Staff.FranchiseID {
		return Scope{}, ErrBranchForbidden
	}
	id := branch.ID
	s.BranchID = &id
	return s, nil
}

// Branch returns the single selected branch.
func (s Scope) Branch() (uuid.UUID, error) {
	if s.BranchID == nil {
		return uuid.Nil, ErrBranchRequired
	}
	return *s.BranchID, nil
}

// Apply filters a query on a table with a branch_id column.
func (s Scope) Apply(q *gorm.DB) *gorm.DB {
	if s.BranchID != nil {
		return q.Where("branch_id = ?", *s.BranchID)
	}
	return q.Where("branch_id IN (?)",
		q.Session(&gorm.Session{NewDB: true}).Model(&models.Branch{}).Select("id").Where("franchise_id = ?", s.FranchiseID))
}

// Allows reports whether a branch lies inside the scope. Branches of other
// franchises must be rejected by the caller before, using the loaded row.
func (s Scope) Allows(branch *models.Branch) bool {
	if branch.FranchiseID != s.FranchiseID {
		return false
	}
	return s.BranchID == nil || *s.BranchID == branch.ID
}

// FromRequest resolves the scope from the branch_id query parameter.
func FromRequest(c *fiber.Ctx, db *gorm.DB) (Scope, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return Scope{}, err
	}
	requested, err := httpx.QueryUUID(c, "branch_id")
	if err != nil {
		return Scope{}, err
	}
	return ForBranch(c, db, p, requested)
}

// ForBranch resolves the scope for an explicit branch id, e.g. one taken from
// a request body.
func ForBranch(c *fiber.Ctx, db *gorm.DB, p *auth.Principal, requested *uuid.UUID) (Scope, error) {
	s, err := Resolve(c.UserContext(), db, p, requested)
	if err != nil {
		return Scope{}, HTTPError(err)
	}
	return s, nil
}

// RequiredBranch resolves a scope and insists on a single branch.
func RequiredBranch(c *fiber.Ctx, db *gorm.DB) (uuid.UUID, error) {
	s, err := FromRequest(c, db)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := s.Branch()
	if err != nil {
		return uuid.Nil, HTTPError(err)
	}
	return id, nil
}

func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrBranchForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrBranchRequired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
