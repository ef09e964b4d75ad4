// Package admin holds the back-office handlers: franchise, branches, roles
// and staff.
package admin

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/scope"
)

type CreateBranchRequest struct {
	Name           string `json:"name"`
	Code           string `json:"code"`
	NumberOfTables int    `json:"number_of_tables"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	Country        string `json:"country"`
	PostalCode     string `json:"postal_code"`
	Timezone       string `json:"timezone"`
	OpeningTime    string `json:"opening_time"`
	ClosingTime    string `json:"closing_time"`
}

type UpdateBranchRequest struct {
	Name           *string              `json:"name"`
	Status         *models.BranchStatus `json:"status"`
	NumberOfTables *int                 `json:"number_of_tables"`
	Address        *string              `json:"address"`
	City           *string              `json:"city"`
	State          *string              `json:"state"`
	Country        *string              `json:"country"`
	PostalCode     *string              `json:"postal_code"`
	Timezone       *string              `json:"timezone"`
	OpeningTime    *string              `json:"opening_time"`
	ClosingTime    *string              `json:"closing_time"`
}

// ----------------------------------------
// BRANCH CRUD
// ----------------------------------------

// POST /api/branches
// The branch joins the caller's franchise and gets number_of_tables tables.
func CreateBranchHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateBranchRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Code = strings.ToUpper(strings.TrimSpace(body.Code))
		if body.Name == "" || body.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name and code are required")
		}
		if body.NumberOfTables < 0 || body.NumberOfTables > 500 {
			return fiber.NewError(fiber.StatusBadRequest, "number_of_tables must be between 0 and 500")
		}
		if body.Timezone == "" {
			body.Timezone = "UTC"
		}

		branch := models.Branch{
			FranchiseID:    p.Staff.FranchiseID,
			Name:           body.Name,
			Code:           body.Code,
			Status:         models.BranchActive,
			NumberOfTables: body.NumberOfTables,
			Address:        body.Address,
			City:           body.City,
			State:          body.State,
			Country:        body.Country,
			PostalCode:     body.PostalCode,
			Timezone:       body.Timezone,
			OpeningTime:    body.OpeningTime,
			ClosingTime:    body.ClosingTime,
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var taken int64
			if err := tx.Model(&models.Branch{}).Where("code = ?", branch.Code).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return fiber.NewError(fiber.StatusConflict, "branch code is already used")
			}
			if err := tx.Create(&branch).Error; err != nil {
				return err
			}
			if branch.NumberOfTables > 0 {
				tables := make([]models.RestaurantTable, 0, branch.NumberOfTables)
				for i := 1; i <= branch.NumberOfTables; i++ {
					tables = append(tables, models.RestaurantTable{
						BranchID:    branch.ID,
						TableNumber: strconv.Itoa(i),
						Capacity:    4,
						Status:      models.TableAvailable,
					})
				}
				if err := tx.Create(&tables).Error; err != nil {
					return err
				}
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &branch.ID,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionCreate,
				Description: "branch " + branch.Name + " created",
				After:       branch,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "branch")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindBranch, realtime.OpInsert, branch.ID, branch.ID))
		return c.Status(fiber.StatusCreated).JSON(branch)
	}
}

// GET /api/branches?status=ACTIVE
// Owners see the franchise, everyone else the assigned branch.
func ListBranchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		s, err := scope.ForBranch(c, db, p, nil)
		if err != nil {
			return err
		}

		q := db.WithContext(c.UserContext()).Where("franchise_id = ?", s.FranchiseID)
		if s.BranchID != nil {
			q = q.Where("id = ?", *s.BranchID)
		}
		if st := models.BranchStatus(c.Query("status")); st != "" {
			if !st.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "invalid status")
			}
			q = q.Where("status = ?", st)
		}

		var branches []models.Branch
		if err := q.Order("name asc").Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list branches")
		}
		return c.JSON(branches)
	}
}

type SelectableBranch struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Code string    `json:"code"`
}

// GET /api/branches/selectable
// The branch picker: ACTIVE branches the caller may select.
func SelectableBranchesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		q := db.WithContext(c.UserContext()).Model(&models.Branch{}).
			Where("franchise_id = ? AND status = ?", p.Staff.FranchiseID, models.BranchActive)
		if !p.IsOwner() {
			q = q.Where("id = ?", p.Staff.BranchID)
		}

		out := make([]SelectableBranch, 0)
		if err := q.Order("name asc").Select("id", "name", "code").Find(&out).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list branches")
		}
		return c.JSON(out)
	}
}

func loadBranch(c *fiber.Ctx, db *gorm.DB) (*models.Branch, *auth.Principal, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := httpx.ParamUUID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	var branch models.Branch
	if err := db.WithContext(c.UserContext()).First(&branch, "id = ?", id).Error; err != nil {
		return nil, nil, httpx.StoreError(err, "branch")
	}
	if _, err := scope.ForBranch(c, db, p, &branch.ID); err != nil {
		return nil, nil, err
	}
	return &branch, p, nil
}

// GET /api/branches/:id
func GetBranchHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, _, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		return c.JSON(branch)
	}
}

// PUT /api/branches/:id
func UpdateBranchHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, p, err := loadBranch(c, db)
		if err != nil {
			return err
		}
		var body UpdateBranchRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		before := *branch

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name can not be empty")
			}
			branch.Name = name
		}
		if body.Status != nil {
			if !body.Status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "invalid status")
			}
			branch.Status = *body.Status
		}
		if body.NumberOfTables != nil {
			if *body.NumberOfTables < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "number_of_tables can not be negative")
			}
			branch.NumberOfTables = *body.NumberOfTables
		}
		setIf(&branch.Address, body.Address)
		setIf(&branch.City, body.City)
		setIf(&branch.State, body.State)
		setIf(&branch.Country, body.Country)
		setIf(&branch.PostalCode, body.PostalCode)
		setIf(&branch.Timezone, body.Timezone)
		setIf(&branch.OpeningTime, body.OpeningTime)
		setIf(&branch.ClosingTime, body.ClosingTime)

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(branch).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &branch.ID,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionUpdate,
				Description: "branch " + branch.Name + " updated",
				Before:      before,
				After:       branch,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "branch")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindBranch, realtime.OpUpdate, branch.ID, branch.ID))
		return c.JSON(branch)
	}
}

// DELETE /api/branches/:id
// Only branches without staff and order history can go.
func DeleteBranchHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branch, p, err := loadBranch(c, db)
		if err != nil {
			return err
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			checks := []struct {
				model any
				msg   string
			}{
				{&models.Staff{}, "branch still has staff"},
				{&models.Order{}, "branch has order history, set it INACTIVE instead"},
			}
			for _, chk := range checks {
				n, err := countWhere(tx, chk.model, "branch_id = ?", branch.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					return fiber.NewError(fiber.StatusConflict, chk.msg)
				}
			}

			if err := tx.Where("branch_id = ?", branch.ID).Delete(&models.RestaurantTable{}).Error; err != nil {
				return err
			}
			if err := tx.Where("branch_id = ?", branch.ID).Delete(&models.MenuItem{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(branch).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionDelete,
				Description: "branch " + branch.Name + " deleted",
				Before:      branch,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "branch")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindBranch, realtime.OpDelete, branch.ID, branch.ID))
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func countWhere(tx *gorm.DB, model any, query string, args ...any) (int64, error) {
	var n int64
	err := tx.Model(model).Where(query, args...).Count(&n).Error
	return n, err
}

// publishFranchise sends a franchise wide change to every branch feed.
func publishFranchise(ctx context.Context, db *gorm.DB, events realtime.Publisher, franchiseID uuid.UUID, kind realtime.Kind, op realtime.Op, id uuid.UUID) {
	var branchIDs []uuid.UUID
	if err := db.WithContext(ctx).Model(&models.Branch{}).Where("franchise_id = ?", franchiseID).Pluck("id", &branchIDs).Error; err != nil {
		return
	}
	out := make([]realtime.Event, 0, len(branchIDs))
	for _, b := range branchIDs {
		out = append(out, realtime.NewEvent(kind, op, id, b))
	}
	events.Publish(ctx, out...)
}
