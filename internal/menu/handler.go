// Package menu serves the per branch menu.
package menu

import (
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

type CreateMenuItemRequest struct {
	BranchID    *uuid.UUID `json:"branch_id"`
	Name        string     `json:"name_of_item"`
	Cost        float64    `json:"cost"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	IsActive    *bool      `json:"is_active"`
}

type UpdateMenuItemRequest struct {
	Name        *string  `json:"name_of_item"`
	Cost        *float64 `json:"cost"`
	Category    *string  `json:"category"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
}

// GET /api/menu?branch_id=&category=&include_inactive=true
func ListMenuHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		q := db.WithContext(c.UserContext()).Where("branch_id = ?", branchID)
		if !c.QueryBool("include_inactive", false) {
			q = q.Where("is_active = ?", true)
		}
		if cat := strings.TrimSpace(c.Query("category")); cat != "" {
			q = q.Where("category = ?", cat)
		}

		var items []models.MenuItem
		if err := q.Order("category asc, name_of_item asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list menu")
		}
		return c.JSON(items)
	}
}

// GET /api/menu/categories?branch_id=
func ListCategoriesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		var cats []string
		if err := db.WithContext(c.UserContext()).Model(&models.MenuItem{}).
			Where("branch_id = ? AND is_active = ?", branchID, true).
			Distinct().Order("category asc").Pluck("category", &cats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list categories")
		}
		return c.JSON(cats)
	}
}

// POST /api/menu
func CreateMenuItemHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateMenuItemRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		body.Category = strings.TrimSpace(body.Category)
		if body.Name == "" || body.Category == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name_of_item and category are required")
		}
		if body.Cost < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "cost can not be negative")
		}

		s, err := scope.ForBranch(c, db, p, body.BranchID)
		if err != nil {
			return err
		}
		branchID, err := s.Branch()
		if err != nil {
			return scope.HTTPError(err)
		}

		item := models.MenuItem{
			BranchID:    branchID,
			Name:        body.Name,
			Cost:        body.Cost,
			Category:    body.Category,
			Description: strings.TrimSpace(body.Description),
			IsActive:    body.IsActive == nil || *body.IsActive,
		}
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &branchID,
				EntityType:  "menu",
				EntityID:    item.ID,
				Action:      models.AuditActionCreate,
				Description: "menu item " + item.Name + " added",
				After:       item,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "menu item")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindMenu, realtime.OpInsert, item.ID, branchID))
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// loadItem fetches a menu row and checks its branch against the caller.
func loadItem(c *fiber.Ctx, db *gorm.DB) (*models.MenuItem, *auth.Principal, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := httpx.ParamUUID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	var item models.MenuItem
	if err := db.WithContext(c.UserContext()).First(&item, "id = ?", id).Error; err != nil {
		return nil, nil, httpx.StoreError(err, "menu item")
	}
	if _, err := scope.ForBranch(c, db, p, &item.BranchID); err != nil {
		return nil, nil, err
	}
	return &item, p, nil
}

// PUT /api/menu/:id
// Price changes apply to open orders too: lines are priced live.
func UpdateMenuItemHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, p, err := loadItem(c, db)
		if err != nil {
			return err
		}
		var body UpdateMenuItemRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		before := *item

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name_of_item can not be empty")
			}
			item.Name = name
		}
		if body.Category != nil {
			cat := strings.TrimSpace(*body.Category)
			if cat == "" {
				return fiber.NewError(fiber.StatusBadRequest, "category can not be empty")
			}
			item.Category = cat
		}
		if body.Cost != nil {
			if *body.Cost < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "cost can not be negative")
			}
			item.Cost = *body.Cost
		}
		if body.Description != nil {
			item.Description = strings.TrimSpace(*body.Description)
		}
		if body.IsActive != nil {
			item.IsActive = *body.IsActive
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(item).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &item.BranchID,
				EntityType:  "menu",
				EntityID:    item.ID,
				Action:      models.AuditActionUpdate,
				Description: "menu item " + item.Name + " updated",
				Before:      before,
				After:       item,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "menu item")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindMenu, realtime.OpUpdate, item.ID, item.BranchID))
		return c.JSON(item)
	}
}

// DELETE /api/menu/:id
// Deactivates the item; order lines keep resolving its price.
func DeleteMenuItemHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		item, p, err := loadItem(c, db)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return c.SendStatus(fiber.StatusNoContent)
		}
		before := *item

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(item).Update("is_active", false).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &item.BranchID,
				EntityType:  "menu",
				EntityID:    item.ID,
				Action:      models.AuditActionDelete,
				Description: "menu item " + item.Name + " deactivated",
				Before:      before,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "menu item")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindMenu, realtime.OpUpdate, item.ID, item.BranchID))
		return c.SendStatus(fiber.StatusNoContent)
	}
}
