package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
)

type UpdateFranchiseRequest struct {
	Name         *string `json:"name"`
	OwnerName    *string `json:"owner_name"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	LogoURL      *string `json:"logo_url"`
}

// GET /api/franchise
func GetFranchiseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var fr models.Franchise
		if err := db.WithContext(c.UserContext()).First(&fr, "id = ?", p.Staff.FranchiseID).Error; err != nil {
			return httpx.StoreError(err, "franchise")
		}
		var branches int64
		if err := db.WithContext(c.UserContext()).Model(&models.Branch{}).
			Where("franchise_id = ?", fr.ID).Count(&branches).Error; err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"franchise":    fr,
			"branch_count": branches,
		})
	}
}

// PUT /api/franchise
func UpdateFranchiseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var fr models.Franchise
		if err := db.WithContext(c.UserContext()).First(&fr, "id = ?", p.Staff.FranchiseID).Error; err != nil {
			return httpx.StoreError(err, "franchise")
		}
		var body UpdateFranchiseRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		before := fr

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name can not be empty")
			}
			fr.Name = name
		}
		setIf(&fr.OwnerName, body.OwnerName)
		setIf(&fr.ContactPhone, body.ContactPhone)
		setIf(&fr.LogoURL, body.LogoURL)
		if body.ContactEmail != nil {
			fr.ContactEmail = auth.NormalizeEmail(*body.ContactEmail)
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&fr).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				EntityType:  "franchise",
				EntityID:    fr.ID,
				Action:      models.AuditActionUpdate,
				Description: "franchise " + fr.Name + " updated",
				Before:      before,
				After:       fr,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "franchise")
		}
		return c.JSON(fr)
	}
}
