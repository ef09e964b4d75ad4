package analytics

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
	"restoran-pos/internal/scope"
)

// GET /api/analytics/sales?branch_id=&range=today|week|month|year|custom&from=&to=
func SalesHandler(db *gorm.DB, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		var branch models.Branch
		if err := db.WithContext(c.UserContext()).Select("id", "timezone").First(&branch, "id = ?", branchID).Error; err != nil {
			return httpx.StoreError(err, "branch")
		}
		loc := time.UTC
		if branch.Timezone != "" {
			if l, err := time.LoadLocation(branch.Timezone); err == nil {
				loc = l
			} else {
				log.Warn("unknown branch timezone, using UTC", "branch_id", branchID, "timezone", branch.Timezone)
			}
		}

		w, err := ParseRange(c.Query("range"), c.Query("from"), c.Query("to"), time.Now().In(loc))
		if err != nil {
			if errors.Is(err, ErrInvalidRange) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}

		rep, err := Sales(c.UserContext(), db, branchID, w)
		if err != nil {
			log.Error("sales report failed", "branch_id", branchID, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not build the sales report")
		}
		return c.JSON(rep)
	}
}
