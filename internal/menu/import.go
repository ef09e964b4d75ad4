package menu

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/scope"
)

// ImportRow is one usable line of a menu sheet.
// Columns: name, category, cost, description.
type ImportRow struct {
	Line        int
	Name        string
	Category    string
	Cost        float64
	Description string
}

type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Skipped []SkippedRow `json:"skipped"`
}

// ReadSheet parses the first sheet of an XLSX workbook. A first row whose
// first cell looks like a column title is treated as header.
func ReadSheet(r io.Reader) ([]ImportRow, []SkippedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && isHeader(rows[0][0]) {
		start = 1
	}

	var (
		out     []ImportRow
		skipped []SkippedRow
	)
	for i := start; i < len(rows); i++ {
		line := i + 1
		row := rows[i]
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}

		name := cell(0)
		if name == "" {
			if len(row) > 0 && cell(1)+cell(2) != "" {
				skipped = append(skipped, SkippedRow{Line: line, Reason: "name is empty"})
			}
			continue
		}
		category := cell(1)
		if category == "" {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "category is empty"})
			continue
		}
		cost, err := strconv.ParseFloat(strings.ReplaceAll(cell(2), ",", "."), 64)
		if err != nil || cost < 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
			skipped = append(skipped, SkippedRow{Line: line, Reason: "cost must be a non negative number"})
			continue
		}
		out = append(out, ImportRow{
			Line:        line,
			Name:        name,
			Category:    category,
			Cost:        cost,
			Description: cell(3),
		})
	}
	return out, skipped, nil
}

func isHeader(first string) bool {
	s := strings.ToUpper(strings.TrimSpace(first))
	switch s {
	case "NAME", "ITEM", "ITEM NAME", "NAME OF ITEM", "NAME_OF_ITEM":
		return true
	}
	return false
}

// POST /api/menu/import?branch_id=
// Multipart field "file". Rows are matched to existing items by name, case
// insensitive; matches are updated and reactivated, the rest are created.
func ImportMenuHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files are accepted")
		}
		file, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not open upload")
		}
		defer file.Close()

		rows, skipped, err := ReadSheet(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "sheet has no menu rows")
		}

		res := ImportResult{Skipped: skipped}
		if res.Skipped == nil {
			res.Skipped = []SkippedRow{}
		}
		var created, updated []uuid.UUID

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var existing []models.MenuItem
			if err := tx.Where("branch_id = ?", branchID).Find(&existing).Error; err != nil {
				return err
			}
			byName := make(map[string]*models.MenuItem, len(existing))
			for i := range existing {
				byName[strings.ToLower(existing[i].Name)] = &existing[i]
			}

			for _, r := range rows {
				key := strings.ToLower(r.Name)
				if item, ok := byName[key]; ok {
					item.Category = r.Category
					item.Cost = r.Cost
					item.Description = r.Description
					item.IsActive = true
					if err := tx.Save(item).Error; err != nil {
						return err
					}
					updated = append(updated, item.ID)
					continue
				}
				item := &models.MenuItem{
					BranchID:    branchID,
					Name:        r.Name,
					Category:    r.Category,
					Cost:        r.Cost,
					Description: r.Description,
					IsActive:    true,
				}
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				byName[key] = item
				created = append(created, item.ID)
			}

			res.Created = len(created)
			res.Updated = len(updated)
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &branchID,
				EntityType:  "menu",
				EntityID:    branchID,
				Action:      models.AuditActionImport,
				Description: fmt.Sprintf("menu import from %s: %d created, %d updated", fh.Filename, res.Created, res.Updated),
				After:       res,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "menu item")
		}

		out := make([]realtime.Event, 0, len(created)+len(updated))
		for _, id := range created {
			out = append(out, realtime.NewEvent(realtime.KindMenu, realtime.OpInsert, id, branchID))
		}
		for _, id := range updated {
			out = append(out, realtime.NewEvent(realtime.KindMenu, realtime.OpUpdate, id, branchID))
		}
		events.Publish(c.UserContext(), out...)
		return c.JSON(res)
	}
}
