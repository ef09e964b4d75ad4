package audit

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
)

type AuditLogResponse struct {
	ID          string             `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchID    *string            `json:"branch_id"`
	StaffID     string             `json:"staff_id"`
	StaffName   string             `json:"staff_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    string             `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  string             `json:"before_data"`
	AfterData   string             `json:"after_data"`
}

func ActorOf(p *auth.Principal) Actor {
	return Actor{
		FranchiseID: p.Staff.FranchiseID,
		StaffID:     p.Staff.ID,
		StaffName:   p.Staff.FullName(),
	}
}

// GET /api/audit-logs?branch_id=&entity_type=order&entity_id=&staff_id=&limit=
// Owner only, limited to the owner's franchise.
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}

		f := Filter{FranchiseID: p.Staff.FranchiseID}
		if f.BranchID, err = httpx.QueryUUID(c, "branch_id"); err != nil {
			return err
		}
		if f.StaffID, err = httpx.QueryUUID(c, "staff_id"); err != nil {
			return err
		}
		if f.EntityID, err = httpx.QueryUUID(c, "entity_id"); err != nil {
			return err
		}
		f.EntityType = c.Query("entity_type")
		f.Limit = c.QueryInt("limit", 100)

		logs, err := List(db.WithContext(c.UserContext()), f)
		if err != nil {
			return err
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			var branchID *string
			if l.BranchID != nil {
				s := l.BranchID.String()
				branchID = &s
			}
			resp = append(resp, AuditLogResponse{
				ID:          l.ID.String(),
				CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:    branchID,
				StaffID:     l.StaffID.String(),
				StaffName:   l.StaffName,
				EntityType:  l.EntityType,
				EntityID:    l.EntityID.String(),
				Action:      l.Action,
				Description: l.Description,
				BeforeData:  l.BeforeData,
				AfterData:   l.AfterData,
			})
		}
		return c.JSON(resp)
	}
}
