package admin

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
	"restoran-pos/internal/realtime"
)

type RoleRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	IsOwner     *bool           `json:"is_owner"`
	Permissions map[string]bool `json:"permissions"`
}

type RoleResponse struct {
	models.Role
	Granted    []string `json:"granted"`
	StaffCount int64    `json:"staff_count"`
}

type ModuleResponse struct {
	Module        permissions.Module `json:"module"`
	Label         string             `json:"label"`
	Actions       []string           `json:"actions"`
	RequiresOwner bool               `json:"requires_owner"`
}

func grantedKeys(r *models.Role) []string {
	return permissions.FromRole(r).Keys()
}

// GET /api/roles/modules
// The permission matrix the role editor renders.
func ListPermissionModulesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		byModule := map[permissions.Module][]string{}
		for _, p := range permissions.All() {
			byModule[p.Module] = append(byModule[p.Module], string(p.Action))
		}
		out := make([]ModuleResponse, 0, len(byModule))
		for _, m := range permissions.Modules() {
			out = append(out, ModuleResponse{
				Module:        m,
				Label:         permissions.Label(m),
				Actions:       byModule[m],
				RequiresOwner: m == permissions.ModuleFranchise,
			})
		}
		return c.JSON(out)
	}
}

// GET /api/roles
func ListRolesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var roles []models.Role
		if err := db.WithContext(c.UserContext()).
			Where("franchise_id = ?", p.Staff.FranchiseID).
			Order("is_owner desc, name asc").
			Find(&roles).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list roles")
		}

		type countRow struct {
			RoleID uuid.UUID
			N      int64
		}
		var counts []countRow
		if err := db.WithContext(c.UserContext()).Model(&models.Staff{}).
			Select("role_id, count(*) as n").
			Where("franchise_id = ?", p.Staff.FranchiseID).
			Group("role_id").
			Scan(&counts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not count staff")
		}
		byRole := make(map[uuid.UUID]int64, len(counts))
		for _, r := range counts {
			byRole[r.RoleID] = r.N
		}

		out := make([]RoleResponse, 0, len(roles))
		for i := range roles {
			out = append(out, RoleResponse{
				Role:       roles[i],
				Granted:    grantedKeys(&roles[i]),
				StaffCount: byRole[roles[i].ID],
			})
		}
		return c.JSON(out)
	}
}

func normalizePermissions(in map[string]bool) (models.PermissionMap, error) {
	perms, unknown := permissions.Normalize(in)
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown permissions: "+strings.Join(unknown, ", "))
	}
	return perms, nil
}

// POST /api/roles
func CreateRoleHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body RoleRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		isOwner := body.IsOwner != nil && *body.IsOwner
		if isOwner && !p.IsOwner() {
			return fiber.NewError(fiber.StatusForbidden, "only owners can create owner roles")
		}
		perms, err := normalizePermissions(body.Permissions)
		if err != nil {
			return err
		}

		role := models.Role{
			FranchiseID: p.Staff.FranchiseID,
			Name:        strings.TrimSpace(*body.Name),
			IsOwner:     isOwner,
			Permissions: perms,
		}
		if body.Description != nil {
			role.Description = strings.TrimSpace(*body.Description)
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				EntityType:  "role",
				EntityID:    role.ID,
				Action:      models.AuditActionCreate,
				Description: "role " + role.Name + " created",
				After:       role,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "role")
		}

		publishFranchise(c.UserContext(), db, events, role.FranchiseID, realtime.KindRole, realtime.OpInsert, role.ID)
		return c.Status(fiber.StatusCreated).JSON(RoleResponse{Role: role, Granted: grantedKeys(&role)})
	}
}

func loadRole(c *fiber.Ctx, db *gorm.DB) (*models.Role, *auth.Principal, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := httpx.ParamUUID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	var role models.Role
	if err := db.WithContext(c.UserContext()).
		First(&role, "id = ? AND franchise_id = ?", id, p.Staff.FranchiseID).Error; err != nil {
		return nil, nil, httpx.StoreError(err, "role")
	}
	if role.IsOwner && !p.IsOwner() {
		return nil, nil, fiber.NewError(fiber.StatusForbidden, "only owners can change owner roles")
	}
	return &role, p, nil
}

// PUT /api/roles/:id
// Permissions, when sent, replace the whole map. Non-owners can not edit the
// role they hold.
func UpdateRoleHandler(db *gorm.DB, roles *permissions.Cache, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, p, err := loadRole(c, db)
		if err != nil {
			return err
		}
		if role.ID == p.Grant.RoleID && !p.IsOwner() {
			return fiber.NewError(fiber.StatusForbidden, "you can not edit your own role")
		}
		var body RoleRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		before := *role

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name can not be empty")
			}
			role.Name = name
		}
		if body.Description != nil {
			role.Description = strings.TrimSpace(*body.Description)
		}
		if body.IsOwner != nil && *body.IsOwner != role.IsOwner {
			if !p.IsOwner() {
				return fiber.NewError(fiber.StatusForbidden, "only owners can grant owner access")
			}
			if !*body.IsOwner && role.ID == p.Grant.RoleID {
				return fiber.NewError(fiber.StatusConflict, "you can not drop owner access from your own role")
			}
			role.IsOwner = *body.IsOwner
		}
		if body.Permissions != nil {
			perms, err := normalizePermissions(body.Permissions)
			if err != nil {
				return err
			}
			role.Permissions = perms
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(role).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				EntityType:  "role",
				EntityID:    role.ID,
				Action:      models.AuditActionUpdate,
				Description: "role " + role.Name + " updated",
				Before:      before,
				After:       role,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "role")
		}
		roles.Invalidate(role.ID)

		publishFranchise(c.UserContext(), db, events, role.FranchiseID, realtime.KindRole, realtime.OpUpdate, role.ID)
		return c.JSON(RoleResponse{Role: *role, Granted: grantedKeys(role)})
	}
}

// DELETE /api/roles/:id
func DeleteRoleHandler(db *gorm.DB, roles *permissions.Cache, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, p, err := loadRole(c, db)
		if err != nil {
			return err
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			n, err := countWhere(tx, &models.Staff{}, "role_id = ?", role.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fiber.NewError(fiber.StatusConflict, "role is assigned to staff")
			}
			if err := tx.Delete(role).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				EntityType:  "role",
				EntityID:    role.ID,
				Action:      models.AuditActionDelete,
				Description: "role " + role.Name + " deleted",
				Before:      role,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "role")
		}
		roles.Invalidate(role.ID)

		publishFranchise(c.UserContext(), db, events, role.FranchiseID, realtime.KindRole, realtime.OpDelete, role.ID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
