package admin

import (
	"errors"
	"strings"
	"time"

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

// CreateStaffRequest keeps the camelCase body of the staff admin endpoint.
type CreateStaffRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	BranchID    *uuid.UUID `json:"branchId"`
	FranchiseID *uuid.UUID `json:"franchiseId"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	RoleID      uuid.UUID  `json:"roleId"`
	StaffCode   string     `json:"staffCode"`
	Phone       string     `json:"phone"`
}

type UpdateStaffRequest struct {
	FirstName *string             `json:"firstName"`
	LastName  *string             `json:"lastName"`
	Phone     *string             `json:"phone"`
	RoleID    *uuid.UUID          `json:"roleId"`
	BranchID  *uuid.UUID          `json:"branchId"`
	Status    *models.StaffStatus `json:"status"`
}

type CreateStaffResponse struct {
	Staff             models.Staff `json:"staff"`
	Email             string       `json:"email"`
	GeneratedPassword string       `json:"generated_password,omitempty"`
}

// GET /api/staff?branch_id=&status=
func ListStaffHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := scope.FromRequest(c, db)
		if err != nil {
			return err
		}
		q := s.Apply(db.WithContext(c.UserContext()).Model(&models.Staff{})).Preload("Role")
		if st := models.StaffStatus(c.Query("status")); st != "" {
			if !st.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "invalid status")
			}
			q = q.Where("status = ?", st)
		}

		var staff []models.Staff
		if err := q.Order("first_name asc, last_name asc").Find(&staff).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list staff")
		}
		return c.JSON(staff)
	}
}

// assignableRole loads a franchise role and refuses owner roles to non-owners.
func assignableRole(tx *gorm.DB, p *auth.Principal, roleID uuid.UUID) (*models.Role, error) {
	var role models.Role
	if err := tx.First(&role, "id = ? AND franchise_id = ?", roleID, p.Staff.FranchiseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "role does not exist in this franchise")
		}
		return nil, err
	}
	if role.IsOwner && !p.IsOwner() {
		return nil, fiber.NewError(fiber.StatusForbidden, "only owners can assign owner roles")
	}
	return &role, nil
}

// POST /api/staff
// Login, staff row and mapping are created in one transaction. A generated
// password is returned once.
func CreateStaffHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body CreateStaffRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}

		body.Email = auth.NormalizeEmail(body.Email)
		body.FirstName = strings.TrimSpace(body.FirstName)
		body.LastName = strings.TrimSpace(body.LastName)
		body.StaffCode = strings.ToUpper(strings.TrimSpace(body.StaffCode))
		if body.Email == "" || body.FirstName == "" || body.RoleID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "email, firstName and roleId are required")
		}
		if body.FranchiseID != nil && *body.FranchiseID != p.Staff.FranchiseID {
			return fiber.NewError(fiber.StatusForbidden, "franchise is outside your scope")
		}

		s, err := scope.ForBranch(c, db, p, body.BranchID)
		if err != nil {
			return err
		}
		branchID, err := s.Branch()
		if err != nil {
			return scope.HTTPError(err)
		}

		generated := ""
		if body.Password == "" {
			if generated, err = auth.GeneratePassword(); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not generate password")
			}
			body.Password = generated
		}

		var staff models.Staff
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			role, err := assignableRole(tx, p, body.RoleID)
			if err != nil {
				return err
			}

			code := body.StaffCode
			if code == "" {
				if code, err = auth.GenerateStaffCode(tx); err != nil {
					return err
				}
			} else if n, err := countWhere(tx, &models.Staff{}, "code = ?", code); err != nil {
				return err
			} else if n > 0 {
				return fiber.NewError(fiber.StatusConflict, "staff code is already used")
			}

			staff = models.Staff{
				BranchID:    branchID,
				FranchiseID: p.Staff.FranchiseID,
				FirstName:   body.FirstName,
				LastName:    body.LastName,
				Code:        code,
				RoleID:      role.ID,
				Status:      models.StaffActive,
				Email:       body.Email,
				Phone:       strings.TrimSpace(body.Phone),
				HireDate:    time.Now().UTC(),
			}
			if err := tx.Create(&staff).Error; err != nil {
				return err
			}
			if _, err := auth.CreateAccount(tx, body.Email, body.Password, staff.ID); err != nil {
				return auth.AccountError(err)
			}
			staff.Role = role

			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &branchID,
				EntityType:  "staff",
				EntityID:    staff.ID,
				Action:      models.AuditActionCreate,
				Description: "staff " + staff.FullName() + " created",
				After:       staff,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "staff")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindStaff, realtime.OpInsert, staff.ID, branchID))
		return c.Status(fiber.StatusCreated).JSON(CreateStaffResponse{
			Staff:             staff,
			Email:             body.Email,
			GeneratedPassword: generated,
		})
	}
}

// loadStaff resolves :id within the caller's scope. Staff holding an owner
// role are only reachable by owners.
func loadStaff(c *fiber.Ctx, db *gorm.DB) (*models.Staff, *auth.Principal, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := httpx.ParamUUID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	var staff models.Staff
	if err := db.WithContext(c.UserContext()).
		First(&staff, "id = ? AND franchise_id = ?", id, p.Staff.FranchiseID).Error; err != nil {
		return nil, nil, httpx.StoreError(err, "staff")
	}
	if _, err := scope.ForBranch(c, db, p, &staff.BranchID); err != nil {
		return nil, nil, err
	}
	if !p.IsOwner() {
		var role models.Role
		if err := db.WithContext(c.UserContext()).Select("id", "is_owner").
			First(&role, "id = ?", staff.RoleID).Error; err != nil {
			return nil, nil, httpx.StoreError(err, "role")
		}
		if role.IsOwner {
			return nil, nil, fiber.NewError(fiber.StatusForbidden, "only owners can manage owner accounts")
		}
	}
	return &staff, p, nil
}

// PUT /api/staff/:id
func UpdateStaffHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff, p, err := loadStaff(c, db)
		if err != nil {
			return err
		}
		var body UpdateStaffRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		before := *staff

		if body.FirstName != nil {
			name := strings.TrimSpace(*body.FirstName)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "firstName can not be empty")
			}
			staff.FirstName = name
		}
		setIf(&staff.LastName, body.LastName)
		setIf(&staff.Phone, body.Phone)
		if body.Status != nil {
			if !body.Status.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "invalid status")
			}
			if staff.ID == p.StaffID() && *body.Status != models.StaffActive {
				return fiber.NewError(fiber.StatusConflict, "you can not deactivate yourself")
			}
			staff.Status = *body.Status
		}
		if body.BranchID != nil && *body.BranchID != staff.BranchID {
			s, err := scope.ForBranch(c, db, p, body.BranchID)
			if err != nil {
				return err
			}
			if !p.IsOwner() {
				return fiber.NewError(fiber.StatusForbidden, "only owners move staff between branches")
			}
			staff.BranchID = *s.BranchID
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if body.RoleID != nil && *body.RoleID != staff.RoleID {
				role, err := assignableRole(tx, p, *body.RoleID)
				if err != nil {
					return err
				}
				if staff.ID == p.StaffID() {
					return fiber.NewError(fiber.StatusConflict, "you can not change your own role")
				}
				staff.RoleID = role.ID
			}
			if err := tx.Omit("Role", "Branch").Save(staff).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &staff.BranchID,
				EntityType:  "staff",
				EntityID:    staff.ID,
				Action:      models.AuditActionUpdate,
				Description: "staff " + staff.FullName() + " updated",
				Before:      before,
				After:       staff,
			})
		})
		if err != nil {
			return httpx.StoreError(err, "staff")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindStaff, realtime.OpUpdate, staff.ID, staff.BranchID))
		return c.JSON(staff)
	}
}

// DELETE /api/staff/:id
// Deactivates the staff member; the login stops resolving right away.
func DeactivateStaffHandler(db *gorm.DB, events realtime.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		staff, p, err := loadStaff(c, db)
		if err != nil {
			return err
		}
		if staff.ID == p.StaffID() {
			return fiber.NewError(fiber.StatusConflict, "you can not deactivate yourself")
		}
		if staff.Status == models.StaffInactive {
			return c.SendStatus(fiber.StatusNoContent)
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(staff).Update("status", models.StaffInactive).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       audit.ActorOf(p),
				BranchID:    &staff.BranchID,
				EntityType:  "staff",
				EntityID:    staff.ID,
				Action:      models.AuditActionDelete,
				Description: "staff " + staff.FullName() + " deactivated",
			})
		})
		if err != nil {
			return httpx.StoreError(err, "staff")
		}

		events.Publish(c.UserContext(), realtime.NewEvent(realtime.KindStaff, realtime.OpUpdate, staff.ID, staff.BranchID))
		return c.SendStatus(fiber.StatusNoContent)
	}
}
