package auth

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"restoran-pos/internal/config"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
)

type RegisterOwnerRequest struct {
	FranchiseName string `json:"franchise_name"`
	BranchName    string `json:"branch_name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func fiberError(code int, err error) error {
	return fiber.NewError(code, err.Error())
}

// POST /api/auth/register-owner
// Bootstraps an empty installation: franchise, first branch, owner role, owner
// staff and login. Refused once any owner role exists.
func RegisterOwnerHandler(db *gorm.DB, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterOwnerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Email = NormalizeEmail(body.Email)
		body.FranchiseName = strings.TrimSpace(body.FranchiseName)
		body.BranchName = strings.TrimSpace(body.BranchName)
		if body.BranchName == "" {
			body.BranchName = "Main"
		}
		if body.Email == "" || body.Password == "" || body.FranchiseName == "" || body.FirstName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "franchise_name, first_name, email and password are required")
		}

		var staff models.Staff
		err := db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var owners int64
			if err := tx.Model(&models.Role{}).Where("is_owner = ?", true).Count(&owners).Error; err != nil {
				return err
			}
			if owners > 0 {
				return fiber.NewError(fiber.StatusForbidden, "an owner is already registered")
			}

			franchise := models.Franchise{
				Name:         body.FranchiseName,
				Code:         "FR001",
				Status:       models.FranchiseActive,
				OwnerName:    strings.TrimSpace(body.FirstName + " " + body.LastName),
				ContactEmail: body.Email,
			}
			if err := tx.Create(&franchise).Error; err != nil {
				return err
			}
			branch := models.Branch{
				FranchiseID: franchise.ID,
				Name:        body.BranchName,
				Code:        "BR001",
				Status:      models.BranchActive,
				Timezone:    "UTC",
			}
			if err := tx.Create(&branch).Error; err != nil {
				return err
			}
			role := models.Role{
				FranchiseID: franchise.ID,
				Name:        "Owner",
				Description: "Full access to every branch of the franchise",
				IsOwner:     true,
				Permissions: permissions.EmptyMap(),
			}
			for k := range role.Permissions {
				role.Permissions[k] = true
			}
			if err := tx.Create(&role).Error; err != nil {
				return err
			}

			code, err := GenerateStaffCode(tx)
			if err != nil {
				return err
			}
			staff = models.Staff{
				BranchID:    branch.ID,
				FranchiseID: franchise.ID,
				FirstName:   body.FirstName,
				LastName:    body.LastName,
				Code:        code,
				RoleID:      role.ID,
				Status:      models.StaffActive,
				Email:       body.Email,
				HireDate:    time.Now().UTC(),
			}
			if err := tx.Create(&staff).Error; err != nil {
				return err
			}
			_, err = CreateAccount(tx, body.Email, body.Password, staff.ID)
			return err
		})
		if err != nil {
			var fe *fiber.Error
			if errors.As(AccountError(err), &fe) {
				return fe
			}
			log.Error("register owner", "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "could not register owner")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"staff_id":     staff.ID,
			"franchise_id": staff.FranchiseID,
			"branch_id":    staff.BranchID,
			"email":        body.Email,
		})
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, cfg *config.Config, resolver *Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		body.Email = NormalizeEmail(body.Email)

		var user models.AuthUser
		if err := db.WithContext(c.UserContext()).Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}
		if !CheckPassword(user.PasswordHash, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		principal, err := resolver.Resolve(c.UserContext(), user.ID)
		if err != nil {
			if errors.Is(err, ErrUnknownPrincipal) {
				return fiber.NewError(fiber.StatusUnauthorized, "no active staff for this account")
			}
			return err
		}

		token, expires, err := GenerateToken(cfg.JWTSecret, user.ID, user.Email, cfg.SessionTTL)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create session")
		}
		setSessionCookie(c, cfg, token, expires)

		return c.JSON(fiber.Map{
			"token":      token,
			"expires_at": expires.UTC(),
			"staff":      principal.Staff,
			"role": fiber.Map{
				"id":       principal.Grant.RoleID,
				"name":     principal.Grant.RoleName,
				"is_owner": principal.IsOwner(),
			},
		})
	}
}

// POST /api/auth/logout
func LogoutHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clearSessionCookie(c, cfg)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type moduleAccess struct {
	Module  permissions.Module `json:"module"`
	Label   string             `json:"label"`
	Actions []string           `json:"actions"`
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentPrincipal(c)
		if err != nil {
			return err
		}

		keys := p.Grant.Set.Keys()
		modules := make([]moduleAccess, 0)
		for _, m := range permissions.Modules() {
			if !p.Grant.Set.CanAccessModule(m) {
				continue
			}
			entry := moduleAccess{Module: m, Label: permissions.Label(m), Actions: []string{}}
			prefix := string(m) + "_"
			for _, k := range keys {
				if strings.HasPrefix(k, prefix) {
					entry.Actions = append(entry.Actions, strings.TrimPrefix(k, prefix))
				}
			}
			modules = append(modules, entry)
		}

		return c.JSON(fiber.Map{
			"auth_user_id": p.AuthUserID,
			"staff":        p.Staff,
			"role": fiber.Map{
				"id":       p.Grant.RoleID,
				"name":     p.Grant.RoleName,
				"is_owner": p.IsOwner(),
			},
			"permissions": keys,
			"modules":     modules,
		})
	}
}
