// Package server wires the HTTP routes of the POS API.
package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"restoran-pos/internal/admin"
	"restoran-pos/internal/analytics"
	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/config"
	"restoran-pos/internal/menu"
	"restoran-pos/internal/permissions"
	"restoran-pos/internal/pos"
	"restoran-pos/internal/realtime"
)

type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Log      *slog.Logger
	Resolver *auth.Resolver
	POS      *pos.Service
	Hub      *realtime.Hub
	Events   realtime.Publisher

	// AccessLog turns on the request log middleware.
	AccessLog bool
}

const keepAlive = 25 * time.Second

func perm(m permissions.Module, a permissions.Action) fiber.Handler {
	return auth.Require(permissions.Permission{Module: m, Action: a})
}

// ErrorHandler renders every error as {"error": msg}. Errors that are not
// *fiber.Error are logged and hidden behind a 500.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.Error("unexpected error", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unexpected server error"})
	}
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(d.Log),
		BodyLimit:    8 << 20,
	})

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.Config.AllowedOrigins(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
	}))

	db, svc, events := d.DB, d.POS, d.Events
	roles := d.Resolver.Roles()

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Public auth
	api.Post("/auth/register-owner", auth.RegisterOwnerHandler(db, d.Log))
	api.Post("/auth/login", auth.LoginHandler(db, d.Config, d.Resolver))
	api.Post("/auth/logout", auth.LogoutHandler(d.Config))

	protected := api.Group("", auth.SessionMiddleware(d.Config, d.Resolver, d.Log))
	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/changes", realtime.StreamHandler(d.Hub, db, keepAlive))

	// Franchise and audit trail
	protected.Get("/franchise", auth.RequireOwner(), admin.GetFranchiseHandler(db))
	protected.Put("/franchise", auth.RequireOwner(), admin.UpdateFranchiseHandler(db))
	protected.Get("/audit-logs", auth.RequireOwner(), audit.ListAuditLogsHandler(db))

	// Branches
	protected.Get("/branches/selectable", admin.SelectableBranchesHandler(db))
	protected.Get("/branches", perm(permissions.ModuleBranch, permissions.ActionView), admin.ListBranchesHandler(db))
	protected.Post("/branches", perm(permissions.ModuleBranch, permissions.ActionCreate), admin.CreateBranchHandler(db, events))
	protected.Get("/branches/:id", perm(permissions.ModuleBranch, permissions.ActionView), admin.GetBranchHandler(db))
	protected.Put("/branches/:id", perm(permissions.ModuleBranch, permissions.ActionEdit), admin.UpdateBranchHandler(db, events))
	protected.Delete("/branches/:id", perm(permissions.ModuleBranch, permissions.ActionDelete), admin.DeleteBranchHandler(db, events))

	// Roles
	protected.Get("/roles/modules", perm(permissions.ModuleRoles, permissions.ActionView), admin.ListPermissionModulesHandler())
	protected.Get("/roles", perm(permissions.ModuleRoles, permissions.ActionView), admin.ListRolesHandler(db))
	protected.Post("/roles", perm(permissions.ModuleRoles, permissions.ActionCreate), admin.CreateRoleHandler(db, events))
	protected.Put("/roles/:id", perm(permissions.ModuleRoles, permissions.ActionEdit), admin.UpdateRoleHandler(db, roles, events))
	protected.Delete("/roles/:id", perm(permissions.ModuleRoles, permissions.ActionDelete), admin.DeleteRoleHandler(db, roles, events))

	// Staff
	protected.Get("/staff", perm(permissions.ModuleStaff, permissions.ActionView), admin.ListStaffHandler(db))
	protected.Post("/staff", perm(permissions.ModuleStaff, permissions.ActionCreate), admin.CreateStaffHandler(db, events))
	protected.Put("/staff/:id", perm(permissions.ModuleStaff, permissions.ActionEdit), admin.UpdateStaffHandler(db, events))
	protected.Delete("/staff/:id", perm(permissions.ModuleStaff, permissions.ActionDelete), admin.DeactivateStaffHandler(db, events))

	// Tables
	protected.Get("/tables", perm(permissions.ModuleTables, permissions.ActionView), pos.ListTablesHandler(svc, db))
	protected.Post("/tables", perm(permissions.ModuleTables, permissions.ActionEdit), pos.CreateTableHandler(svc, db))
	protected.Put("/tables/:id", perm(permissions.ModuleTables, permissions.ActionEdit), pos.UpdateTableHandler(svc, db))
	protected.Delete("/tables/:id", perm(permissions.ModuleTables, permissions.ActionEdit), pos.DeleteTableHandler(svc, db))
	protected.Get("/tables/:id/session", perm(permissions.ModuleTableOrders, permissions.ActionView), pos.TableSessionHandler(svc, db))

	// Menu
	protected.Get("/menu", perm(permissions.ModuleMenu, permissions.ActionView), menu.ListMenuHandler(db))
	protected.Get("/menu/categories", perm(permissions.ModuleMenu, permissions.ActionView), menu.ListCategoriesHandler(db))
	protected.Post("/menu", perm(permissions.ModuleMenu, permissions.ActionCreate), menu.CreateMenuItemHandler(db, events))
	protected.Post("/menu/import", perm(permissions.ModuleMenu, permissions.ActionCreate), perm(permissions.ModuleMenu, permissions.ActionEdit), menu.ImportMenuHandler(db, events))
	protected.Put("/menu/:id", perm(permissions.ModuleMenu, permissions.ActionEdit), menu.UpdateMenuItemHandler(db, events))
	protected.Delete("/menu/:id", perm(permissions.ModuleMenu, permissions.ActionDelete), menu.DeleteMenuItemHandler(db, events))

	// Orders
	protected.Post("/orders", perm(permissions.ModuleTableOrders, permissions.ActionCreate), pos.PlaceOrderHandler(svc, db))
	protected.Get("/orders/active", perm(permissions.ModuleActiveOrders, permissions.ActionView), pos.ActiveOrdersHandler(svc, db))
	protected.Get("/orders/history", perm(permissions.ModuleOrderHistory, permissions.ActionView), pos.OrderHistoryHandler(svc, db))
	protected.Post("/orders/:id/ready", perm(permissions.ModuleActiveOrders, permissions.ActionUpdate), pos.MarkReadyHandler(svc, db))
	protected.Post("/orders/:id/serve", perm(permissions.ModuleActiveOrders, permissions.ActionUpdate), pos.ServeHandler(svc, db))
	protected.Post("/orders/:id/cancel", perm(permissions.ModuleTableOrders, permissions.ActionVoid), pos.CancelHandler(svc, db))

	// Sessions and payment
	protected.Get("/sessions/active", perm(permissions.ModulePayments, permissions.ActionView), pos.ActiveSessionsHandler(svc, db))
	protected.Post("/sessions/:id/payment", perm(permissions.ModulePayments, permissions.ActionProcess), pos.PaymentHandler(svc, db))

	// Reports
	protected.Get("/analytics/sales", perm(permissions.ModuleAnalytics, permissions.ActionView), analytics.SalesHandler(db, d.Log))

	return app
}
