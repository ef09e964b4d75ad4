package pos

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/httpx"
	"restoran-pos/internal/models"
	"restoran-pos/internal/scope"
)

type OrderItemRequest struct {
	ItemID          uuid.UUID `json:"item_id"`
	Quantity        int       `json:"quantity"`
	SpecialRequests string    `json:"special_requests"`
}

type PlaceOrderRequest struct {
	BranchID       *uuid.UUID         `json:"branch_id"`
	TableID        uuid.UUID          `json:"table_id"`
	Notes          *string            `json:"notes"`
	NumberOfGuests int                `json:"number_of_guests"`
	Items          []OrderItemRequest `json:"items"`
}

type PaymentRequest struct {
	Method models.PaymentMethod `json:"method"`
}

// rowBranch resolves the branch of an addressed row and checks it against the
// caller's scope.
func rowBranch(c *fiber.Ctx, db *gorm.DB, model any, id uuid.UUID, notFound error) (uuid.UUID, *auth.Principal, error) {
	p, err := auth.CurrentPrincipal(c)
	if err != nil {
		return uuid.Nil, nil, err
	}
	var ids []uuid.UUID
	if err := db.WithContext(c.UserContext()).Model(model).Where("id = ?", id).Pluck("branch_id", &ids).Error; err != nil {
		return uuid.Nil, nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, nil, HTTPError(notFound)
	}
	if _, err := scope.ForBranch(c, db, p, &ids[0]); err != nil {
		return uuid.Nil, nil, err
	}
	return ids[0], p, nil
}

// POST /api/orders
func PlaceOrderHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body PlaceOrderRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		if body.TableID == uuid.Nil {
			return fiber.NewError(fiber.StatusBadRequest, "table_id is required")
		}
		if body.BranchID == nil {
			if body.BranchID, err = httpx.QueryUUID(c, "branch_id"); err != nil {
				return err
			}
		}
		s, err := scope.ForBranch(c, db, p, body.BranchID)
		if err != nil {
			return err
		}
		branchID, err := s.Branch()
		if err != nil {
			return scope.HTTPError(err)
		}

		in := PlaceOrder{
			BranchID: branchID,
			TableID:  body.TableID,
			Notes:    body.Notes,
			Guests:   body.NumberOfGuests,
			Actor:    audit.ActorOf(p),
		}
		for _, it := range body.Items {
			in.Lines = append(in.Lines, OrderLine{ItemID: it.ItemID, Quantity: it.Quantity, SpecialRequests: it.SpecialRequests})
		}

		placed, err := svc.PlaceOrder(c.UserContext(), in)
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order":       NewOrderView(&placed.Order),
			"session":     NewSessionView(&placed.Session),
			"new_session": placed.NewSession,
		})
	}
}

// GET /api/orders/active?branch_id=
func ActiveOrdersHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		orders, err := svc.ActiveOrders(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return c.JSON(NewOrderViews(orders))
	}
}

// GET /api/orders/history?branch_id=&status=SERVED&since=2024-01-01&until=&limit=
func OrderHistoryHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		f := HistoryFilter{BranchID: branchID, Limit: c.QueryInt("limit", 0)}
		if st := models.OrderStatus(c.Query("status")); st != "" {
			if st != models.OrderServed && st != models.OrderCancelled {
				return fiber.NewError(fiber.StatusBadRequest, "status must be SERVED or CANCELLED")
			}
			f.Status = st
		}
		if f.Since, err = httpx.QueryDate(c, "since"); err != nil {
			return err
		}
		if f.Until, err = httpx.QueryDate(c, "until"); err != nil {
			return err
		}

		orders, err := svc.OrderHistory(c.UserContext(), f)
		if err != nil {
			return err
		}
		return c.JSON(NewOrderViews(orders))
	}
}

type orderStep func(svc *Service, c *fiber.Ctx, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error)

func orderStepHandler(svc *Service, db *gorm.DB, step orderStep) fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := httpx.ParamUUID(c, "id")
		if err != nil {
			return err
		}
		branchID, p, err := rowBranch(c, db, &models.Order{}, orderID, ErrOrderNotFound)
		if err != nil {
			return err
		}
		order, err := step(svc, c, branchID, orderID, audit.ActorOf(p))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(NewOrderView(order))
	}
}

// POST /api/orders/:id/ready
func MarkReadyHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return orderStepHandler(svc, db, func(svc *Service, c *fiber.Ctx, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
		return svc.MarkReady(c.UserContext(), branchID, orderID, actor)
	})
}

// POST /api/orders/:id/serve
func ServeHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return orderStepHandler(svc, db, func(svc *Service, c *fiber.Ctx, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
		return svc.Serve(c.UserContext(), branchID, orderID, actor)
	})
}

// POST /api/orders/:id/cancel
func CancelHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return orderStepHandler(svc, db, func(svc *Service, c *fiber.Ctx, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
		return svc.Cancel(c.UserContext(), branchID, orderID, actor)
	})
}

// GET /api/sessions/active?branch_id=
func ActiveSessionsHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		sessions, err := svc.ActiveSessions(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		out := make([]SessionView, 0, len(sessions))
		for i := range sessions {
			out = append(out, NewSessionView(&sessions[i]))
		}
		return c.JSON(out)
	}
}

// GET /api/tables/:id/session
// Responds with null when the table is free.
func TableSessionHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := httpx.ParamUUID(c, "id")
		if err != nil {
			return err
		}
		branchID, _, err := rowBranch(c, db, &models.RestaurantTable{}, tableID, ErrTableNotFound)
		if err != nil {
			return err
		}
		session, err := svc.TableSession(c.UserContext(), branchID, tableID)
		if err != nil {
			return HTTPError(err)
		}
		if session == nil {
			return c.JSON(nil)
		}
		return c.JSON(NewSessionView(session))
	}
}

// POST /api/sessions/:id/payment
func PaymentHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := httpx.ParamUUID(c, "id")
		if err != nil {
			return err
		}
		var body PaymentRequest
		if len(c.Body()) > 0 {
			if err := httpx.Body(c, &body); err != nil {
				return err
			}
		}
		branchID, p, err := rowBranch(c, db, &models.DiningSession{}, sessionID, ErrSessionNotFound)
		if err != nil {
			return err
		}

		settled, err := svc.FinalizePayment(c.UserContext(), Settle{
			BranchID:  branchID,
			SessionID: sessionID,
			Method:    body.Method,
			Actor:     audit.ActorOf(p),
		})
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"payment":        settled.Payment,
			"amount_display": FormatMoney(settled.Payment.Amount),
			"session":        NewSessionView(&settled.Session),
			"table":          settled.Table,
		})
	}
}

type TableRequest struct {
	BranchID    *uuid.UUID `json:"branch_id"`
	TableNumber string     `json:"table_number"`
	Capacity    int        `json:"capacity"`
}

// GET /api/tables?branch_id=
func ListTablesHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := scope.RequiredBranch(c, db)
		if err != nil {
			return err
		}
		tables, err := svc.Tables(c.UserContext(), branchID)
		if err != nil {
			return err
		}
		return c.JSON(tables)
	}
}

// POST /api/tables
func CreateTableHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := auth.CurrentPrincipal(c)
		if err != nil {
			return err
		}
		var body TableRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		s, err := scope.ForBranch(c, db, p, body.BranchID)
		if err != nil {
			return err
		}
		branchID, err := s.Branch()
		if err != nil {
			return scope.HTTPError(err)
		}
		table, err := svc.CreateTable(c.UserContext(), branchID, TableInput{TableNumber: body.TableNumber, Capacity: body.Capacity}, audit.ActorOf(p))
		if err != nil {
			return HTTPError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(table)
	}
}

// PUT /api/tables/:id
func UpdateTableHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := httpx.ParamUUID(c, "id")
		if err != nil {
			return err
		}
		var body TableRequest
		if err := httpx.Body(c, &body); err != nil {
			return err
		}
		branchID, p, err := rowBranch(c, db, &models.RestaurantTable{}, tableID, ErrTableNotFound)
		if err != nil {
			return err
		}
		table, err := svc.UpdateTable(c.UserContext(), branchID, tableID, TableInput{TableNumber: body.TableNumber, Capacity: body.Capacity}, audit.ActorOf(p))
		if err != nil {
			return HTTPError(err)
		}
		return c.JSON(table)
	}
}

// DELETE /api/tables/:id
func DeleteTableHandler(svc *Service, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := httpx.ParamUUID(c, "id")
		if err != nil {
			return err
		}
		branchID, p, err := rowBranch(c, db, &models.RestaurantTable{}, tableID, ErrTableNotFound)
		if err != nil {
			return err
		}
		if err := svc.DeleteTable(c.UserContext(), branchID, tableID, audit.ActorOf(p)); err != nil {
			return HTTPError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
