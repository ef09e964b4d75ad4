// Package pos runs the table, dining session, order and payment lifecycle of
// a branch.
package pos

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
)

type Service struct {
	db     *gorm.DB
	events realtime.Publisher
	log    *slog.Logger
}

func NewService(db *gorm.DB, events realtime.Publisher, log *slog.Logger) *Service {
	if events == nil {
		events = realtime.Nop{}
	}
	return &Service{db: db, events: events, log: log}
}

type OrderLine struct {
	ItemID          uuid.UUID
	Quantity        int
	SpecialRequests string
}

type PlaceOrder struct {
	BranchID uuid.UUID
	TableID  uuid.UUID
	Lines    []OrderLine
	Notes    *string // replaces the session notes when set
	Guests   int
	Actor    audit.Actor
}

type Placed struct {
	Order      models.Order
	Session    models.DiningSession
	NewSession bool
}

func staffRef(a audit.Actor) *uuid.UUID {
	if a.StaffID == uuid.Nil {
		return nil
	}
	id := a.StaffID
	return &id
}

// lockTable takes the row lock that serializes every writer of the table's
// session. SQLite ignores the locking clause and serializes on its own.
func lockTable(tx *gorm.DB, branchID, tableID uuid.UUID) (*models.RestaurantTable, error) {
	var table models.RestaurantTable
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND branch_id = ?", tableID, branchID).
		First(&table).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &table, nil
}

// PlaceOrder adds an order to the table's open session, opening the session
// and occupying the table when there is none.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrder) (*Placed, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyOrder
	}
	ids := make([]uuid.UUID, 0, len(in.Lines))
	seen := make(map[uuid.UUID]struct{}, len(in.Lines))
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		if _, ok := seen[l.ItemID]; !ok {
			seen[l.ItemID] = struct{}{}
			ids = append(ids, l.ItemID)
		}
	}

	var out Placed
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := lockTable(tx, in.BranchID, in.TableID)
		if err != nil {
			return err
		}

		var items []models.MenuItem
		if err := tx.Where("id IN ? AND branch_id = ? AND is_active = ?", ids, in.BranchID, true).
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) != len(ids) {
			return ErrMenuItemUnavailable
		}
		prices := make(map[uuid.UUID]float64, len(items))
		for _, it := range items {
			prices[it.ID] = it.Cost
		}

		var subtotal float64
		lines := make([]models.OrderItem, 0, len(in.Lines))
		for _, l := range in.Lines {
			subtotal += prices[l.ItemID] * float64(l.Quantity)
			lines = append(lines, models.OrderItem{
				ItemID:          l.ItemID,
				Quantity:        l.Quantity,
				SpecialRequests: l.SpecialRequests,
			})
		}
		tax := Tax(subtotal)
		now := time.Now().UTC()

		session, created, err := openSession(tx, table, in, now)
		if err != nil {
			return err
		}

		updates := map[string]any{
			"total_amount": session.TotalAmount + subtotal,
			"tax_amount":   session.TaxAmount + tax,
			"changed_by":   staffRef(in.Actor),
			"changed_at":   now,
		}
		if in.Notes != nil {
			updates["notes"] = *in.Notes
		}
		if err := tx.Model(&models.DiningSession{}).Where("id = ?", session.ID).Updates(updates).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Order{}).Where("dining_session_id = ?", session.ID).Count(&count).Error; err != nil {
			return err
		}

		order := models.Order{
			BranchID:        in.BranchID,
			DiningSessionID: session.ID,
			TableID:         table.ID,
			OrderNumber:     int(count) + 1,
			Status:          models.OrderInProgress,
			TotalAmount:     subtotal,
			TaxAmount:       tax,
			CreatedBy:       staffRef(in.Actor),
			Items:           lines,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		if err := tx.First(&out.Session, "id = ?", session.ID).Error; err != nil {
			return err
		}
		out.Order = order
		out.NewSession = created

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       in.Actor,
			BranchID:    &in.BranchID,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: "order placed for table " + table.TableNumber,
			After:       order,
		})
	})
	if err != nil {
		return nil, err
	}

	events := []realtime.Event{}
	if out.NewSession {
		events = append(events,
			realtime.NewEvent(realtime.KindTable, realtime.OpUpdate, in.TableID, in.BranchID),
			realtime.NewEvent(realtime.KindSession, realtime.OpInsert, out.Session.ID, in.BranchID),
		)
	} else {
		events = append(events, realtime.NewEvent(realtime.KindSession, realtime.OpUpdate, out.Session.ID, in.BranchID))
	}
	events = append(events, realtime.NewEvent(realtime.KindOrder, realtime.OpInsert, out.Order.ID, in.BranchID))
	s.events.Publish(ctx, events...)

	return &out, nil
}

// openSession returns the table's IN_PROGRESS session or creates one with
// zero totals and marks the table OCCUPIED.
func openSession(tx *gorm.DB, table *models.RestaurantTable, in PlaceOrder, now time.Time) (*models.DiningSession, bool, error) {
	var open []models.DiningSession
	if err := tx.Where("table_id = ? AND status = ?", table.ID, models.SessionInProgress).
		Limit(1).Find(&open).Error; err != nil {
		return nil, false, err
	}
	if len(open) == 1 {
		return &open[0], false, nil
	}

	guests := in.Guests
	if guests < 1 {
		guests = 1
	}
	session := models.DiningSession{
		BranchID:       table.BranchID,
		TableID:        table.ID,
		Status:         models.SessionInProgress,
		NumberOfGuests: guests,
		ChangedBy:      staffRef(in.Actor),
		ChangedAt:      &now,
	}
	if err := tx.Create(&session).Error; err != nil {
		return nil, false, err
	}
	if err := tx.Model(table).Updates(map[string]any{
		"status":             models.TableOccupied,
		"last_status_update": now,
	}).Error; err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

// MarkReady is the kitchen step IN_PROGRESS -> COMPLETED.
func (s *Service) MarkReady(ctx context.Context, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
	return s.transition(ctx, branchID, orderID, models.OrderCompleted, actor,
		func(_ *gorm.DB, _ *models.Order, now time.Time, u map[string]any) error {
			u["completed_at"] = now
			return nil
		})
}

// Serve moves a COMPLETED order to SERVED with the acting staff as waiter.
func (s *Service) Serve(ctx context.Context, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
	if actor.StaffID == uuid.Nil {
		return nil, ErrWaiterRequired
	}
	return s.transition(ctx, branchID, orderID, models.OrderServed, actor,
		func(_ *gorm.DB, _ *models.Order, now time.Time, u map[string]any) error {
			u["served_at"] = now
			u["waiter_id"] = actor.StaffID
			return nil
		})
}

// Cancel voids an IN_PROGRESS order and takes its amounts off the open bill.
func (s *Service) Cancel(ctx context.Context, branchID, orderID uuid.UUID, actor audit.Actor) (*models.Order, error) {
	return s.transition(ctx, branchID, orderID, models.OrderCancelled, actor,
		func(tx *gorm.DB, o *models.Order, now time.Time, u map[string]any) error {
			u["cancelled_at"] = now
			return releaseFromBill(tx, o, actor, now)
		})
}

func releaseFromBill(tx *gorm.DB, o *models.Order, actor audit.Actor, now time.Time) error {
	if _, err := lockTable(tx, o.BranchID, o.TableID); err != nil {
		return err
	}

	var session models.DiningSession
	if err := tx.First(&session, "id = ?", o.DiningSessionID).Error; err != nil {
		if database.IsNotFound(err) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.Status != models.SessionInProgress {
		return ErrSessionClosed
	}

	var live int64
	if err := tx.Model(&models.Order{}).
		Where("dining_session_id = ? AND id <> ? AND status <> ?", session.ID, o.ID, models.OrderCancelled).
		Count(&live).Error; err != nil {
		return err
	}
	total, tax := session.TotalAmount-o.TotalAmount, session.TaxAmount-o.TaxAmount
	if live == 0 {
		// no float residue on an empty bill
		total, tax = 0, 0
	}

	return tx.Model(&models.DiningSession{}).Where("id = ?", session.ID).Updates(map[string]any{
		"total_amount": total,
		"tax_amount":   tax,
		"changed_by":   staffRef(actor),
		"changed_at":   now,
	}).Error
}

type transitionHook func(tx *gorm.DB, o *models.Order, now time.Time, updates map[string]any) error

// transition applies one order status change as a conditional update on the
// current status. A lost race reports ErrInvalidTransition.
func (s *Service) transition(ctx context.Context, branchID, orderID uuid.UUID, to models.OrderStatus, actor audit.Actor, hook transitionHook) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND branch_id = ?", orderID, branchID).First(&order).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return err
		}
		from := order.Status
		if !models.CanTransition(from, to) {
			return ErrInvalidTransition
		}

		now := time.Now().UTC()
		updates := map[string]any{"status": to}
		if hook != nil {
			if err := hook(tx, &order, now, updates); err != nil {
				return err
			}
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", order.ID, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidTransition
		}

		before := order
		if err := tx.First(&order, "id = ?", order.ID).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			BranchID:    &branchID,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionUpdate,
			Description: "order " + string(from) + " -> " + string(to),
			Before:      before,
			After:       order,
		})
	})
	if err != nil {
		return nil, err
	}

	events := []realtime.Event{realtime.NewEvent(realtime.KindOrder, realtime.OpUpdate, order.ID, branchID)}
	if to == models.OrderCancelled {
		events = append(events, realtime.NewEvent(realtime.KindSession, realtime.OpUpdate, order.DiningSessionID, branchID))
	}
	s.events.Publish(ctx, events...)
	return &order, nil
}
