package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
)

type Settle struct {
	BranchID  uuid.UUID
	SessionID uuid.UUID
	Method    models.PaymentMethod
	Actor     audit.Actor
}

type Settled struct {
	Payment models.Payment
	Session models.DiningSession
	Table   models.RestaurantTable
}

// FinalizePayment records the payment of an open session, closes the session
// and frees its table. The three writes commit together or not at all.
func (s *Service) FinalizePayment(ctx context.Context, in Settle) (*Settled, error) {
	switch in.Method {
	case "":
		in.Method = models.PaymentCash
	case models.PaymentCash, models.PaymentCard:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	var out Settled
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.DiningSession
		if err := tx.Where("id = ? AND branch_id = ?", in.SessionID, in.BranchID).First(&session).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrSessionNotFound
			}
			return err
		}

		table, err := lockTable(tx, in.BranchID, session.TableID)
		if err != nil {
			return err
		}
		// re-read under the table lock
		if err := tx.First(&session, "id = ?", session.ID).Error; err != nil {
			return err
		}
		if session.Status != models.SessionInProgress {
			return ErrSessionClosed
		}

		var orders []models.Order
		if err := tx.Where("dining_session_id = ? AND status <> ?", session.ID, models.OrderCancelled).
			Order("order_number ASC").Find(&orders).Error; err != nil {
			return err
		}
		if len(orders) == 0 {
			return ErrSessionWithoutOrders
		}

		now := time.Now().UTC()
		payment := models.Payment{
			BranchID:        in.BranchID,
			DiningSessionID: session.ID,
			OrderID:         orders[0].ID,
			Amount:          session.GrandTotal(),
			Method:          in.Method,
			Status:          models.PaymentCompleted,
			ProcessedBy:     staffRef(in.Actor),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		res := tx.Model(&models.DiningSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionInProgress).
			Updates(map[string]any{
				"status":          models.SessionCompleted,
				"is_bill_printed": true,
				"completed_at":    now,
				"changed_by":      staffRef(in.Actor),
				"changed_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionClosed
		}

		if err := tx.Model(table).Updates(map[string]any{
			"status":             models.TableAvailable,
			"last_status_update": now,
		}).Error; err != nil {
			return err
		}

		if err := tx.First(&out.Session, "id = ?", session.ID).Error; err != nil {
			return err
		}
		if err := tx.First(&out.Table, "id = ?", table.ID).Error; err != nil {
			return err
		}
		out.Payment = payment

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       in.Actor,
			BranchID:    &in.BranchID,
			EntityType:  "payment",
			EntityID:    payment.ID,
			Action:      models.AuditActionCreate,
			Description: string(in.Method) + " payment " + FormatMoney(payment.Amount) + " for table " + table.TableNumber,
			After:       payment,
		})
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx,
		realtime.NewEvent(realtime.KindPayment, realtime.OpInsert, out.Payment.ID, in.BranchID),
		realtime.NewEvent(realtime.KindSession, realtime.OpUpdate, out.Session.ID, in.BranchID),
		realtime.NewEvent(realtime.KindTable, realtime.OpUpdate, out.Table.ID, in.BranchID),
	)
	return &out, nil
}
