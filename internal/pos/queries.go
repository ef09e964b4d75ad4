package pos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
)

func byOrderNumber(db *gorm.DB) *gorm.DB { return db.Order("order_number ASC") }

// ActiveOrders lists the kitchen queue of a branch, oldest first.
func (s *Service) ActiveOrders(ctx context.Context, branchID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Items.Item").
		Where("branch_id = ? AND status IN ?", branchID, []models.OrderStatus{models.OrderInProgress, models.OrderCompleted}).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// ActiveSessions lists the open tabs of a branch with their orders.
func (s *Service) ActiveSessions(ctx context.Context, branchID uuid.UUID) ([]models.DiningSession, error) {
	var sessions []models.DiningSession
	err := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Orders", byOrderNumber).
		Preload("Orders.Items.Item").
		Where("branch_id = ? AND status = ?", branchID, models.SessionInProgress).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// TableSession returns the open session of a table, or nil when it is free.
func (s *Service) TableSession(ctx context.Context, branchID, tableID uuid.UUID) (*models.DiningSession, error) {
	db := s.db.WithContext(ctx)

	var table models.RestaurantTable
	if err := db.Where("id = ? AND branch_id = ?", tableID, branchID).First(&table).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}

	var sessions []models.DiningSession
	err := db.Preload("Orders", byOrderNumber).
		Preload("Orders.Items.Item").
		Where("table_id = ? AND status = ?", tableID, models.SessionInProgress).
		Limit(1).
		Find(&sessions).Error
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	sessions[0].Table = &table
	return &sessions[0], nil
}

type TableState struct {
	models.RestaurantTable
	SessionID *uuid.UUID `json:"session_id"`
}

// Tables lists a branch's tables with the id of their open session.
func (s *Service) Tables(ctx context.Context, branchID uuid.UUID) ([]TableState, error) {
	db := s.db.WithContext(ctx)

	var tables []models.RestaurantTable
	if err := db.Where("branch_id = ?", branchID).Order("table_number ASC").Find(&tables).Error; err != nil {
		return nil, err
	}
	var open []models.DiningSession
	if err := db.Select("id", "table_id").
		Where("branch_id = ? AND status = ?", branchID, models.SessionInProgress).
		Find(&open).Error; err != nil {
		return nil, err
	}
	byTable := make(map[uuid.UUID]uuid.UUID, len(open))
	for _, o := range open {
		byTable[o.TableID] = o.ID
	}

	out := make([]TableState, 0, len(tables))
	for _, t := range tables {
		st := TableState{RestaurantTable: t}
		if id, ok := byTable[t.ID]; ok {
			st.SessionID = &id
		}
		out = append(out, st)
	}
	return out, nil
}

type HistoryFilter struct {
	BranchID uuid.UUID
	Status   models.OrderStatus // SERVED or CANCELLED, empty for both
	Since    time.Time
	Until    time.Time
	Limit    int
}

// OrderHistory lists finished orders, newest first.
func (s *Service) OrderHistory(ctx context.Context, f HistoryFilter) ([]models.Order, error) {
	statuses := []models.OrderStatus{models.OrderServed, models.OrderCancelled}
	if f.Status != "" {
		statuses = []models.OrderStatus{f.Status}
	}

	q := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Items.Item").
		Where("branch_id = ? AND status IN ?", f.BranchID, statuses)
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at < ?", f.Until)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var orders []models.Order
	err := q.Order("created_at DESC").Limit(limit).Find(&orders).Error
	return orders, err
}
