package pos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
)

var (
	ErrTableNumberTaken = errors.New("table number already exists in this branch")
	ErrTableInUse       = errors.New("table has an open session")
	ErrTableNumber      = errors.New("table_number is required")
)

type TableInput struct {
	TableNumber string
	Capacity    int
}

func (in *TableInput) normalize() error {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	if in.TableNumber == "" {
		return ErrTableNumber
	}
	if in.Capacity <= 0 {
		in.Capacity = 4
	}
	return nil
}

func numberTaken(tx *gorm.DB, branchID uuid.UUID, number string, except uuid.UUID) error {
	var count int64
	err := tx.Model(&models.RestaurantTable{}).
		Where("branch_id = ? AND table_number = ? AND id <> ?", branchID, number, except).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTableNumberTaken
	}
	return nil
}

func (s *Service) CreateTable(ctx context.Context, branchID uuid.UUID, in TableInput, actor audit.Actor) (*models.RestaurantTable, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	table := models.RestaurantTable{
		BranchID:    branchID,
		TableNumber: in.TableNumber,
		Capacity:    in.Capacity,
		Status:      models.TableAvailable,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := numberTaken(tx, branchID, in.TableNumber, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Create(&table).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor: actor, BranchID: &branchID,
			EntityType: "restaurant_table", EntityID: table.ID,
			Action: models.AuditActionCreate, Description: "table " + table.TableNumber + " added",
			After: table,
		})
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, realtime.NewEvent(realtime.KindTable, realtime.OpInsert, table.ID, branchID))
	return &table, nil
}

func (s *Service) UpdateTable(ctx context.Context, branchID, tableID uuid.UUID, in TableInput, actor audit.Actor) (*models.RestaurantTable, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var table models.RestaurantTable
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND branch_id = ?", tableID, branchID).First(&table).Error; err != nil {
			if database.IsNotFound(err) {
				return ErrTableNotFound
			}
			return err
		}
		if err := numberTaken(tx, branchID, in.TableNumber, table.ID); err != nil {
			return err
		}
		before := table
		if err := tx.Model(&table).Updates(map[string]any{
			"table_number": in.TableNumber,
			"capacity":     in.Capacity,
		}).Error; err != nil {
			return err
		}
		if err := tx.First(&table, "id = ?", table.ID).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor: actor, BranchID: &branchID,
			EntityType: "restaurant_table", EntityID: table.ID,
			Action: models.AuditActionUpdate, Description: "table " + table.TableNumber + " updated",
			Before: before, After: table,
		})
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, realtime.NewEvent(realtime.KindTable, realtime.OpUpdate, table.ID, branchID))
	return &table, nil
}

// DeleteTable removes a free table. Tables with an open session stay.
func (s *Service) DeleteTable(ctx context.Context, branchID, tableID uuid.UUID, actor audit.Actor) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := lockTable(tx, branchID, tableID)
		if err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&models.DiningSession{}).
			Where("table_id = ? AND status = ?", table.ID, models.SessionInProgress).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 || table.Status != models.TableAvailable {
			return ErrTableInUse
		}
		if err := tx.Delete(table).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor: actor, BranchID: &branchID,
			EntityType: "restaurant_table", EntityID: table.ID,
			Action: models.AuditActionDelete, Description: "table " + table.TableNumber + " removed",
			Before: table,
		})
	})
	if err != nil {
		return err
	}
	s.events.Publish(ctx, realtime.NewEvent(realtime.KindTable, realtime.OpDelete, tableID, branchID))
	return nil
}
