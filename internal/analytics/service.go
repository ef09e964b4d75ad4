package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restoran-pos/internal/models"
)

// counted are the statuses that earn revenue.
var counted = []models.OrderStatus{models.OrderCompleted, models.OrderServed}

// Sales loads the report rows of a branch for a window.
func Sales(ctx context.Context, db *gorm.DB, branchID uuid.UUID, w Window) (Report, error) {
	from, to := w.From.UTC(), w.To.UTC()
	db = db.WithContext(ctx)

	var orders []OrderRow
	err := db.Model(&models.Order{}).
		Select("id, created_at, total_amount AS total, tax_amount AS tax").
		Where("branch_id = ? AND status IN ? AND created_at >= ? AND created_at < ?", branchID, counted, from, to).
		Order("created_at asc").
		Scan(&orders).Error
	if err != nil {
		return Report{}, fmt.Errorf("load orders: %w", err)
	}

	var items []ItemRow
	err = db.Model(&models.OrderItem{}).
		Select("order_items.item_id AS item_id, menu.name_of_item AS name, SUM(order_items.quantity) AS quantity, menu.cost AS cost").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN menu ON menu.id = order_items.item_id").
		Where("orders.branch_id = ? AND orders.status IN ? AND orders.created_at >= ? AND orders.created_at < ?", branchID, counted, from, to).
		Group("order_items.item_id, menu.name_of_item, menu.cost").
		Scan(&items).Error
	if err != nil {
		return Report{}, fmt.Errorf("load items: %w", err)
	}

	return Build(w, orders, items), nil
}
