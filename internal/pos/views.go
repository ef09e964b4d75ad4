package pos

import (
	"time"

	"github.com/google/uuid"

	"restoran-pos/internal/models"
)

// ItemView prices a line at the current menu cost.
type ItemView struct {
	ID              uuid.UUID `json:"id"`
	ItemID          uuid.UUID `json:"item_id"`
	Name            string    `json:"name_of_item"`
	Category        string    `json:"category"`
	Quantity        int       `json:"quantity"`
	UnitCost        float64   `json:"unit_cost"`
	LineTotal       float64   `json:"line_total"`
	SpecialRequests string    `json:"item_special_requests"`
	Available       bool      `json:"available"`
}

type OrderView struct {
	ID              uuid.UUID          `json:"id"`
	BranchID        uuid.UUID          `json:"branch_id"`
	DiningSessionID uuid.UUID          `json:"dining_session_id"`
	TableID         uuid.UUID          `json:"table_id"`
	TableNumber     string             `json:"table_number,omitempty"`
	OrderNumber     int                `json:"order_number"`
	Status          models.OrderStatus `json:"status"`
	TotalAmount     float64            `json:"total_amount"`
	TaxAmount       float64            `json:"tax_amount"`
	LiveTotal       float64            `json:"live_total"`
	TotalDisplay    string             `json:"total_display"`
	TaxDisplay      string             `json:"tax_display"`
	CreatedBy       *uuid.UUID         `json:"created_by"`
	WaiterID        *uuid.UUID         `json:"waiter_id"`
	CreatedAt       time.Time          `json:"created_at"`
	CompletedAt     *time.Time         `json:"completed_at"`
	ServedAt        *time.Time         `json:"served_at"`
	CancelledAt     *time.Time         `json:"cancelled_at"`
	Items           []ItemView         `json:"order_items"`
}

func NewOrderView(o *models.Order) OrderView {
	v := OrderView{
		ID:              o.ID,
		BranchID:        o.BranchID,
		DiningSessionID: o.DiningSessionID,
		TableID:         o.TableID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		TaxAmount:       o.TaxAmount,
		TotalDisplay:    FormatMoney(o.TotalAmount),
		TaxDisplay:      FormatMoney(o.TaxAmount),
		CreatedBy:       o.CreatedBy,
		WaiterID:        o.WaiterID,
		CreatedAt:       o.CreatedAt,
		CompletedAt:     o.CompletedAt,
		ServedAt:        o.ServedAt,
		CancelledAt:     o.CancelledAt,
		Items:           make([]ItemView, 0, len(o.Items)),
	}
	if o.Table != nil {
		v.TableNumber = o.Table.TableNumber
	}
	for _, it := range o.Items {
		iv := ItemView{
			ID:              it.ID,
			ItemID:          it.ItemID,
			Quantity:        it.Quantity,
			SpecialRequests: it.SpecialRequests,
		}
		if it.Item != nil {
			iv.Name = it.Item.Name
			iv.Category = it.Item.Category
			iv.UnitCost = it.Item.Cost
			iv.LineTotal = it.Item.Cost * float64(it.Quantity)
			iv.Available = it.Item.IsActive
		}
		v.LiveTotal += iv.LineTotal
		v.Items = append(v.Items, iv)
	}
	return v
}

func NewOrderViews(orders []models.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderView(&orders[i]))
	}
	return out
}

type SessionView struct {
	ID                uuid.UUID            `json:"id"`
	BranchID          uuid.UUID            `json:"branch_id"`
	TableID           uuid.UUID            `json:"table_id"`
	TableNumber       string               `json:"table_number,omitempty"`
	Status            models.SessionStatus `json:"status"`
	NumberOfGuests    int                  `json:"number_of_guests"`
	Notes             string               `json:"notes"`
	TotalAmount       float64              `json:"total_amount"`
	TaxAmount         float64              `json:"tax_amount"`
	GrandTotal        float64              `json:"grand_total"`
	TotalDisplay      string               `json:"total_display"`
	TaxDisplay        string               `json:"tax_display"`
	GrandTotalDisplay string               `json:"grand_total_display"`
	IsBillPrinted     bool                 `json:"is_bill_printed"`
	CreatedAt         time.Time            `json:"created_at"`
	CompletedAt       *time.Time           `json:"completed_at"`
	Orders            []OrderView          `json:"orders"`
}

func NewSessionView(s *models.DiningSession) SessionView {
	v := SessionView{
		ID:                s.ID,
		BranchID:          s.BranchID,
		TableID:           s.TableID,
		Status:            s.Status,
		NumberOfGuests:    s.NumberOfGuests,
		Notes:             s.Notes,
		TotalAmount:       s.TotalAmount,
		TaxAmount:         s.TaxAmount,
		GrandTotal:        s.GrandTotal(),
		TotalDisplay:      FormatMoney(s.TotalAmount),
		TaxDisplay:        FormatMoney(s.TaxAmount),
		GrandTotalDisplay: FormatMoney(s.GrandTotal()),
		IsBillPrinted:     s.IsBillPrinted,
		CreatedAt:         s.CreatedAt,
		CompletedAt:       s.CompletedAt,
		Orders:            NewOrderViews(s.Orders),
	}
	if s.Table != nil {
		v.TableNumber = s.Table.TableNumber
	}
	return v
}
