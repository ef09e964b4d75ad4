// Package analytics builds the sales report of a branch.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"restoran-pos/internal/pos"
)

type Range string

const (
	RangeToday  Range = "today"
	RangeWeek   Range = "week"
	RangeMonth  Range = "month"
	RangeYear   Range = "year"
	RangeCustom Range = "custom"
)

const (
	dateLayout = "2006-01-02"
	topItems   = 10

	// MaxCustomDays bounds a custom range, both days included.
	MaxCustomDays = 366
)

var ErrInvalidRange = errors.New("invalid range")

// Window is the half open interval [From, To) in the branch's location.
type Window struct {
	Range Range
	From  time.Time
	To    time.Time
}

// ParseRange resolves a named range relative to now. now carries the branch
// location; custom bounds are read as local dates and include the to day,
// which may not be later than today.
func ParseRange(r, from, to string, now time.Time) (Window, error) {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch Range(r) {
	case "", RangeToday:
		return Window{Range: RangeToday, From: midnight, To: now}, nil
	case RangeWeek:
		return Window{Range: RangeWeek, From: midnight.AddDate(0, 0, -7), To: now}, nil
	case RangeMonth:
		return Window{Range: RangeMonth, From: midnight.AddDate(0, -1, 0), To: now}, nil
	case RangeYear:
		return Window{Range: RangeYear, From: midnight.AddDate(-1, 0, 0), To: now}, nil
	case RangeCustom:
		f, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidRange)
		}
		t, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidRange)
		}
		if t.Before(f) {
			return Window{}, fmt.Errorf("%w: to is before from", ErrInvalidRange)
		}
		if t.After(midnight) {
			return Window{}, fmt.Errorf("%w: to is in the future", ErrInvalidRange)
		}
		if t.After(f.AddDate(0, 0, MaxCustomDays-1)) {
			return Window{}, fmt.Errorf("%w: custom range is longer than %d days", ErrInvalidRange, MaxCustomDays)
		}
		return Window{Range: RangeCustom, From: f, To: t.AddDate(0, 0, 1)}, nil
	}
	return Window{}, fmt.Errorf("%w: %q", ErrInvalidRange, r)
}

// OrderRow is one counted order. Total and Tax are the amounts stored when the
// order was placed.
type OrderRow struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Total     float64
	Tax       float64
}

// ItemRow is the quantity sold of one menu item with its current cost.
type ItemRow struct {
	ItemID   uuid.UUID
	Name     string
	Quantity int
	Cost     float64
}

type DayTotal struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type ItemTotal struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Quantity int       `json:"quantity"`
	Revenue  float64   `json:"revenue"`
}

type HourCount struct {
	Hour    int     `json:"hour"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type Report struct {
	Range          Range       `json:"range"`
	From           string      `json:"from"`
	To             string      `json:"to"`
	Timezone       string      `json:"timezone"`
	Revenue        float64     `json:"revenue"`
	RevenueDisplay string      `json:"revenue_display"`
	OrderCount     int         `json:"order_count"`
	AverageOrder   float64     `json:"average_order"`
	AverageDisplay string      `json:"average_order_display"`
	ByDay          []DayTotal  `json:"by_day"`
	TopItems       []ItemTotal `json:"top_items"`
	ByHour         []HourCount `json:"by_hour"`
	PeakHour       *int        `json:"peak_hour"`
}

// Build aggregates the rows of a window. Days and hours are those of the
// window's location; every day of the window appears, empty ones with zero.
func Build(w Window, orders []OrderRow, items []ItemRow) Report {
	loc := w.From.Location()
	rep := Report{
		Range:    w.Range,
		From:     w.From.Format(dateLayout),
		To:       w.To.Add(-time.Nanosecond).Format(dateLayout),
		Timezone: loc.String(),
		ByHour:   make([]HourCount, 24),
		TopItems: []ItemTotal{},
	}
	for h := range rep.ByHour {
		rep.ByHour[h].Hour = h
	}

	days := map[string]*DayTotal{}
	for d := w.From; d.Before(w.To); d = d.AddDate(0, 0, 1) {
		key := d.Format(dateLayout)
		rep.ByDay = append(rep.ByDay, DayTotal{Date: key})
	}
	for i := range rep.ByDay {
		days[rep.ByDay[i].Date] = &rep.ByDay[i]
	}

	for _, o := range orders {
		amount := o.Total + o.Tax
		rep.Revenue += amount
		rep.OrderCount++

		local := o.CreatedAt.In(loc)
		if d, ok := days[local.Format(dateLayout)]; ok {
			d.Revenue += amount
			d.Orders++
		}
		h := &rep.ByHour[local.Hour()]
		h.Orders++
		h.Revenue += amount
	}
	if rep.OrderCount > 0 {
		rep.AverageOrder = rep.Revenue / float64(rep.OrderCount)
	}
	rep.RevenueDisplay = pos.FormatMoney(rep.Revenue)
	rep.AverageDisplay = pos.FormatMoney(rep.AverageOrder)

	for _, it := range items {
		rep.TopItems = append(rep.TopItems, ItemTotal{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Revenue:  float64(it.Quantity) * it.Cost,
		})
	}
	sort.SliceStable(rep.TopItems, func(i, j int) bool {
		a, b := rep.TopItems[i], rep.TopItems[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.Name < b.Name
	})
	if len(rep.TopItems) > topItems {
		rep.TopItems = rep.TopItems[:topItems]
	}

	peak := -1
	for h, c := range rep.ByHour {
		if c.Orders > 0 && (peak < 0 || c.Orders > rep.ByHour[peak].Orders) {
			peak = h
		}
	}
	if peak >= 0 {
		rep.PeakHour = &peak
	}
	return rep
}
