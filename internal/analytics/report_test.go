package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var local = time.FixedZone("UTC+3", 3*3600)

func at(day, hour, min int) time.Time {
	return time.Date(2026, time.March, day, hour, min, 0, 0, local)
}

func TestParseRange(t *testing.T) {
	now := at(10, 15, 30)

	cases := []struct {
		in   string
		from time.Time
		to   time.Time
	}{
		{"", at(10, 0, 0), now},
		{"today", at(10, 0, 0), now},
		{"week", at(3, 0, 0), now},
		{"month", time.Date(2026, time.February, 10, 0, 0, 0, 0, local), now},
		{"year", time.Date(2025, time.March, 10, 0, 0, 0, 0, local), now},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			w, err := ParseRange(tc.in, "", "", now)
			require.NoError(t, err)
			assert.True(t, tc.from.Equal(w.From), "from %s", w.From)
			assert.True(t, tc.to.Equal(w.To), "to %s", w.To)
		})
	}

	w, err := ParseRange("custom", "2026-03-01", "2026-03-03", now)
	require.NoError(t, err)
	assert.Equal(t, RangeCustom, w.Range)
	assert.True(t, at(1, 0, 0).Equal(w.From))
	assert.True(t, at(4, 0, 0).Equal(w.To), "to day is included")

	w, err = ParseRange("custom", "2025-03-10", "2026-03-10", now)
	require.NoError(t, err, "a full year ending today fits")
	assert.True(t, at(11, 0, 0).Equal(w.To))

	for _, bad := range [][3]string{
		{"decade", "", ""},
		{"custom", "2026-03-05", "2026-03-01"},
		{"custom", "03/01/2026", "2026-03-02"},
		{"custom", "2026-03-01", ""},
		{"custom", "2026-03-01", "2026-03-11"},
		{"custom", "0001-01-01", "9999-12-31"},
		{"custom", "2025-03-09", "2026-03-10"},
	} {
		_, err := ParseRange(bad[0], bad[1], bad[2], now)
		assert.ErrorIs(t, err, ErrInvalidRange, "%v", bad)
	}
}

func TestBuildTotals(t *testing.T) {
	w := Window{Range: RangeCustom, From: at(1, 0, 0), To: at(4, 0, 0)}
	orders := []OrderRow{
		{ID: uuid.New(), CreatedAt: at(1, 9, 15).UTC(), Total: 20, Tax: 2},
		{ID: uuid.New(), CreatedAt: at(1, 9, 45).UTC(), Total: 10, Tax: 1},
		{ID: uuid.New(), CreatedAt: at(3, 21, 0).UTC(), Total: 30, Tax: 3},
	}

	rep := Build(w, orders, nil)

	assert.Equal(t, "2026-03-01", rep.From)
	assert.Equal(t, "2026-03-03", rep.To)
	assert.InDelta(t, 66, rep.Revenue, 1e-9)
	assert.Equal(t, "66.00", rep.RevenueDisplay)
	assert.Equal(t, 3, rep.OrderCount)
	assert.InDelta(t, 22, rep.AverageOrder, 1e-9)

	require.Len(t, rep.ByDay, 3)
	assert.Equal(t, DayTotal{Date: "2026-03-01", Revenue: 33, Orders: 2}, rep.ByDay[0])
	assert.Equal(t, DayTotal{Date: "2026-03-02"}, rep.ByDay[1], "empty days are kept")
	assert.Equal(t, DayTotal{Date: "2026-03-03", Revenue: 33, Orders: 1}, rep.ByDay[2])

	require.Len(t, rep.ByHour, 24)
	assert.Equal(t, 2, rep.ByHour[9].Orders, "hours are local")
	assert.Equal(t, 1, rep.ByHour[21].Orders)
	require.NotNil(t, rep.PeakHour)
	assert.Equal(t, 9, *rep.PeakHour)
}

func TestBuildEmpty(t *testing.T) {
	w := Window{Range: RangeToday, From: at(10, 0, 0), To: at(10, 8, 0)}
	rep := Build(w, nil, nil)

	assert.Zero(t, rep.OrderCount)
	assert.Equal(t, "0.00", rep.AverageDisplay)
	assert.Nil(t, rep.PeakHour)
	assert.Len(t, rep.ByDay, 1)
	assert.NotNil(t, rep.TopItems)
}

func TestBuildTopItemsByRevenue(t *testing.T) {
	var items []ItemRow
	for i := 0; i < 12; i++ {
		items = append(items, ItemRow{ItemID: uuid.New(), Name: fmt.Sprintf("item%02d", i), Quantity: 1, Cost: float64(i + 1)})
	}
	items = append(items,
		ItemRow{ItemID: uuid.New(), Name: "tea", Quantity: 9, Cost: 1},
		ItemRow{ItemID: uuid.New(), Name: "steak", Quantity: 1, Cost: 30},
	)

	rep := Build(Window{From: at(1, 0, 0), To: at(2, 0, 0)}, nil, items)

	require.Len(t, rep.TopItems, 10)
	assert.Equal(t, "steak", rep.TopItems[0].Name)
	assert.Equal(t, "item11", rep.TopItems[1].Name)
	// item08 and tea both earn 9
	assert.Equal(t, "item08", rep.TopItems[4].Name)
	assert.Equal(t, "tea", rep.TopItems[5].Name)
	assert.Equal(t, 9, rep.TopItems[5].Quantity)
	assert.InDelta(t, 5, rep.TopItems[9].Revenue, 1e-9)
}
