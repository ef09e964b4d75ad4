package analytics

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restoran-pos/internal/audit"
	"restoran-pos/internal/models"
	"restoran-pos/internal/pos"
	"restoran-pos/internal/testutil"
	"restoran-pos/internal/testutil/apitest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// seedSales places four orders on the fixture branch: one SERVED, one
// COMPLETED, one CANCELLED and one still IN_PROGRESS.
func seedSales(t *testing.T) (*testutil.Fixture, models.MenuItem) {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)
	svc := pos.NewService(db, nil, quiet)
	ctx := context.Background()
	actor := audit.Actor{FranchiseID: fx.Franchise.ID, StaffID: fx.Waiter.ID, StaffName: fx.Waiter.FullName()}

	burger := testutil.CreateMenuItem(t, db, fx.Branch.ID, "Burger", 12.99)
	fries := testutil.CreateMenuItem(t, db, fx.Branch.ID, "Fries", 8.99)
	t1 := testutil.CreateTable(t, db, fx.Branch.ID, "1")
	t2 := testutil.CreateTable(t, db, fx.Branch.ID, "2")

	place := func(table models.RestaurantTable, item models.MenuItem, qty int) models.Order {
		placed, err := svc.PlaceOrder(ctx, pos.PlaceOrder{
			BranchID: fx.Branch.ID,
			TableID:  table.ID,
			Lines:    []pos.OrderLine{{ItemID: item.ID, Quantity: qty}},
			Actor:    actor,
		})
		require.NoError(t, err)
		return placed.Order
	}

	served := place(t1, burger, 2)
	_, err := svc.MarkReady(ctx, fx.Branch.ID, served.ID, actor)
	require.NoError(t, err)
	_, err = svc.Serve(ctx, fx.Branch.ID, served.ID, actor)
	require.NoError(t, err)

	ready := place(t2, fries, 1)
	_, err = svc.MarkReady(ctx, fx.Branch.ID, ready.ID, actor)
	require.NoError(t, err)

	cancelled := place(t1, burger, 5)
	_, err = svc.Cancel(ctx, fx.Branch.ID, cancelled.ID, actor)
	require.NoError(t, err)

	place(t2, fries, 3)
	return fx, burger
}

func TestSales(t *testing.T) {
	fx, burger := seedSales(t)
	ctx := context.Background()
	now := time.Now().UTC()
	w := Window{Range: RangeCustom, From: now.Add(-time.Hour), To: now.Add(time.Hour)}

	rep, err := Sales(ctx, fx.DB, fx.Branch.ID, w)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.OrderCount, "only COMPLETED and SERVED orders count")
	assert.InDelta(t, 38.467, rep.Revenue, 1e-9)
	assert.Equal(t, "38.47", rep.RevenueDisplay)

	require.Len(t, rep.TopItems, 2)
	assert.Equal(t, "Burger", rep.TopItems[0].Name)
	assert.Equal(t, 2, rep.TopItems[0].Quantity)
	assert.InDelta(t, 25.98, rep.TopItems[0].Revenue, 1e-9)
	assert.Equal(t, 1, rep.TopItems[1].Quantity)

	// item revenue follows the live cost
	require.NoError(t, fx.DB.Model(&burger).Update("cost", 14.0).Error)
	rep, err = Sales(ctx, fx.DB, fx.Branch.ID, w)
	require.NoError(t, err)
	assert.InDelta(t, 28, rep.TopItems[0].Revenue, 1e-9)
	assert.InDelta(t, 38.467, rep.Revenue, 1e-9, "order totals stay as stored")

	past := Window{Range: RangeCustom, From: now.AddDate(0, 0, -3), To: now.AddDate(0, 0, -2)}
	rep, err = Sales(ctx, fx.DB, fx.Branch.ID, past)
	require.NoError(t, err)
	assert.Zero(t, rep.OrderCount)
	assert.Empty(t, rep.TopItems)

	rep, err = Sales(ctx, fx.DB, fx.OtherBranch.ID, w)
	require.NoError(t, err)
	assert.Zero(t, rep.OrderCount)
}

func TestSalesHandler(t *testing.T) {
	fx, _ := seedSales(t)
	require.NoError(t, fx.DB.Model(&fx.Branch).Update("timezone", "Nowhere/Unknown").Error)

	get := func(p *testutil.Fixture, asOwner bool, target string) *http.Response {
		app := fiber.New()
		principal := apitest.Principal(p.Waiter, p.WaiterRole)
		if asOwner {
			principal = apitest.Principal(p.Owner, p.OwnerRole)
		}
		app.Get("/api/analytics/sales", apitest.As(principal), SalesHandler(p.DB, quiet))
		resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
		require.NoError(t, err)
		return resp
	}

	today := time.Now().UTC()
	custom := "&range=custom&from=" + today.AddDate(0, 0, -2).Format("2006-01-02") + "&to=" + today.Format("2006-01-02")
	branch := "?branch_id=" + fx.Branch.ID.String()

	resp := get(fx, true, "/api/analytics/sales?range=week")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "owner must pick a branch")

	resp = get(fx, true, "/api/analytics/sales"+branch+"&range=decade")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	resp = get(fx, true, "/api/analytics/sales"+branch+"&range=custom&from=0001-01-01&to=9999-12-31")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "unbounded custom range")

	resp = get(fx, true, "/api/analytics/sales?branch_id="+fx.OtherBranch.ID.String()+custom)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Zero(t, apitest.Decode[Report](t, resp).OrderCount)

	resp = get(fx, false, "/api/analytics/sales?branch_id="+fx.OtherBranch.ID.String())
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = get(fx, false, "/api/analytics/sales?x=1"+custom)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	rep := apitest.Decode[Report](t, resp)
	assert.Equal(t, 2, rep.OrderCount)
	assert.Equal(t, "UTC", rep.Timezone, "unknown zones fall back to UTC")
	assert.Len(t, rep.ByDay, 3)
}
