package menu

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"restoran-pos/internal/models"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/testutil"
	"restoran-pos/internal/testutil/apitest"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, app *fiber.App, target, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestReadSheet(t *testing.T) {
	data := workbook(t,
		[]any{"Burger", "mains", "12.99"},
		[]any{"Soup", "starters", "6,5", "Tomato"},
		[]any{"Tea", "drinks", "free"},
	)
	rows, skipped, err := ReadSheet(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, rows, 2, "no header row here")
	assert.Equal(t, ImportRow{Line: 1, Name: "Burger", Category: "mains", Cost: 12.99}, rows[0])
	assert.InDelta(t, 6.5, rows[1].Cost, 1e-9)
	assert.Equal(t, "Tomato", rows[1].Description)
	assert.Equal(t, []SkippedRow{{Line: 3, Reason: "cost must be a non negative number"}}, skipped)

	_, _, err = ReadSheet(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestReadSheetRejectsNonFiniteCost(t *testing.T) {
	data := workbook(t,
		[]any{"Soup", "starters", "NaN"},
		[]any{"Tea", "drinks", "Inf"},
		[]any{"Coffee", "drinks", "+Inf"},
		[]any{"Water", "drinks", "1"},
	)
	rows, skipped, err := ReadSheet(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "Water", rows[0].Name)
	require.Len(t, skipped, 3)
	for i, s := range skipped {
		assert.Equal(t, i+1, s.Line)
		assert.Equal(t, "cost must be a non negative number", s.Reason)
	}
}

func TestReadSheetHeaderDetection(t *testing.T) {
	rows, _, err := ReadSheet(bytes.NewReader(workbook(t,
		[]any{"Chef's Item Special", "mains", "18"},
		[]any{"Burger", "mains", "12.99"},
	)))
	require.NoError(t, err)
	require.Len(t, rows, 2, "a first row that only mentions an item is data")
	assert.Equal(t, "Chef's Item Special", rows[0].Name)

	for _, title := range []string{"Name", "item", "Item Name", "name_of_item"} {
		rows, _, err := ReadSheet(bytes.NewReader(workbook(t,
			[]any{title, "Category", "Cost"},
			[]any{"Burger", "mains", "12.99"},
		)))
		require.NoError(t, err)
		require.Len(t, rows, 1, title)
		assert.Equal(t, 2, rows[0].Line, title)
	}
}

func TestImportMenu(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)
	hub := realtime.NewHub(16)
	feed, cancel := hub.Subscribe(fx.Branch.ID, realtime.KindMenu)
	defer cancel()

	burger := testutil.CreateMenuItem(t, db, fx.Branch.ID, "Burger", 12.99)
	require.NoError(t, db.Model(&burger).Update("is_active", false).Error)

	app := fiber.New()
	app.Post("/api/menu/import", apitest.As(apitest.Principal(fx.Owner, fx.OwnerRole)), ImportMenuHandler(db, hub))

	data := workbook(t,
		[]any{"Name", "Category", "Cost", "Description"},
		[]any{"burger", "mains", "13.50"},
		[]any{"Soup", "starters", "6,5", "Tomato"},
		[]any{"Tea", "drinks", "free"},
		[]any{"Cake", "", "5"},
		[]any{"Lemonade", "drinks", 4.25},
	)
	target := "/api/menu/import?branch_id=" + fx.Branch.ID.String()

	assert.Equal(t, fiber.StatusBadRequest, upload(t, app, target, "menu.csv", data).StatusCode)
	assert.Equal(t, fiber.StatusBadRequest, upload(t, app, "/api/menu/import", "menu.xlsx", data).StatusCode, "owner must name the branch")

	resp := upload(t, app, target, "menu.xlsx", data)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	res := apitest.Decode[ImportResult](t, resp)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 4, res.Skipped[0].Line)
	assert.Equal(t, 5, res.Skipped[1].Line)

	var stored models.MenuItem
	require.NoError(t, db.First(&stored, "id = ?", burger.ID).Error)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "Burger", stored.Name)
	assert.InDelta(t, 13.5, stored.Cost, 1e-9)

	var count int64
	require.NoError(t, db.Model(&models.MenuItem{}).Where("branch_id = ?", fx.Branch.ID).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionImport).Count(&logs).Error)
	assert.EqualValues(t, 1, logs)

	assert.Len(t, feed, 3)
}

func TestImportMenuWaiterScope(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)

	app := fiber.New()
	app.Post("/api/menu/import", apitest.As(apitest.Principal(fx.Waiter, fx.WaiterRole)), ImportMenuHandler(db, realtime.Nop{}))

	data := workbook(t, []any{"Burger", "mains", "9"})
	resp := upload(t, app, "/api/menu/import?branch_id="+fx.OtherBranch.ID.String(), "menu.xlsx", data)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
