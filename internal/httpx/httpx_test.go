package httpx

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestStoreError(t *testing.T) {
	var fe *fiber.Error

	err := StoreError(gorm.ErrRecordNotFound, "branch")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
	assert.Equal(t, "branch not found", fe.Message)

	err = StoreError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "table")
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusConflict, fe.Code)

	already := fiber.NewError(fiber.StatusTeapot, "kept")
	assert.Same(t, already, StoreError(already, "x"))

	plain := fmt.Errorf("boom")
	assert.Equal(t, plain, StoreError(plain, "x"))
}

func TestQueryHelpers(t *testing.T) {
	app := fiber.New()
	id := uuid.New()
	app.Get("/:id", func(c *fiber.Ctx) error {
		pid, err := ParamUUID(c, "id")
		if err != nil {
			return err
		}
		q, err := QueryUUID(c, "branch_id")
		if err != nil {
			return err
		}
		d, err := QueryDate(c, "since")
		if err != nil {
			return err
		}
		assert.Equal(t, id, pid)
		require.NotNil(t, q)
		assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), d)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/"+id.String()+"?branch_id="+uuid.NewString()+"&since=2024-05-01", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/not-a-uuid", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/"+id.String()+"?branch_id="+uuid.NewString()+"&since=yesterday", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
