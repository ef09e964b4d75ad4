// Package apitest drives Fiber handlers in tests with a fixed principal.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
)

func Principal(staff models.Staff, role models.Role) *auth.Principal {
	return &auth.Principal{
		Staff: staff,
		Grant: permissions.Grant{RoleID: role.ID, RoleName: role.Name, Set: permissions.FromRole(&role)},
	}
}

// As stands in for the session middleware.
func As(p *auth.Principal) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(auth.CtxPrincipalKey, p)
		return c.Next()
	}
}

// Do sends a request; body is JSON-encoded when not nil.
func Do(t testing.TB, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func Decode[T any](t testing.TB, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}
