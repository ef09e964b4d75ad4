package admin

import (
	"context"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
	"restoran-pos/internal/realtime"
	"restoran-pos/internal/testutil"
	"restoran-pos/internal/testutil/apitest"
)

func TestMain(m *testing.M) {
	auth.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type recorder struct{ events []realtime.Event }

func (r *recorder) Publish(_ context.Context, events ...realtime.Event) {
	r.events = append(r.events, events...)
}

type adminEnv struct {
	fx       *testutil.Fixture
	resolver *auth.Resolver
	feed     *recorder
	manager  models.Staff
	mgrRole  models.Role
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	db := testutil.NewDB(t)
	fx := testutil.Seed(t, db)
	resolver, err := auth.NewResolver(db, 16)
	require.NoError(t, err)
	role := testutil.CreateRole(t, db, fx.Franchise.ID, "Manager", false,
		"branch_view", "staff_view", "staff_create", "staff_edit", "roles_view", "roles_edit")
	manager, _ := testutil.CreateStaff(t, db, fx.Branch, role, "manager@example.com")
	return &adminEnv{fx: fx, resolver: resolver, feed: &recorder{}, manager: manager, mgrRole: role}
}

// app mounts the back-office handlers for one principal. Route permission
// checks are covered by the server tests.
func (e *adminEnv) app(p *auth.Principal) *fiber.App {
	db := e.fx.DB
	app := fiber.New()
	api := app.Group("/api", apitest.As(p))
	api.Get("/branches", ListBranchesHandler(db))
	api.Get("/branches/selectable", SelectableBranchesHandler(db))
	api.Post("/branches", CreateBranchHandler(db, e.feed))
	api.Get("/branches/:id", GetBranchHandler(db))
	api.Put("/branches/:id", UpdateBranchHandler(db, e.feed))
	api.Delete("/branches/:id", DeleteBranchHandler(db, e.feed))
	api.Get("/roles", ListRolesHandler(db))
	api.Post("/roles", CreateRoleHandler(db, e.feed))
	api.Put("/roles/:id", UpdateRoleHandler(db, e.resolver.Roles(), e.feed))
	api.Delete("/roles/:id", DeleteRoleHandler(db, e.resolver.Roles(), e.feed))
	api.Get("/staff", ListStaffHandler(db))
	api.Post("/staff", CreateStaffHandler(db, e.feed))
	api.Put("/staff/:id", UpdateStaffHandler(db, e.feed))
	api.Delete("/staff/:id", DeactivateStaffHandler(db, e.feed))
	api.Get("/franchise", GetFranchiseHandler(db))
	api.Put("/franchise", UpdateFranchiseHandler(db))
	return app
}

func (e *adminEnv) owner() *fiber.App {
	return e.app(apitest.Principal(e.fx.Owner, e.fx.OwnerRole))
}

func (e *adminEnv) managerApp() *fiber.App {
	return e.app(apitest.Principal(e.manager, e.mgrRole))
}

func TestCreateBranchSeedsTables(t *testing.T) {
	e := newAdminEnv(t)
	app := e.owner()

	resp := apitest.Do(t, app, "POST", "/api/branches", map[string]any{"name": "Harbour", "code": " hb1 ", "number_of_tables": 3})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	branch := apitest.Decode[models.Branch](t, resp)
	assert.Equal(t, "HB1", branch.Code)
	assert.Equal(t, e.fx.Franchise.ID, branch.FranchiseID)
	assert.Equal(t, models.BranchActive, branch.Status)

	var numbers []string
	require.NoError(t, e.fx.DB.Model(&models.RestaurantTable{}).Where("branch_id = ?", branch.ID).
		Order("table_number asc").Pluck("table_number", &numbers).Error)
	assert.Equal(t, []string{"1", "2", "3"}, numbers)

	require.Len(t, e.feed.events, 1)
	assert.Equal(t, realtime.KindBranch, e.feed.events[0].Kind)

	resp = apitest.Do(t, app, "POST", "/api/branches", map[string]any{"name": "Again", "code": "HB1"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp = apitest.Do(t, app, "POST", "/api/branches", map[string]any{"name": "Huge", "code": "HG1", "number_of_tables": 501})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = apitest.Do(t, app, "GET", "/api/branches", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, apitest.Decode[[]models.Branch](t, resp), 3)
}

func TestBranchScopeForNonOwners(t *testing.T) {
	e := newAdminEnv(t)
	app := e.managerApp()

	resp := apitest.Do(t, app, "GET", "/api/branches", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := apitest.Decode[[]models.Branch](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, e.fx.Branch.ID, list[0].ID)

	resp = apitest.Do(t, app, "GET", "/api/branches/selectable", nil)
	assert.Len(t, apitest.Decode[[]SelectableBranch](t, resp), 1)

	resp = apitest.Do(t, app, "GET", "/api/branches/"+e.fx.OtherBranch.ID.String(), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = apitest.Do(t, app, "PUT", "/api/branches/"+e.fx.OtherBranch.ID.String(), map[string]any{"name": "Mine now"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	owner := e.owner()
	resp = apitest.Do(t, owner, "GET", "/api/branches/selectable", nil)
	assert.Len(t, apitest.Decode[[]SelectableBranch](t, resp), 2)
}

func TestDeleteBranch(t *testing.T) {
	e := newAdminEnv(t)
	app := e.owner()

	resp := apitest.Do(t, app, "DELETE", "/api/branches/"+e.fx.Branch.ID.String(), nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "branch has staff")

	empty := e.fx.OtherBranch
	testutil.CreateTable(t, e.fx.DB, empty.ID, "1")
	testutil.CreateMenuItem(t, e.fx.DB, empty.ID, "Soup", 5)

	resp = apitest.Do(t, app, "DELETE", "/api/branches/"+empty.ID.String(), nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	var n int64
	require.NoError(t, e.fx.DB.Model(&models.RestaurantTable{}).Where("branch_id = ?", empty.ID).Count(&n).Error)
	assert.Zero(t, n)
	resp = apitest.Do(t, app, "GET", "/api/branches/"+empty.ID.String(), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateStaffGeneratesCredentials(t *testing.T) {
	e := newAdminEnv(t)
	app := e.owner()

	resp := apitest.Do(t, app, "POST", "/api/staff", map[string]any{
		"email":     " New.Cook@Example.com ",
		"branchId":  e.fx.Branch.ID,
		"firstName": "Nova",
		"lastName":  "Cook",
		"roleId":    e.fx.WaiterRole.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := apitest.Decode[CreateStaffResponse](t, resp)
	assert.Equal(t, "new.cook@example.com", out.Email)
	assert.Len(t, out.GeneratedPassword, 12)
	assert.Regexp(t, `^STF\d{4}$`, out.Staff.Code)

	var user models.AuthUser
	require.NoError(t, e.fx.DB.First(&user, "email = ?", "new.cook@example.com").Error)
	assert.True(t, auth.CheckPassword(user.PasswordHash, out.GeneratedPassword))

	var mapping models.AuthStaffMapping
	require.NoError(t, e.fx.DB.First(&mapping, "auth_user_id = ?", user.ID).Error)
	assert.Equal(t, out.Staff.ID, mapping.StaffID)

	p, err := e.resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Waiter", p.Grant.RoleName)

	// a taken email rolls the staff row back
	resp = apitest.Do(t, app, "POST", "/api/staff", map[string]any{
		"email":     "new.cook@example.com",
		"password":  "long-enough-1",
		"branchId":  e.fx.Branch.ID,
		"firstName": "Dupe",
		"roleId":    e.fx.WaiterRole.ID,
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var dupes int64
	require.NoError(t, e.fx.DB.Model(&models.Staff{}).Where("first_name = ?", "Dupe").Count(&dupes).Error)
	assert.Zero(t, dupes)

	resp = apitest.Do(t, app, "POST", "/api/staff", map[string]any{
		"email":     "short@example.com",
		"password":  "short",
		"branchId":  e.fx.Branch.ID,
		"firstName": "Short",
		"roleId":    e.fx.WaiterRole.ID,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateStaffGuards(t *testing.T) {
	e := newAdminEnv(t)
	app := e.managerApp()

	body := func(role uuid.UUID, branch uuid.UUID, email string) map[string]any {
		return map[string]any{"email": email, "branchId": branch, "firstName": "X", "roleId": role}
	}

	resp := apitest.Do(t, app, "POST", "/api/staff", body(e.fx.OwnerRole.ID, e.fx.Branch.ID, "a@example.com"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "owner roles are for owners")

	resp = apitest.Do(t, app, "POST", "/api/staff", body(e.fx.WaiterRole.ID, e.fx.OtherBranch.ID, "b@example.com"))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = apitest.Do(t, app, "POST", "/api/staff", body(uuid.New(), e.fx.Branch.ID, "c@example.com"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = apitest.Do(t, app, "POST", "/api/staff", body(e.fx.WaiterRole.ID, e.fx.Branch.ID, "d@example.com"))
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = apitest.Do(t, app, "PUT", "/api/staff/"+e.manager.ID.String(), map[string]any{"status": "INACTIVE"})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	resp = apitest.Do(t, app, "PUT", "/api/staff/"+e.fx.Waiter.ID.String(), map[string]any{"branchId": e.fx.OtherBranch.ID})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestOwnerAccountsNeedOwner(t *testing.T) {
	e := newAdminEnv(t)
	mgr := e.managerApp()
	target := "/api/staff/" + e.fx.Owner.ID.String()

	resp := apitest.Do(t, mgr, "PUT", target, map[string]any{"status": "INACTIVE"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = apitest.Do(t, mgr, "PUT", target, map[string]any{"firstName": "Mallory"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = apitest.Do(t, mgr, "DELETE", target, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var stored models.Staff
	require.NoError(t, e.fx.DB.First(&stored, "id = ?", e.fx.Owner.ID).Error)
	assert.Equal(t, models.StaffActive, stored.Status)
	assert.Equal(t, e.fx.Owner.FirstName, stored.FirstName)
	assert.Empty(t, e.feed.events)

	_, err := e.resolver.Resolve(context.Background(), e.fx.OwnerUser.ID)
	assert.NoError(t, err)

	// a second owner may still manage the first
	second, _ := testutil.CreateStaff(t, e.fx.DB, e.fx.Branch, e.fx.OwnerRole, "second@example.com")
	resp = apitest.Do(t, e.app(apitest.Principal(second, e.fx.OwnerRole)), "PUT", target, map[string]any{"phone": "555"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDeactivatedStaffStopsResolving(t *testing.T) {
	e := newAdminEnv(t)
	app := e.owner()

	_, err := e.resolver.Resolve(context.Background(), e.fx.WaiterUser.ID)
	require.NoError(t, err)

	resp := apitest.Do(t, app, "DELETE", "/api/staff/"+e.fx.Waiter.ID.String(), nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, err = e.resolver.Resolve(context.Background(), e.fx.WaiterUser.ID)
	assert.ErrorIs(t, err, auth.ErrUnknownPrincipal)

	resp = apitest.Do(t, app, "GET", "/api/staff?status=ACTIVE", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, s := range apitest.Decode[[]models.Staff](t, resp) {
		assert.NotEqual(t, e.fx.Waiter.ID, s.ID)
	}
}

func TestRoleUpdateInvalidatesCache(t *testing.T) {
	e := newAdminEnv(t)
	ctx := context.Background()
	tablesEdit := permissions.Permission{Module: permissions.ModuleTables, Action: permissions.ActionEdit}

	p, err := e.resolver.Resolve(ctx, e.fx.WaiterUser.ID)
	require.NoError(t, err)
	assert.False(t, p.Can(tablesEdit))

	perms := map[string]bool{}
	for _, k := range testutil.WaiterPermissions {
		perms[k] = true
	}
	perms["tables_edit"] = true
	resp := apitest.Do(t, e.owner(), "PUT", "/api/roles/"+e.fx.WaiterRole.ID.String(), map[string]any{"permissions": perms})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, apitest.Decode[RoleResponse](t, resp).Granted, "tables_edit")

	p, err = e.resolver.Resolve(ctx, e.fx.WaiterUser.ID)
	require.NoError(t, err)
	assert.True(t, p.Can(tablesEdit), "cached grant must be dropped on update")

	resp = apitest.Do(t, e.owner(), "PUT", "/api/roles/"+e.fx.WaiterRole.ID.String(), map[string]any{"permissions": map[string]bool{"tables_fly": true}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRoleGuards(t *testing.T) {
	e := newAdminEnv(t)
	mgr := e.managerApp()
	owner := e.owner()

	resp := apitest.Do(t, mgr, "POST", "/api/roles", map[string]any{"name": "Boss", "is_owner": true})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp = apitest.Do(t, mgr, "PUT", "/api/roles/"+e.fx.OwnerRole.ID.String(), map[string]any{"name": "Renamed"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = apitest.Do(t, mgr, "PUT", "/api/roles/"+e.mgrRole.ID.String(), map[string]any{
		"permissions": map[string]bool{"staff_view": true, "staff_delete": true, "branch_delete": true},
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "no self escalation")
	var stored models.Role
	require.NoError(t, e.fx.DB.First(&stored, "id = ?", e.mgrRole.ID).Error)
	assert.False(t, stored.Permissions["staff_delete"])
	resp = apitest.Do(t, mgr, "PUT", "/api/roles/"+e.fx.WaiterRole.ID.String(), map[string]any{"description": "floor"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "other roles stay editable")

	resp = apitest.Do(t, owner, "PUT", "/api/roles/"+e.fx.OwnerRole.ID.String(), map[string]any{"is_owner": false})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "owners keep their own owner access")

	resp = apitest.Do(t, owner, "DELETE", "/api/roles/"+e.fx.WaiterRole.ID.String(), nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "role still assigned")

	resp = apitest.Do(t, owner, "POST", "/api/roles", map[string]any{"name": "Host", "permissions": map[string]bool{"tables_view": true}})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	host := apitest.Decode[RoleResponse](t, resp)
	assert.Equal(t, []string{"tables_view"}, host.Granted)

	e.feed.events = nil
	resp = apitest.Do(t, owner, "DELETE", "/api/roles/"+host.ID.String(), nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Len(t, e.feed.events, 2, "one role event per branch")

	resp = apitest.Do(t, owner, "GET", "/api/roles", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	for _, r := range apitest.Decode[[]RoleResponse](t, resp) {
		if r.ID == e.fx.WaiterRole.ID {
			assert.EqualValues(t, 1, r.StaffCount)
		}
	}
}

func TestFranchise(t *testing.T) {
	e := newAdminEnv(t)
	app := e.owner()

	resp := apitest.Do(t, app, "PUT", "/api/franchise", map[string]any{"name": "Renamed Franchise"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = apitest.Do(t, app, "GET", "/api/franchise", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	out := apitest.Decode[map[string]any](t, resp)
	assert.EqualValues(t, 2, out["branch_count"])
}
