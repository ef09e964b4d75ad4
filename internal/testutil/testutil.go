// Package testutil builds an in-memory store with a small seeded franchise.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restoran-pos/internal/database"
	"restoran-pos/internal/models"
	"restoran-pos/internal/permissions"
)

const Password = "correct-horse-9"

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

// NewDB opens a private in-memory SQLite database with the full schema. One
// connection only: every :memory: connection is its own database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// WaiterPermissions is the floor staff role used across tests.
var WaiterPermissions = []string{
	"tables_view",
	"menu_view",
	"tableOrders_view", "tableOrders_create", "tableOrders_void",
	"activeOrders_view", "activeOrders_update",
	"orderHistory_view",
	"payments_view", "payments_process",
}

type Fixture struct {
	DB          *gorm.DB
	Franchise   models.Franchise
	Branch      models.Branch
	OtherBranch models.Branch
	OwnerRole   models.Role
	WaiterRole  models.Role
	Owner       models.Staff
	OwnerUser   models.AuthUser
	Waiter      models.Staff
	WaiterUser  models.AuthUser
}

// Seed creates one franchise with two branches, an owner and a waiter on the
// first branch.
func Seed(t testing.TB, db *gorm.DB) *Fixture {
	t.Helper()

	f := &Fixture{DB: db}
	f.Franchise = CreateFranchise(t, db, "Demo Franchise")
	f.Branch = CreateBranch(t, db, f.Franchise.ID, "Downtown")
	f.OtherBranch = CreateBranch(t, db, f.Franchise.ID, "Airport")
	f.OwnerRole = CreateRole(t, db, f.Franchise.ID, "Owner", true)
	f.WaiterRole = CreateRole(t, db, f.Franchise.ID, "Waiter", false, WaiterPermissions...)
	f.Owner, f.OwnerUser = CreateStaff(t, db, f.Branch, f.OwnerRole, "owner@example.com")
	f.Waiter, f.WaiterUser = CreateStaff(t, db, f.Branch, f.WaiterRole, "waiter@example.com")
	return f
}

func CreateFranchise(t testing.TB, db *gorm.DB, name string) models.Franchise {
	t.Helper()
	fr := models.Franchise{Name: name, Code: fmt.Sprintf("FR%04d", next()), Status: models.FranchiseActive}
	require.NoError(t, db.Create(&fr).Error)
	return fr
}

func CreateBranch(t testing.TB, db *gorm.DB, franchiseID uuid.UUID, name string) models.Branch {
	t.Helper()
	b := models.Branch{
		FranchiseID: franchiseID,
		Name:        name,
		Code:        fmt.Sprintf("BR%04d", next()),
		Status:      models.BranchActive,
		Timezone:    "UTC",
	}
	require.NoError(t, db.Create(&b).Error)
	return b
}

func CreateRole(t testing.TB, db *gorm.DB, franchiseID uuid.UUID, name string, owner bool, keys ...string) models.Role {
	t.Helper()
	perms := permissions.EmptyMap()
	for _, k := range keys {
		_, ok := permissions.Lookup(k)
		require.True(t, ok, "unknown permission %s", k)
		perms[k] = true
	}
	r := models.Role{FranchiseID: franchiseID, Name: name, IsOwner: owner, Permissions: perms}
	require.NoError(t, db.Create(&r).Error)
	return r
}

// CreateStaff adds an active staff member with a login using Password.
func CreateStaff(t testing.TB, db *gorm.DB, branch models.Branch, role models.Role, email string) (models.Staff, models.AuthUser) {
	t.Helper()
	s := models.Staff{
		BranchID:    branch.ID,
		FranchiseID: branch.FranchiseID,
		FirstName:   "Test",
		LastName:    role.Name,
		Code:        fmt.Sprintf("STF%04d", next()),
		RoleID:      role.ID,
		Status:      models.StaffActive,
		Email:       email,
		HireDate:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(&s).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := models.AuthUser{Email: email, PasswordHash: string(hash)}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Create(&models.AuthStaffMapping{AuthUserID: u.ID, StaffID: s.ID}).Error)
	return s, u
}

func CreateTable(t testing.TB, db *gorm.DB, branchID uuid.UUID, number string) models.RestaurantTable {
	t.Helper()
	tbl := models.RestaurantTable{BranchID: branchID, TableNumber: number, Capacity: 4, Status: models.TableAvailable}
	require.NoError(t, db.Create(&tbl).Error)
	return tbl
}

func CreateMenuItem(t testing.TB, db *gorm.DB, branchID uuid.UUID, name string, cost float64) models.MenuItem {
	t.Helper()
	item := models.MenuItem{BranchID: branchID, Name: name, Cost: cost, Category: "mains", IsActive: true}
	require.NoError(t, db.Create(&item).Error)
	return item
}
