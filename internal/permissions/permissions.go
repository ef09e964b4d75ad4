// Package permissions turns the stored "{module}_{action}" role maps into a
// closed set of typed capabilities.
package permissions

import (
	"sort"
	"strings"

	"restoran-pos/internal/models"
)

type Module string

const (
	ModuleFranchise    Module = "franchise"
	ModuleBranch       Module = "branch"
	ModuleRoles        Module = "roles"
	ModuleStaff        Module = "staff"
	ModuleTables       Module = "tables"
	ModuleOrders       Module = "orders"
	ModuleMenu         Module = "menu"
	ModuleAnalytics    Module = "analytics"
	ModuleInventory    Module = "inventory"
	ModuleOrderHistory Module = "orderHistory"
	ModuleActiveOrders Module = "activeOrders"
	ModuleTableOrders  Module = "tableOrders"
	ModulePayments     Module = "payments"
)

type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionAssign  Action = "assign"
	ActionExport  Action = "export"
	ActionUpdate  Action = "update"
	ActionVoid    Action = "void"
	ActionProcess Action = "process"
)

// Permission is one (module, action) pair.
type Permission struct {
	Module Module
	Action Action
}

// Key is the stored form, e.g. "branch_edit".
func (p Permission) Key() string {
	return string(p.Module) + "_" + string(p.Action)
}

func (p Permission) String() string { return p.Key() }

type moduleDef struct {
	label         string
	actions       []Action
	core          bool
	requiresOwner bool
}

var registry = map[Module]moduleDef{
	ModuleFranchise:    {label: "Franchise Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}, requiresOwner: true},
	ModuleBranch:       {label: "Branch Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
	ModuleRoles:        {label: "Role Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
	ModuleStaff:        {label: "Staff Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}},
	ModuleTables:       {label: "Table Management", actions: []Action{ActionView, ActionEdit, ActionAssign}, core: true},
	ModuleOrders:       {label: "Order Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}, core: true},
	ModuleMenu:         {label: "Menu Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}, core: true},
	ModuleAnalytics:    {label: "Reports & Analytics", actions: []Action{ActionView, ActionExport}, core: true},
	ModuleInventory:    {label: "Inventory Management", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}, core: true},
	ModuleOrderHistory: {label: "Order History", actions: []Action{ActionView, ActionExport}, core: true},
	ModuleActiveOrders: {label: "Active Orders", actions: []Action{ActionView, ActionUpdate}, core: true},
	ModuleTableOrders:  {label: "Take Orders", actions: []Action{ActionView, ActionCreate, ActionEdit, ActionVoid}, core: true},
	ModulePayments:     {label: "Payments", actions: []Action{ActionView, ActionProcess}, core: true},
}

var byKey = func() map[string]Permission {
	out := make(map[string]Permission)
	for m, def := range registry {
		for _, a := range def.actions {
			p := Permission{Module: m, Action: a}
			out[p.Key()] = p
		}
	}
	return out
}()

// Lookup resolves a stored key. Keys outside the registry are rejected.
func Lookup(key string) (Permission, bool) {
	p, ok := byKey[key]
	return p, ok
}

// Valid reports whether the pair exists in the registry.
func (p Permission) Valid() bool {
	_, ok := byKey[p.Key()]
	return ok
}

// All returns every registered permission, sorted by key.
func All() []Permission {
	out := make([]Permission, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Modules returns the registered modules, sorted.
func Modules() []Module {
	out := make([]Module, 0, len(registry))
	for m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func Label(m Module) string { return registry[m].label }

// EmptyMap is the full stored map with every permission off, the starting
// point for a new role.
func EmptyMap() models.PermissionMap {
	out := make(models.PermissionMap, len(byKey))
	for k := range byKey {
		out[k] = false
	}
	return out
}

// Normalize drops unknown keys from a map coming from a client.
func Normalize(in map[string]bool) (models.PermissionMap, []string) {
	out := EmptyMap()
	var unknown []string
	for k, v := range in {
		k = strings.TrimSpace(k)
		if _, ok := byKey[k]; !ok {
			unknown = append(unknown, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(unknown)
	return out, unknown
}
