package permissions

import (
	"sort"

	"github.com/google/uuid"

	"restoran-pos/internal/models"
)

// Set is the capability set of one role.
type Set struct {
	owner   bool
	granted map[Permission]struct{}
}

// FromRole builds the capability set of a role. Unknown keys are ignored.
func FromRole(role *models.Role) Set {
	s := Set{owner: role.IsOwner, granted: make(map[Permission]struct{})}
	for k, v := range role.Permissions {
		if !v {
			continue
		}
		if p, ok := Lookup(k); ok {
			s.granted[p] = struct{}{}
		}
	}
	return s
}

func (s Set) IsOwner() bool { return s.owner }

// Has is the single permission check of the API. Owners bypass it.
func (s Set) Has(p Permission) bool {
	if s.owner {
		return true
	}
	_, ok := s.granted[p]
	return ok
}

// CanAccessModule mirrors the navigation rule: core modules are always
// reachable, owner-only modules need an owner, the rest need any action.
func (s Set) CanAccessModule(m Module) bool {
	def, ok := registry[m]
	if !ok {
		return false
	}
	if def.requiresOwner {
		return s.owner
	}
	if def.core || s.owner {
		return true
	}
	for _, a := range def.actions {
		if _, ok := s.granted[Permission{Module: m, Action: a}]; ok {
			return true
		}
	}
	return false
}

// Keys lists the granted keys, owner sets list everything.
func (s Set) Keys() []string {
	var out []string
	if s.owner {
		for k := range byKey {
			out = append(out, k)
		}
	} else {
		for p := range s.granted {
			out = append(out, p.Key())
		}
	}
	sort.Strings(out)
	return out
}

// Grant is what the resolver caches per role.
type Grant struct {
	RoleID   uuid.UUID
	RoleName string
	Set      Set
}
