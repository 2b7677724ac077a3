// Package policy makes role-based authorization decisions for query
// submissions. Role definitions are data-driven: the defaults mirror the
// built-in tiers but every role can be overridden or extended from
// configuration.
package policy

import (
	"sync"

	"sqlgate/internal/domain"
)

// Role defines what a caller tier may do: which query types it may run and
// how many requests it gets per rate-limit window.
type Role struct {
	Name         string
	AllowedTypes []domain.QueryType
	// RequestsPerWindow is the sliding-window request budget for the role.
	RequestsPerWindow int
}

// Allows reports whether the role may run the given query type.
func (r *Role) Allows(qt domain.QueryType) bool {
	for _, t := range r.AllowedTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// Engine holds all defined roles and provides thread-safe authorization.
type Engine struct {
	mu    sync.RWMutex
	roles map[string]*Role
}

// New creates an empty policy engine.
func New() *Engine {
	return &Engine{roles: make(map[string]*Role)}
}

// Default returns an engine preloaded with the built-in tiers.
//
// The powerbi tier is read-only here; its additional whitelist-only gate
// (powerbi_only entries) requires a whitelist lookup and is enforced by the
// gateway, not by the policy engine.
func Default() *Engine {
	e := New()
	e.SetRole(&Role{
		Name:              domain.RoleReadOnly,
		AllowedTypes:      []domain.QueryType{domain.QueryTypeRead},
		RequestsPerWindow: 30,
	})
	e.SetRole(&Role{
		Name:              domain.RoleAnalyst,
		AllowedTypes:      []domain.QueryType{domain.QueryTypeRead, domain.QueryTypeWrite},
		RequestsPerWindow: 100,
	})
	e.SetRole(&Role{
		Name:              domain.RolePowerBI,
		AllowedTypes:      []domain.QueryType{domain.QueryTypeRead},
		RequestsPerWindow: 200,
	})
	e.SetRole(&Role{
		Name: domain.RoleAdmin,
		AllowedTypes: []domain.QueryType{
			domain.QueryTypeRead, domain.QueryTypeWrite,
			domain.QueryTypeDDL, domain.QueryTypeProcedure,
		},
		RequestsPerWindow: 300,
	})
	return e
}

// SetRole adds or replaces a role definition.
func (e *Engine) SetRole(role *Role) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roles[role.Name] = role
}

// Role returns the definition for the named role, or nil if undefined.
func (e *Engine) Role(name string) *Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles[name]
}

// Authorize decides whether the role may run a query of the given type
// against the target server. Server membership is checked first and fails
// independently of query type.
func (e *Engine) Authorize(role string, qt domain.QueryType, server *domain.ServerConfig) error {
	if !server.AllowsRole(role) {
		return domain.ErrRoleNotAllowed("role %q is not allowed on server %q", role, server.Alias)
	}

	def := e.Role(role)
	if def == nil {
		return domain.ErrRoleNotAllowed("unknown role %q", role)
	}
	if !def.Allows(qt) {
		return domain.ErrQueryTypeNotPermitted("role %q may not run %s queries", role, qt)
	}
	return nil
}

// RequestsPerWindow returns the rate-limit budget for the role, falling
// back to the most restrictive defined budget for unknown roles.
func (e *Engine) RequestsPerWindow(role string) int {
	if def := e.Role(role); def != nil && def.RequestsPerWindow > 0 {
		return def.RequestsPerWindow
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	min := 0
	for _, r := range e.roles {
		if r.RequestsPerWindow > 0 && (min == 0 || r.RequestsPerWindow < min) {
			min = r.RequestsPerWindow
		}
	}
	if min == 0 {
		min = 30
	}
	return min
}
