package domain

import "context"

// Well-known caller roles.
const (
	RoleReadOnly = "readonly"
	RoleAnalyst  = "analyst"
	RolePowerBI  = "powerbi"
	RoleAdmin    = "admin"
)

type principalKey struct{}

// Principal carries the authenticated identity through request context.
// The auth layer has already validated it; the gateway only consumes
// username and role.
type Principal struct {
	Username string
	Role     string
	ClientIP string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Identity returns the rate-limit identity key for the principal:
// "user:{username}", or "ip:{addr}" for anonymous callers.
func (p Principal) Identity() string {
	if p.Username != "" {
		return "user:" + p.Username
	}
	return "ip:" + p.ClientIP
}

// WithPrincipal stores a Principal in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the Principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
