package api

import (
	"net/http"

	"sqlgate/internal/domain"
)

// serverJSON redacts the credential ref: callers see where they can run
// queries, never how the gateway authenticates to the backend.
type serverJSON struct {
	Alias        string   `json:"alias"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Database     string   `json:"database"`
	Engine       string   `json:"engine"`
	AllowedRoles []string `json:"allowed_roles"`
	IsActive     bool     `json:"is_active"`
	AutoApprove  bool     `json:"auto_approve"`
}

// ListServers returns the registered backend servers the caller's role may
// target. Admins see every server.
func (h *Handler) ListServers(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrValidation("authentication required"))
		return
	}

	data := make([]serverJSON, 0)
	for _, s := range h.registry.List() {
		if !principal.IsAdmin() && !s.AllowsRole(principal.Role) {
			continue
		}
		data = append(data, serverJSON{
			Alias:        s.Alias,
			Host:         s.Host,
			Port:         s.Port,
			Database:     s.Database,
			Engine:       string(s.Engine),
			AllowedRoles: s.AllowedRoles,
			IsActive:     s.IsActive,
			AutoApprove:  s.AutoApprove,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}
