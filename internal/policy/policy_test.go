package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
)

func testServer(roles ...string) *domain.ServerConfig {
	return &domain.ServerConfig{
		Alias:        "prod",
		Host:         "db.internal",
		Port:         5432,
		Engine:       domain.EnginePostgres,
		AllowedRoles: roles,
		IsActive:     true,
	}
}

func TestAuthorize_RoleNotOnServer(t *testing.T) {
	e := Default()
	err := e.Authorize(domain.RoleAnalyst, domain.QueryTypeRead, testServer("admin"))
	require.Error(t, err)

	var roleErr *domain.RoleNotAllowedError
	assert.ErrorAs(t, err, &roleErr)
}

func TestAuthorize_TypePermissions(t *testing.T) {
	e := Default()
	srv := testServer("readonly", "analyst", "powerbi", "admin")

	cases := []struct {
		role    string
		qt      domain.QueryType
		allowed bool
	}{
		{domain.RoleReadOnly, domain.QueryTypeRead, true},
		{domain.RoleReadOnly, domain.QueryTypeWrite, false},
		{domain.RoleReadOnly, domain.QueryTypeDDL, false},
		{domain.RoleAnalyst, domain.QueryTypeRead, true},
		{domain.RoleAnalyst, domain.QueryTypeWrite, true},
		{domain.RoleAnalyst, domain.QueryTypeDDL, false},
		{domain.RolePowerBI, domain.QueryTypeRead, true},
		{domain.RolePowerBI, domain.QueryTypeWrite, false},
		{domain.RoleAdmin, domain.QueryTypeRead, true},
		{domain.RoleAdmin, domain.QueryTypeWrite, true},
		{domain.RoleAdmin, domain.QueryTypeDDL, true},
		{domain.RoleAdmin, domain.QueryTypeProcedure, true},
	}

	for _, tc := range cases {
		err := e.Authorize(tc.role, tc.qt, srv)
		if tc.allowed {
			assert.NoError(t, err, "%s/%s", tc.role, tc.qt)
			continue
		}
		var typeErr *domain.QueryTypeNotPermittedError
		assert.ErrorAs(t, err, &typeErr, "%s/%s", tc.role, tc.qt)
	}
}

func TestAuthorize_UnknownRole(t *testing.T) {
	e := Default()
	err := e.Authorize("intern", domain.QueryTypeRead, testServer("intern"))
	var roleErr *domain.RoleNotAllowedError
	assert.ErrorAs(t, err, &roleErr)
}

func TestSetRole_Overrides(t *testing.T) {
	e := Default()
	e.SetRole(&Role{
		Name:              domain.RoleReadOnly,
		AllowedTypes:      []domain.QueryType{domain.QueryTypeRead, domain.QueryTypeWrite},
		RequestsPerWindow: 5,
	})

	srv := testServer("readonly")
	assert.NoError(t, e.Authorize(domain.RoleReadOnly, domain.QueryTypeWrite, srv))
	assert.Equal(t, 5, e.RequestsPerWindow(domain.RoleReadOnly))
}

func TestRequestsPerWindow_Defaults(t *testing.T) {
	e := Default()
	assert.Equal(t, 30, e.RequestsPerWindow(domain.RoleReadOnly))
	assert.Equal(t, 100, e.RequestsPerWindow(domain.RoleAnalyst))
	assert.Equal(t, 200, e.RequestsPerWindow(domain.RolePowerBI))
	assert.Equal(t, 300, e.RequestsPerWindow(domain.RoleAdmin))

	// Unknown roles fall back to the most restrictive budget.
	assert.Equal(t, 30, e.RequestsPerWindow("intern"))
}
