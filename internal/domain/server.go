package domain

import "fmt"

// EngineType identifies a backend database family.
type EngineType string

const (
	EnginePostgres  EngineType = "postgres"
	EngineMySQL     EngineType = "mysql"
	EngineSQLServer EngineType = "sqlserver"
	EngineOracle    EngineType = "oracle"
)

// Valid reports whether the engine type is one of the supported families.
func (e EngineType) Valid() bool {
	switch e {
	case EnginePostgres, EngineMySQL, EngineSQLServer, EngineOracle:
		return true
	}
	return false
}

// ServerConfig describes one backend database server. Read-mostly,
// admin-mutated.
type ServerConfig struct {
	Alias         string
	Host          string
	Port          int
	Database      string
	Engine        EngineType
	AllowedRoles  []string
	IsActive      bool
	CredentialRef string
	// AutoApprove grants admins direct whitelist insertion on this server.
	AutoApprove bool
}

// AllowsRole reports whether the role may target this server at all.
func (s *ServerConfig) AllowsRole(role string) bool {
	for _, r := range s.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Validate checks the server configuration is internally consistent.
func (s *ServerConfig) Validate() error {
	if s.Alias == "" {
		return fmt.Errorf("server alias is required")
	}
	if s.Host == "" {
		return fmt.Errorf("server %q: host is required", s.Alias)
	}
	if !s.Engine.Valid() {
		return fmt.Errorf("server %q: unknown engine type %q", s.Alias, s.Engine)
	}
	if len(s.AllowedRoles) == 0 {
		return fmt.Errorf("server %q: at least one allowed role is required", s.Alias)
	}
	return nil
}

// ServerRegistry resolves server aliases to configurations.
type ServerRegistry interface {
	Get(alias string) (*ServerConfig, error)
	List() []ServerConfig
}
