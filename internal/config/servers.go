package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"sqlgate/internal/domain"
	"sqlgate/internal/policy"
)

// serversFile is the on-disk YAML shape of the server registry file.
type serversFile struct {
	Servers []serverYAML `yaml:"servers"`
	// Roles optionally overrides or extends the built-in policy tiers.
	Roles []roleYAML `yaml:"roles"`
	// Credentials maps credential refs to static credentials. Refs absent
	// here fall through to the environment-backed store.
	Credentials map[string]credentialYAML `yaml:"credentials"`
}

type serverYAML struct {
	Alias         string   `yaml:"alias"`
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	Database      string   `yaml:"database"`
	Engine        string   `yaml:"engine"`
	AllowedRoles  []string `yaml:"allowed_roles"`
	IsActive      *bool    `yaml:"is_active"` // defaults to true when omitted
	CredentialRef string   `yaml:"credential_ref"`
	AutoApprove   bool     `yaml:"auto_approve"`
}

type roleYAML struct {
	Name              string   `yaml:"name"`
	AllowedTypes      []string `yaml:"allowed_types"`
	RequestsPerWindow int      `yaml:"requests_per_window"`
}

type credentialYAML struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Registry is an in-memory domain.ServerRegistry loaded from the YAML
// registry file. Read-mostly; Reload swaps the whole map.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*domain.ServerConfig
}

// NewRegistry builds a registry from the given server configurations.
func NewRegistry(servers []domain.ServerConfig) (*Registry, error) {
	m := make(map[string]*domain.ServerConfig, len(servers))
	for i := range servers {
		s := servers[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, exists := m[s.Alias]; exists {
			return nil, fmt.Errorf("duplicate server alias %q", s.Alias)
		}
		m[s.Alias] = &s
	}
	return &Registry{servers: m}, nil
}

// Get resolves a server alias.
func (r *Registry) Get(alias string) (*domain.ServerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.servers[alias]
	if !ok {
		return nil, domain.ErrNotFound("server %q is not registered", alias)
	}
	cp := *s
	return &cp, nil
}

// List returns all registered servers sorted by alias.
func (r *Registry) List() []domain.ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ServerConfig, 0, len(r.servers))
	for _, s := range r.servers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Replace swaps the full server set, used by Reload.
func (r *Registry) Replace(servers []domain.ServerConfig) error {
	nr, err := NewRegistry(servers)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.servers = nr.servers
	r.mu.Unlock()
	return nil
}

// ServersBundle is the fully parsed registry file: the server registry,
// policy role overrides, and static credentials keyed by credential ref.
type ServersBundle struct {
	Registry    *Registry
	Roles       []*policy.Role
	Credentials map[string]domain.Credential
}

// LoadServersFile parses and validates the YAML server registry file.
func LoadServersFile(path string) (*ServersBundle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read servers file: %w", err)
	}
	return ParseServers(data)
}

// ParseServers parses the YAML server registry from raw bytes.
func ParseServers(data []byte) (*ServersBundle, error) {
	var f serversFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse servers file: %w", err)
	}
	if len(f.Servers) == 0 {
		return nil, fmt.Errorf("servers file defines no servers")
	}

	servers := make([]domain.ServerConfig, 0, len(f.Servers))
	for _, s := range f.Servers {
		active := true
		if s.IsActive != nil {
			active = *s.IsActive
		}
		servers = append(servers, domain.ServerConfig{
			Alias:         s.Alias,
			Host:          s.Host,
			Port:          s.Port,
			Database:      s.Database,
			Engine:        domain.EngineType(s.Engine),
			AllowedRoles:  s.AllowedRoles,
			IsActive:      active,
			CredentialRef: s.CredentialRef,
			AutoApprove:   s.AutoApprove,
		})
	}

	registry, err := NewRegistry(servers)
	if err != nil {
		return nil, err
	}

	roles := make([]*policy.Role, 0, len(f.Roles))
	for _, r := range f.Roles {
		if r.Name == "" {
			return nil, fmt.Errorf("role override with empty name")
		}
		types := make([]domain.QueryType, 0, len(r.AllowedTypes))
		for _, t := range r.AllowedTypes {
			qt := domain.QueryType(t)
			switch qt {
			case domain.QueryTypeRead, domain.QueryTypeWrite, domain.QueryTypeDDL, domain.QueryTypeProcedure:
			default:
				return nil, fmt.Errorf("role %q: unknown query type %q", r.Name, t)
			}
			types = append(types, qt)
		}
		roles = append(roles, &policy.Role{
			Name:              r.Name,
			AllowedTypes:      types,
			RequestsPerWindow: r.RequestsPerWindow,
		})
	}

	creds := make(map[string]domain.Credential, len(f.Credentials))
	for ref, c := range f.Credentials {
		if c.Username == "" {
			return nil, fmt.Errorf("credential %q: username is required", ref)
		}
		creds[ref] = domain.Credential{Username: c.Username, Password: c.Password}
	}

	return &ServersBundle{Registry: registry, Roles: roles, Credentials: creds}, nil
}
