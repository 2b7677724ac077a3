package engine

import (
	"fmt"
	"net/url"

	go_ora "github.com/sijms/go-ora/v2"

	"sqlgate/internal/domain"
)

// dialect carries the per-engine driver name and DSN construction. The
// four families share one execution path; only connection setup differs.
type dialect struct {
	driverName string
	buildDSN   func(cfg *domain.ServerConfig, cred domain.Credential) string
}

func dialectFor(engine domain.EngineType) (dialect, error) {
	switch engine {
	case domain.EnginePostgres:
		return dialect{
			driverName: "pgx",
			buildDSN: func(cfg *domain.ServerConfig, cred domain.Credential) string {
				u := url.URL{
					Scheme: "postgres",
					User:   url.UserPassword(cred.Username, cred.Password),
					Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
					Path:   "/" + cfg.Database,
				}
				return u.String()
			},
		}, nil

	case domain.EngineMySQL:
		return dialect{
			driverName: "mysql",
			buildDSN: func(cfg *domain.ServerConfig, cred domain.Credential) string {
				return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
					cred.Username, cred.Password, cfg.Host, cfg.Port, cfg.Database)
			},
		}, nil

	case domain.EngineSQLServer:
		return dialect{
			driverName: "sqlserver",
			buildDSN: func(cfg *domain.ServerConfig, cred domain.Credential) string {
				u := url.URL{
					Scheme:   "sqlserver",
					User:     url.UserPassword(cred.Username, cred.Password),
					Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
					RawQuery: url.Values{"database": []string{cfg.Database}}.Encode(),
				}
				return u.String()
			},
		}, nil

	case domain.EngineOracle:
		return dialect{
			driverName: "oracle",
			buildDSN: func(cfg *domain.ServerConfig, cred domain.Credential) string {
				return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cred.Username, cred.Password, nil)
			},
		}, nil
	}

	return dialect{}, fmt.Errorf("unsupported engine type %q", engine)
}
