// Package app provides application-level wiring and dependency injection
// for the gateway. All components are constructed here once at startup and
// passed by reference; there are no package-level singletons.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"sqlgate/internal/config"
	"sqlgate/internal/credentials"
	"sqlgate/internal/db"
	"sqlgate/internal/db/repository"
	"sqlgate/internal/domain"
	"sqlgate/internal/engine"
	"sqlgate/internal/metrics"
	"sqlgate/internal/notify"
	"sqlgate/internal/policy"
	"sqlgate/internal/ratelimit"
	"sqlgate/internal/service/approval"
	"sqlgate/internal/service/gateway"
	"sqlgate/internal/service/governance"
	"sqlgate/internal/service/whitelist"
)

// Deps holds the external dependencies that main() must provide: config,
// the opened metastore, the parsed server registry file, and the logger.
type Deps struct {
	Cfg    *config.Config
	Store  *db.Metastore
	Bundle *config.ServersBundle
	Logger *slog.Logger
}

// Services groups the service pointers the API handler and CLI need.
type Services struct {
	Gateway   *gateway.Service
	Approval  *approval.Service
	Whitelist *whitelist.Service
	Audit     *governance.AuditService
}

// App is the fully wired application.
type App struct {
	Services Services
	Registry domain.ServerRegistry
	Engines  *engine.Manager
	Metrics  *metrics.Observer

	cron        *cron.Cron
	redisClient *redis.Client
	logger      *slog.Logger
}

// New wires all repositories, services, and the engine manager.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	// Repositories. Mutating paths go through the write pool; the audit
	// listing surface reads from the read pool.
	whitelistRepo := repository.NewWhitelistRepo(deps.Store.Write)
	approvalRepo := repository.NewApprovalRepo(deps.Store.Write)
	auditRepo := repository.NewAuditRepo(deps.Store.Write)
	auditReadRepo := repository.NewAuditRepo(deps.Store.Read)

	// Policy: built-in tiers plus config overrides.
	pol := policy.Default()
	for _, role := range deps.Bundle.Roles {
		pol.SetRole(role)
	}

	// Rate limiting: in-memory window store for a single instance, Redis
	// when configured for multi-instance deployments.
	var limitStore ratelimit.Store
	var memStore *ratelimit.MemoryStore
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limitStore = ratelimit.NewRedisStore(redisClient)
		logger.Info("rate limit windows shared via redis", "addr", cfg.RedisAddr)
	} else {
		memStore = ratelimit.NewMemoryStore()
		limitStore = memStore
	}
	limiter := ratelimit.New(limitStore, cfg.RateLimitWindow, pol.RequestsPerWindow, logger)

	// Credentials: config-file entries first, environment fallback.
	credStore := credentials.NewServerStore(deps.Bundle.Registry, credentials.Chain{
		credentials.NewStaticStore(deps.Bundle.Credentials),
		credentials.EnvStore{},
	})

	engines := engine.NewManager(credStore, engine.PoolOptions{
		MaxOpenConns:    cfg.PoolMaxOpenConns,
		MaxIdleConns:    cfg.PoolMaxIdleConns,
		ConnMaxIdleTime: cfg.PoolConnMaxIdleTime,
		AcquireTimeout:  5 * time.Second,
	}, logger)

	observer := metrics.NewObserver()

	gatewaySvc := gateway.New(
		deps.Bundle.Registry, pol, limiter,
		whitelistRepo, approvalRepo, auditRepo,
		engines,
		gateway.Config{MaxRows: cfg.QueryMaxRows, Timeout: cfg.QueryTimeout},
		logger,
	)
	gatewaySvc.SetObserver(observer)

	notifier := notify.NewLogNotifier(logger)

	a := &App{
		Services: Services{
			Gateway:   gatewaySvc,
			Approval:  approval.New(approvalRepo, auditRepo, notifier, logger),
			Whitelist: whitelist.New(whitelistRepo, logger),
			Audit:     governance.NewAuditService(auditReadRepo),
		},
		Registry:    deps.Bundle.Registry,
		Engines:     engines,
		Metrics:     observer,
		redisClient: redisClient,
		logger:      logger.With("component", "app"),
	}
	a.startMaintenance(memStore, approvalRepo, cfg.RateLimitWindow)
	return a, nil
}

// startMaintenance schedules the background jobs: rate-window GC, pool
// stats export, and the pending-approvals gauge.
func (a *App) startMaintenance(memStore *ratelimit.MemoryStore, approvals domain.ApprovalRepository, window time.Duration) {
	c := cron.New()

	if memStore != nil {
		_, _ = c.AddFunc("@every 1m", func() {
			if removed := memStore.Sweep(time.Now(), window); removed > 0 {
				a.logger.Debug("rate limit windows swept", "removed", removed)
			}
		})
	}

	_, _ = c.AddFunc("@every 15s", func() {
		for server, stats := range a.Engines.Stats() {
			a.Metrics.SetPoolStats(server, stats)
		}
	})

	_, _ = c.AddFunc("@every 30s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pendings, err := approvals.List(ctx)
		if err != nil {
			a.logger.Warn("pending approvals gauge refresh failed", "error", err)
			return
		}
		a.Metrics.SetPendingApprovals(len(pendings))
	})

	c.Start()
	a.cron = c
}

// Close stops the scheduler and releases backend pools.
func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	var err error
	if a.Engines != nil {
		err = a.Engines.Close()
	}
	if a.redisClient != nil {
		if cerr := a.redisClient.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
