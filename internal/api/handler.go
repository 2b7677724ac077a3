// Package api provides the HTTP handlers for the gateway REST API.
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
	"sqlgate/internal/service/approval"
	"sqlgate/internal/service/gateway"
	"sqlgate/internal/service/governance"
	"sqlgate/internal/service/whitelist"
)

// Handler holds the service dependencies for all API endpoints.
type Handler struct {
	gateway   *gateway.Service
	approvals *approval.Service
	whitelist *whitelist.Service
	audit     *governance.AuditService
	registry  domain.ServerRegistry
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required service dependencies.
func NewHandler(
	gw *gateway.Service,
	approvals *approval.Service,
	wl *whitelist.Service,
	audit *governance.AuditService,
	registry domain.ServerRegistry,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		gateway:   gw,
		approvals: approvals,
		whitelist: wl,
		audit:     audit,
		registry:  registry,
		logger:    logger.With("component", "api"),
	}
}

// Routes mounts all authenticated API endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/queries", h.SubmitQuery)

	r.Route("/approvals", func(r chi.Router) {
		r.Get("/", h.ListApprovals)
		r.Get("/{approvalID}", h.GetApproval)
		r.Post("/{approvalID}/approve", h.ApprovePending)
		r.Post("/{approvalID}/reject", h.RejectPending)
	})

	r.Route("/whitelist", func(r chi.Router) {
		r.Get("/", h.ListWhitelist)
		r.Get("/{entryID}", h.GetWhitelistEntry)
		r.Post("/{entryID}/disable", h.DisableWhitelistEntry)
		r.Delete("/{entryID}", h.DeleteWhitelistEntry)
	})

	r.Get("/audit", h.ListAudit)
	r.Get("/servers", h.ListServers)

	return r
}

// pageFromQuery extracts a PageRequest from max_results/page_token params.
func pageFromQuery(r *http.Request) domain.PageRequest {
	p := domain.PageRequest{PageToken: r.URL.Query().Get("page_token")}
	if v := r.URL.Query().Get("max_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.MaxResults = n
		}
	}
	return p
}
