package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/db"
	"sqlgate/internal/db/repository"
	"sqlgate/internal/domain"
	"sqlgate/internal/policy"
	"sqlgate/internal/ratelimit"
	"sqlgate/internal/service/approval"
	"sqlgate/internal/service/gateway"
	"sqlgate/internal/service/governance"
	"sqlgate/internal/service/whitelist"
	"sqlgate/internal/testutil"
)

type testAPI struct {
	handler  http.Handler
	adapter  *testutil.MockAdapter
	notifier *testutil.MockNotifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := db.OpenTestMetastore(t)
	logger := slog.Default()

	registry := &testutil.MockRegistry{Servers: map[string]*domain.ServerConfig{
		"prod": {
			Alias:        "prod",
			Host:         "db.internal",
			Port:         5432,
			Database:     "sales",
			Engine:       domain.EnginePostgres,
			AllowedRoles: []string{domain.RoleReadOnly, domain.RoleAnalyst, domain.RoleAdmin},
			IsActive:     true,
			AutoApprove:  true,
		},
	}}
	adapter := &testutil.MockAdapter{ExecuteFn: func(_ context.Context, _ *domain.Query, _ domain.ExecOptions) (*domain.QueryResult, error) {
		return &domain.QueryResult{
			Columns:         []string{"n"},
			Rows:            [][]interface{}{{int64(42)}},
			RowCount:        1,
			ExecutionTimeMs: 2,
		}, nil
	}}
	notifier := &testutil.MockNotifier{}

	whitelistRepo := repository.NewWhitelistRepo(store.Write)
	approvalRepo := repository.NewApprovalRepo(store.Write)
	auditRepo := repository.NewAuditRepo(store.Write)

	pol := policy.Default()
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), time.Minute, pol.RequestsPerWindow, logger)

	gw := gateway.New(registry, pol, limiter, whitelistRepo, approvalRepo, auditRepo,
		&testutil.MockAdapterProvider{Adapters: map[string]domain.EngineAdapter{"prod": adapter}},
		gateway.Config{MaxRows: 100, Timeout: time.Second}, logger)

	h := NewHandler(
		gw,
		approval.New(approvalRepo, auditRepo, notifier, logger),
		whitelist.New(whitelistRepo, logger),
		governance.NewAuditService(auditRepo),
		registry,
		logger,
	)
	return &testAPI{handler: h.Routes(), adapter: adapter, notifier: notifier}
}

func (a *testAPI) do(t *testing.T, p domain.Principal, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(domain.WithPrincipal(req.Context(), p))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

var (
	apiAnalyst = domain.Principal{Username: "alice", Role: domain.RoleAnalyst, ClientIP: "10.0.0.1"}
	apiAdmin   = domain.Principal{Username: "root", Role: domain.RoleAdmin, ClientIP: "10.0.0.9"}
)

func TestSubmitApproveResubmitFlow(t *testing.T) {
	a := newTestAPI(t)
	const q = "SELECT count(*) FROM orders"

	// Analyst submits an unwhitelisted query: queued for approval.
	rec := a.do(t, apiAnalyst, http.MethodPost, "/queries",
		map[string]string{"sql": q, "target_server": "prod"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "pending_approval", body["status"])
	assert.Zero(t, a.adapter.Calls)

	// Admin lists and approves with whitelisting.
	rec = a.do(t, apiAdmin, http.MethodGet, "/approvals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Data []struct {
			ID  string `json:"id"`
			SQL string `json:"sql"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Data, 1)
	assert.Equal(t, q, listing.Data[0].SQL)

	rec = a.do(t, apiAdmin, http.MethodPost, "/approvals/"+listing.Data[0].ID+"/approve",
		map[string]interface{}{"add_to_whitelist": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["whitelist_id"])
	require.Eventually(t, func() bool {
		return len(a.notifier.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond, "async submitter notification")
	assert.True(t, a.notifier.Snapshot()[0].Approved)

	// Resubmission now executes via whitelist hit.
	rec = a.do(t, apiAnalyst, http.MethodPost, "/queries",
		map[string]string{"sql": q, "target_server": "prod"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.EqualValues(t, 1, body["rowcount"])
	assert.Equal(t, 1, a.adapter.Calls)
}

func TestSubmitQuery_PolicyRejection(t *testing.T) {
	a := newTestAPI(t)
	p := domain.Principal{Username: "bob", Role: domain.RoleReadOnly, ClientIP: "10.0.0.2"}

	rec := a.do(t, p, http.MethodPost, "/queries",
		map[string]string{"sql": "DROP TABLE orders", "target_server": "prod"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "rejected", body["status"])
	errObj := body["error"].(map[string]interface{})
	assert.Equal(t, domain.KindQueryTypeNotPermitted, errObj["kind"])
	assert.Zero(t, a.adapter.Calls)
}

func TestSubmitQuery_BadRequest(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, apiAnalyst, http.MethodPost, "/queries", map[string]string{"sql": "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/queries", bytes.NewBufferString("{not json"))
	req = req.WithContext(domain.WithPrincipal(req.Context(), apiAnalyst))
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectFlow(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, apiAnalyst, http.MethodPost, "/queries",
		map[string]string{"sql": "DELETE FROM orders", "target_server": "prod"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodGet, "/approvals", nil)
	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Data, 1)

	// Reason is mandatory.
	rec = a.do(t, apiAdmin, http.MethodPost, "/approvals/"+listing.Data[0].ID+"/reject",
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodPost, "/approvals/"+listing.Data[0].ID+"/reject",
		map[string]string{"reason": "unbounded delete"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodGet, "/approvals", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Empty(t, listing.Data)

	// The rejection shows up in the audit listing.
	rec = a.do(t, apiAdmin, http.MethodGet, "/audit?status=rejected", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestApprovals_AdminOnly(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, apiAnalyst, http.MethodGet, "/approvals", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, apiAnalyst, http.MethodGet, "/audit", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, apiAnalyst, http.MethodGet, "/whitelist", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWhitelistAdminEndpoints(t *testing.T) {
	a := newTestAPI(t)

	// Admin auto-approve creates an entry.
	rec := a.do(t, apiAdmin, http.MethodPost, "/queries",
		map[string]string{"sql": "SELECT * FROM finance", "target_server": "prod"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "auto_approved", decode(t, rec)["status"])

	rec = a.do(t, apiAdmin, http.MethodGet, "/whitelist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Data []struct {
			ID       string `json:"id"`
			Disabled bool   `json:"disabled"`
		} `json:"data"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.EqualValues(t, 1, listing.Total)
	id := listing.Data[0].ID

	rec = a.do(t, apiAdmin, http.MethodGet, "/whitelist/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodPost, "/whitelist/"+id+"/disable", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodDelete, "/whitelist/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, apiAdmin, http.MethodGet, "/whitelist/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListServers_RoleFiltered(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, apiAnalyst, http.MethodGet, "/servers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Data []struct {
			Alias string `json:"alias"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Data, 1)
	assert.Equal(t, "prod", listing.Data[0].Alias)
	assert.NotContains(t, rec.Body.String(), "credential")
}
