package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sqlgate/internal/domain"
)

type submitQueryRequest struct {
	SQL          string `json:"sql"`
	TargetServer string `json:"target_server"`
}

type submitQueryResponse struct {
	Status          string            `json:"status"`
	AuditID         string            `json:"audit_id"`
	Columns         []string          `json:"columns,omitempty"`
	Rows            [][]interface{}   `json:"rows,omitempty"`
	RowCount        *int64            `json:"rowcount,omitempty"`
	Truncated       bool              `json:"truncated,omitempty"`
	ExecutionTimeMs *int64            `json:"execution_time_ms,omitempty"`
	Error           *submitQueryError `json:"error,omitempty"`
}

type submitQueryError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SubmitQuery runs one SQL submission through the gateway pipeline.
func (h *Handler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	principal, ok := domain.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrValidation("authentication required"))
		return
	}

	var req submitQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.SQL == "" || req.TargetServer == "" {
		writeError(w, domain.ErrValidation("sql and target_server are required"))
		return
	}

	res, err := h.gateway.SubmitQuery(r.Context(), principal, req.SQL, req.TargetServer)
	if err != nil {
		h.logger.Error("submit query failed", "error", err)
		writeError(w, err)
		return
	}

	body := submitQueryResponse{
		Status:  string(res.Status),
		AuditID: res.AuditID,
	}
	if res.Result != nil {
		rc := res.Result.RowCount
		ms := res.Result.ExecutionTimeMs
		body.Columns = res.Result.Columns
		body.Rows = res.Result.Rows
		body.RowCount = &rc
		body.Truncated = res.Result.Truncated
		body.ExecutionTimeMs = &ms
	}

	status := http.StatusOK
	if res.Status == domain.SubmitStatusPendingApproval {
		status = http.StatusAccepted
	}
	if res.Err != nil {
		status = httpStatusFromDomainError(res.Err)
		body.Error = &submitQueryError{
			Kind:    domain.ErrorKind(res.Err),
			Message: res.Err.Error(),
		}
		var rateErr *domain.RateLimitError
		if errors.As(res.Err, &rateErr) {
			if secs := int(time.Until(rateErr.RetryAfter).Seconds()) + 1; secs > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
		}
	}
	respondJSON(w, status, body)
}
