package api

import (
	"net/http"
	"time"

	"sqlgate/internal/domain"
)

type auditEntryJSON struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	ClientIP        string    `json:"client_ip"`
	QueryText       string    `json:"query_text"`
	Fingerprint     string    `json:"fingerprint"`
	WhitelistID     *string   `json:"whitelist_id,omitempty"`
	TargetServer    string    `json:"target_server"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message,omitempty"`
	ExecutionTimeMs *int64    `json:"execution_time_ms,omitempty"`
	RowsAffected    *int64    `json:"rows_affected,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListAudit returns a filtered, paginated slice of the audit log.
// Filters: username, server, status, from, to (RFC 3339).
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{Page: pageFromQuery(r)}
	q := r.URL.Query()
	if v := q.Get("username"); v != "" {
		filter.Username = &v
	}
	if v := q.Get("server"); v != "" {
		filter.TargetServer = &v
	}
	if v := q.Get("status"); v != "" {
		filter.Status = &v
	}
	if v := q.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.ErrValidation("invalid from timestamp %q", v))
			return
		}
		filter.From = &ts
	}
	if v := q.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, domain.ErrValidation("invalid to timestamp %q", v))
			return
		}
		filter.To = &ts
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	data := make([]auditEntryJSON, len(entries))
	for i, e := range entries {
		data[i] = auditEntryJSON{
			ID:              e.ID,
			Username:        e.Username,
			Role:            e.Role,
			ClientIP:        e.ClientIP,
			QueryText:       e.QueryText,
			Fingerprint:     e.Fingerprint,
			WhitelistID:     e.WhitelistID,
			TargetServer:    e.TargetServer,
			Status:          e.Status,
			ErrorMessage:    e.ErrorMessage,
			ExecutionTimeMs: e.ExecutionTimeMs,
			RowsAffected:    e.RowsAffected,
			CreatedAt:       e.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":            data,
		"total":           total,
		"next_page_token": domain.NextPageToken(filter.Page.Offset(), filter.Page.Limit(), total),
	})
}
