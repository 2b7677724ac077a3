package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
	"sqlgate/internal/service/approval"
)

type pendingApprovalJSON struct {
	ID            string    `json:"id"`
	Fingerprint   string    `json:"fingerprint"`
	SQL           string    `json:"sql"`
	Submitter     string    `json:"submitter"`
	SubmitterRole string    `json:"submitter_role"`
	TargetServer  string    `json:"target_server"`
	QueryType     string    `json:"query_type"`
	Tables        []string  `json:"tables,omitempty"`
	AuditID       string    `json:"audit_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func pendingToJSON(p domain.PendingApproval) pendingApprovalJSON {
	return pendingApprovalJSON{
		ID:            p.ID,
		Fingerprint:   p.Fingerprint,
		SQL:           p.RawText,
		Submitter:     p.Submitter,
		SubmitterRole: p.SubmitterRole,
		TargetServer:  p.TargetServer,
		QueryType:     string(p.QueryType),
		Tables:        p.Tables,
		AuditID:       p.AuditID,
		CreatedAt:     p.CreatedAt,
	}
}

// ListApprovals returns all open pending approvals.
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	pendings, err := h.approvals.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	data := make([]pendingApprovalJSON, len(pendings))
	for i, p := range pendings {
		data[i] = pendingToJSON(p)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": data})
}

// GetApproval returns one pending approval by id.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	p, err := h.approvals.Get(r.Context(), chi.URLParam(r, "approvalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pendingToJSON(*p))
}

type approveRequest struct {
	AddToWhitelist     bool     `json:"add_to_whitelist"`
	ServerRestrictions []string `json:"server_restrictions,omitempty"`
	PowerBIOnly        bool     `json:"powerbi_only,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Description        string   `json:"description,omitempty"`
}

// ApprovePending approves a pending query, optionally whitelisting it.
func (h *Handler) ApprovePending(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}

	wlID, err := h.approvals.Approve(r.Context(), chi.URLParam(r, "approvalID"), approval.Decision{
		AddToWhitelist:     req.AddToWhitelist,
		ServerRestrictions: req.ServerRestrictions,
		PowerBIOnly:        req.PowerBIOnly,
		Tags:               req.Tags,
		Description:        req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	body := map[string]interface{}{}
	if wlID != "" {
		body["whitelist_id"] = wlID
	}
	respondJSON(w, http.StatusOK, body)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectPending rejects a pending query with a reason.
func (h *Handler) RejectPending(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body: %v", err))
		return
	}
	if req.Reason == "" {
		writeError(w, domain.ErrValidation("reason is required"))
		return
	}

	if err := h.approvals.Reject(r.Context(), chi.URLParam(r, "approvalID"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{})
}
