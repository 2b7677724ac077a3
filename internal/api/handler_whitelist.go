package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type whitelistEntryJSON struct {
	ID                 string    `json:"id"`
	Fingerprint        string    `json:"fingerprint"`
	SQL                string    `json:"sql"`
	QueryType          string    `json:"query_type"`
	ApprovedBy         string    `json:"approved_by"`
	ApprovedAt         time.Time `json:"approved_at"`
	ServerRestrictions []string  `json:"server_restrictions,omitempty"`
	PowerBIOnly        bool      `json:"powerbi_only"`
	Tags               []string  `json:"tags,omitempty"`
	Description        string    `json:"description,omitempty"`
	Disabled           bool      `json:"disabled"`
}

func whitelistToJSON(e domain.WhitelistEntry) whitelistEntryJSON {
	return whitelistEntryJSON{
		ID:                 e.ID,
		Fingerprint:        e.Fingerprint,
		SQL:                e.RawText,
		QueryType:          string(e.QueryType),
		ApprovedBy:         e.ApprovedBy,
		ApprovedAt:         e.ApprovedAt,
		ServerRestrictions: e.ServerRestrictions,
		PowerBIOnly:        e.PowerBIOnly,
		Tags:               e.Tags,
		Description:        e.Description,
		Disabled:           e.Disabled,
	}
}

// ListWhitelist returns a page of whitelist entries, newest first.
func (h *Handler) ListWhitelist(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	entries, total, err := h.whitelist.List(r.Context(), page)
	if err != nil {
		writeError(w, err)
		return
	}
	data := make([]whitelistEntryJSON, len(entries))
	for i, e := range entries {
		data[i] = whitelistToJSON(e)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":            data,
		"total":           total,
		"next_page_token": domain.NextPageToken(page.Offset(), page.Limit(), total),
	})
}

// GetWhitelistEntry returns one whitelist entry by id.
func (h *Handler) GetWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	e, err := h.whitelist.Get(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, whitelistToJSON(*e))
}

// DisableWhitelistEntry soft-disables an entry.
func (h *Handler) DisableWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.whitelist.Disable(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{})
}

// DeleteWhitelistEntry removes an entry outright.
func (h *Handler) DeleteWhitelistEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.whitelist.Delete(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
