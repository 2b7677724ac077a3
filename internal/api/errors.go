package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"sqlgate/internal/domain"
)

// errorBody is the JSON error envelope. Kind is the stable machine-readable
// error identifier; Message is human-readable. Backend stack traces never
// appear here.
type errorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	switch domain.ErrorKind(err) {
	case domain.KindUnclassifiableQuery, domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindRoleNotAllowed, domain.KindQueryTypeNotPermitted, domain.KindServerNotAuthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicateFingerprint:
		return http.StatusConflict
	case domain.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	case domain.KindQueryExecutionError:
		return http.StatusBadGateway
	case domain.KindQueryTimeout:
		return http.StatusGatewayTimeout
	case domain.KindConnectionUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the JSON error envelope for a domain error. Internal
// errors get a generic message; everything else carries its own.
func writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	kind := domain.ErrorKind(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}

	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		if secs := int(time.Until(rateErr.RetryAfter).Seconds()) + 1; secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Code: status, Kind: kind, Message: msg})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
