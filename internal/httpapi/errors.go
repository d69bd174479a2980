package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// errorEnvelope is the JSON error body returned for every HTTP
// fallback failure: 4xx for client faults, 5xx for server faults.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// domainCodeToHTTPStatus maps a core.ErrorCode onto the HTTP status
// code that best represents it.
var domainCodeToHTTPStatus = map[core.ErrorCode]int{
	core.ErrorCodeInternal:           http.StatusInternalServerError,
	core.ErrorCodeInvalidArgument:    http.StatusBadRequest,
	core.ErrorCodeNotFound:           http.StatusNotFound,
	core.ErrorCodeAlreadyExists:      http.StatusConflict,
	core.ErrorCodeUnauthenticated:    http.StatusUnauthorized,
	core.ErrorCodePermissionDenied:   http.StatusForbidden,
	core.ErrorCodeFailedPrecondition: http.StatusPreconditionFailed,
	core.ErrorCodeDeadlineExceeded:   http.StatusGatewayTimeout,
	core.ErrorCodeResourceExhausted:  http.StatusTooManyRequests,
	core.ErrorCodeUnimplemented:      http.StatusNotImplemented,
	core.ErrorCodeUnavailable:        http.StatusServiceUnavailable,
}

// writeError renders err as the JSON error envelope with a status
// derived from its concrete domain error type.
func writeError(w http.ResponseWriter, err error) {
	status, code := httpStatusForError(err)
	if status >= 500 {
		slog.Error("http fallback request failed", "error", err)
	}

	var body errorEnvelope
	body.Error.Code = code
	body.Error.Message = err.Error()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func httpStatusForError(err error) (int, string) {
	var invalidInput *core.ErrInvalidInput
	if errors.As(err, &invalidInput) {
		return http.StatusBadRequest, core.ErrorCodeInvalidArgument.String()
	}
	var clusterNotFound *core.ErrClusterNotFound
	if errors.As(err, &clusterNotFound) {
		return http.StatusNotFound, core.ErrorCodeNotFound.String()
	}
	var notReady *core.ErrNotReady
	if errors.As(err, &notReady) {
		return http.StatusServiceUnavailable, core.ErrorCodeUnavailable.String()
	}
	var subNotFound *core.ErrSubscriptionNotFound
	if errors.As(err, &subNotFound) {
		return http.StatusNotFound, core.ErrorCodeNotFound.String()
	}

	var domainErr *core.DomainError
	if errors.As(err, &domainErr) {
		status, ok := domainCodeToHTTPStatus[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		return status, domainErr.Code.String()
	}

	return http.StatusInternalServerError, core.ErrorCodeInternal.String()
}
