package httpapi

import (
	"encoding/json"
	"net/http"

	"action-lifecycle-service/internal/lifecycle"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

var statusByKind = map[lifecycle.Kind]int{
	lifecycle.KindAuthorizationDenied: http.StatusForbidden,
	lifecycle.KindInvalidState:        http.StatusConflict,
	lifecycle.KindRoleNotDefined:      http.StatusUnprocessableEntity,
	lifecycle.KindMissingEvidence:     http.StatusUnprocessableEntity,
	lifecycle.KindInvalidSelector:     http.StatusBadRequest,
	lifecycle.KindNotFound:            http.StatusNotFound,
	lifecycle.KindStoreConflict:       http.StatusConflict,
}

// StatusOf maps an engine error to its HTTP status.
func StatusOf(err error) int {
	if status, ok := statusByKind[lifecycle.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	kind := lifecycle.KindOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger().Error("request failed", "path", r.URL.Path, "error", msg)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: string(kind), Retryable: lifecycle.Retryable(err)})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: string(lifecycle.KindInvalidSelector)})
}
