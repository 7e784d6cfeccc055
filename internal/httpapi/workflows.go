package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/sdk/converter"

	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/workflows"
)

// WorkflowClient is the slice of the Temporal client the API uses.
type WorkflowClient interface {
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
}

func (a *App) query(w http.ResponseWriter, r *http.Request, queryType string, out any) bool {
	workflowID := chi.URLParam(r, "workflowId")
	runID := r.URL.Query().Get("runId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	qr, err := a.Workflows.QueryWorkflow(ctx, workflowID, runID, queryType)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "WorkflowUnavailable"})
		return false
	}
	if err := qr.Get(out); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "WorkflowUnavailable"})
		return false
	}
	return true
}

func (a *App) workflowStateHandler(w http.ResponseWriter, r *http.Request) {
	var status workflows.ActionStatus
	if a.query(w, r, workflows.QueryActionState, &status) {
		writeJSON(w, http.StatusOK, status)
	}
}

func (a *App) workflowTaskHandler(w http.ResponseWriter, r *http.Request) {
	var task *modal.HumanTask
	if a.query(w, r, workflows.QueryPendingTask, &task) {
		// null when nothing is pending
		writeJSON(w, http.StatusOK, task)
	}
}

func (a *App) workflowAuditHandler(w http.ResponseWriter, r *http.Request) {
	var events []modal.AuditEvent
	if a.query(w, r, workflows.QueryAuditLog, &events) {
		writeJSON(w, http.StatusOK, events)
	}
}

// workflowDecisionHandler answers a pending restore task. The decider is
// the calling identity; the workflow applies the decision on its behalf.
func (a *App) workflowDecisionHandler(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowId")
	runID := r.URL.Query().Get("runId")

	var d modal.TaskDecision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil || d.TaskID == "" {
		badRequest(w, `invalid body: {"taskId":"...","approved":true,"notes":"..."}`)
		return
	}
	d.Decider = a.caller(r)
	if d.Decider == "" {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "caller identity is required", Kind: "AuthorizationDenied"})
		return
	}
	d.DecidedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := a.Workflows.SignalWorkflow(ctx, workflowID, runID, workflows.TaskDecisionSignal, d); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error(), Kind: "WorkflowUnavailable"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
