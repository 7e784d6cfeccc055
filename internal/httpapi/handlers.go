package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"action-lifecycle-service/internal/engine"
	"action-lifecycle-service/internal/lifecycle"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/store"
)

const maxListLimit = 500

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func listCommandsHandler(w http.ResponseWriter, r *http.Request) {
	names := lifecycle.CommandNames()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"items": names})
}

func (a *App) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req engine.NewTask
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	t, err := a.Engine.CreateTask(r.Context(), a.caller(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *App) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	t, err := a.Engine.GetTask(r.Context(), chi.URLParam(r, "taskId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *App) submitTaskHandler(w http.ResponseWriter, r *http.Request) {
	t, err := a.Engine.SubmitTask(r.Context(), a.caller(r), chi.URLParam(r, "taskId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *App) createActionHandler(w http.ResponseWriter, r *http.Request) {
	var req engine.NewAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	if req.TaskID == "" {
		badRequest(w, "taskId is required")
		return
	}
	act, err := a.Engine.CreateAction(r.Context(), a.caller(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, act)
}

func (a *App) listActionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ActionFilter{
		TaskID: q.Get("taskId"),
		State:  modal.ActionState(q.Get("state")),
		Limit:  50,
	}
	if filter.State != "" && !filter.State.Valid() {
		badRequest(w, "unknown state "+strconv.Quote(string(filter.State)))
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxListLimit {
			badRequest(w, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		filter.Limit = n
	}

	items, err := a.Engine.ListActions(r.Context(), filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) getActionHandler(w http.ResponseWriter, r *http.Request) {
	act, err := a.Engine.GetAction(r.Context(), chi.URLParam(r, "actionId"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

// commandHandler applies one lifecycle command. The body is the command's
// params; the target and caller come from the path and the identity header.
func (a *App) commandHandler(w http.ResponseWriter, r *http.Request) {
	params, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	if len(params) > 0 && !json.Valid(params) {
		badRequest(w, "invalid JSON")
		return
	}

	cmd, err := lifecycle.Decode(lifecycle.Envelope{
		Command:  chi.URLParam(r, "command"),
		ActionID: chi.URLParam(r, "actionId"),
		Caller:   a.caller(r),
		Params:   params,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	act, err := a.Engine.Execute(r.Context(), cmd)
	if err != nil {
		var ce *lifecycle.CommandError
		if errors.As(err, &ce) {
			a.logger().Debug("command refused", "command", ce.Command, "precondition", ce.Precondition)
		}
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}
