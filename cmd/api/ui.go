package main

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"action-lifecycle-service/internal/httpapi"
	"action-lifecycle-service/internal/modal"
	"action-lifecycle-service/internal/workflows"
)

type uiServer struct {
	tc client.Client
	t  *template.Template
}

type uiTaskRow struct {
	WorkflowID string
	RunID      string
	Task       modal.HumanTask
}

type uiIndexData struct {
	Tab   string
	Query string
	Tasks []uiTaskRow
	Hits  []uiTaskRow
	Error string
}

type uiDetailData struct {
	WorkflowID string
	RunID      string
	Status     workflows.ActionStatus
	Task       modal.HumanTask
	Audit      []modal.AuditEvent
	Error      string
}

func registerUIRoutes(r chi.Router, tc client.Client) {
	t := template.Must(template.New("base").Parse(uiTemplates))
	s := &uiServer{tc: tc, t: t}

	r.Get("/ui", s.handleIndex)
	r.Get("/ui/wf/{workflowId}", s.handleDetail)
	r.Post("/ui/wf/{workflowId}/decision", s.handleDecision)
}

// handleIndex lists supervisors waiting on a restore decision, or searches
// supervisors by action ID prefix.
func (s *uiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	if tab == "" {
		tab = "tasks"
	}
	q := r.URL.Query().Get("q")

	data := uiIndexData{Tab: tab, Query: q}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var query string
	switch tab {
	case "tasks":
		query = `ExecutionStatus = "Running" AND WorkflowType = "SuperviseAction"`
	case "search":
		if q == "" {
			_ = s.t.ExecuteTemplate(w, "index", data)
			return
		}
		// Visibility queries have no bind parameters; refuse anything that
		// could close the string literal.
		if strings.ContainsAny(q, "\"'\\`") {
			data.Error = "action id may not contain quotes or backslashes"
			w.WriteHeader(http.StatusBadRequest)
			_ = s.t.ExecuteTemplate(w, "index", data)
			return
		}
		query = `WorkflowId STARTS_WITH "` + workflows.WorkflowID(q) + `"`
	default:
		data.Tab = "tasks"
		query = `ExecutionStatus = "Running" AND WorkflowType = "SuperviseAction"`
	}

	resp, err := s.tc.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: 200,
	})
	if err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "index", data)
		return
	}

	for _, ex := range resp.Executions {
		if ex.Execution == nil {
			continue
		}
		row := uiTaskRow{WorkflowID: ex.Execution.WorkflowId, RunID: ex.Execution.RunId}

		if data.Tab == "search" {
			data.Hits = append(data.Hits, row)
			continue
		}

		task, err := s.queryPendingTask(ctx, row.WorkflowID, row.RunID)
		if err != nil || task == nil {
			continue
		}
		row.Task = *task
		data.Tasks = append(data.Tasks, row)
		if len(data.Tasks) >= 100 {
			break
		}
	}

	_ = s.t.ExecuteTemplate(w, "index", data)
}

func (s *uiServer) handleDetail(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	rid := r.URL.Query().Get("runId")

	data := uiDetailData{WorkflowID: wid, RunID: rid}

	if err := s.query(r.Context(), wid, rid, workflows.QueryActionState, &data.Status); err != nil {
		data.Error = err.Error()
		_ = s.t.ExecuteTemplate(w, "detail", data)
		return
	}
	if task, _ := s.queryPendingTask(r.Context(), wid, rid); task != nil {
		data.Task = *task
	}
	_ = s.query(r.Context(), wid, rid, workflows.QueryAuditLog, &data.Audit)

	_ = s.t.ExecuteTemplate(w, "detail", data)
}

// handleDecision signals the restore decision on behalf of the identity
// set by the gateway. The form never names the decider.
func (s *uiServer) handleDecision(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	rid := r.URL.Query().Get("runId")

	decider := httpapi.HeaderIdentity(r)
	if decider == "" {
		http.Error(w, httpapi.CallerHeader+" header is required", http.StatusForbidden)
		return
	}

	d := modal.TaskDecision{
		TaskID:    r.FormValue("taskId"),
		Approved:  r.FormValue("approved") == "true",
		Notes:     r.FormValue("notes"),
		Decider:   decider,
		DecidedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.tc.SignalWorkflow(ctx, wid, rid, workflows.TaskDecisionSignal, d); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/ui/wf/"+wid+"?runId="+rid, http.StatusSeeOther)
}

func (s *uiServer) query(ctx context.Context, wid, rid, queryType string, out any) error {
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	qr, err := s.tc.QueryWorkflow(cctx, wid, rid, queryType)
	if err != nil {
		return err
	}
	return qr.Get(out)
}

func (s *uiServer) queryPendingTask(ctx context.Context, wid, rid string) (*modal.HumanTask, error) {
	var t *modal.HumanTask
	return t, s.query(ctx, wid, rid, workflows.QueryPendingTask, &t)
}

const uiTemplates = `
{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Action Supervisor</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    .err { color: #b00020; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h2>Suspended Actions</h2>

  <div class="tabs">
    <a href="/ui?tab=tasks">Tasks</a>
    <a href="/ui?tab=search">Search</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "tasks"}}
    <h3>Pending Restore Decisions</h3>
    <p class="muted">Running supervisors with an open restore task.</p>
    <table>
      <thead><tr><th>Task</th><th>Action</th><th>State</th><th>Workflow</th></tr></thead>
      <tbody>
      {{range .Tasks}}
        <tr>
          <td>{{.Task.ID}}</td>
          <td>{{.Task.ActionID}}</td>
          <td>{{.Task.State}}</td>
          <td><a href="/ui/wf/{{.WorkflowID}}?runId={{.RunID}}">{{.WorkflowID}}</a></td>
        </tr>
      {{end}}
      </tbody>
    </table>
  {{else}}
    <h3>Search by Action ID</h3>
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="search"/>
      <input name="q" placeholder="action id prefix" value="{{.Query}}" style="width: 320px;"/>
      <button type="submit">Search</button>
    </form>

    {{if .Query}}
      <h4>Results</h4>
      <table>
        <thead><tr><th>Workflow</th><th>Run</th></tr></thead>
        <tbody>
        {{range .Hits}}
          <tr>
            <td><a href="/ui/wf/{{.WorkflowID}}?runId={{.RunID}}">{{.WorkflowID}}</a></td>
            <td>{{.RunID}}</td>
          </tr>
        {{end}}
        </tbody>
      </table>
    {{end}}
  {{end}}
</body>
</html>
{{end}}

{{define "detail"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Action Detail</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    pre { background: #f7f7f7; padding: 12px; overflow: auto; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
  </style>
</head>
<body>
  <a href="/ui">← Back</a>
  <h2>Action Supervisor</h2>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  <p><b>WorkflowID:</b> {{.WorkflowID}}<br/>
     <b>RunID:</b> {{.RunID}}</p>

  <h3>Action</h3>
  <p><b>Action:</b> {{.Status.ActionID}} (task {{.Status.TaskID}})<br/>
     <b>State:</b> {{.Status.State}}<br/>
     <b>Task state:</b> {{.Status.TaskState}}<br/>
     <b>Version:</b> {{.Status.Version}}</p>

  <h3>Pending Task</h3>
  {{if .Task.ID}}
    <p><b>{{.Task.Title}}</b><br/>{{.Task.Reason}}</p>

    <form method="post" action="/ui/wf/{{.WorkflowID}}/decision?runId={{.RunID}}">
      <input type="hidden" name="taskId" value="{{.Task.ID}}"/>
      <label>Notes:<br/><textarea name="notes" rows="3" cols="80"></textarea></label><br/><br/>
      <button name="approved" value="true" type="submit">Continue</button>
      <button name="approved" value="false" type="submit">Cancel task</button>
    </form>
  {{else}}
    <p>(No pending task)</p>
  {{end}}

  <h3>Audit Log</h3>
  <table>
    <thead><tr><th>Time</th><th>Kind</th><th>Message</th></tr></thead>
    <tbody>
      {{range .Audit}}
        <tr>
          <td>{{.At}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Message}}</td>
        </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>
{{end}}
`
