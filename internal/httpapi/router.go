package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func RegisterRoutes(r chi.Router, app *App, allowedOrigins []string) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", CallerHeader},
	}))

	r.Get("/healthz", healthHandler)
	if app.Metrics != nil {
		r.Method("GET", "/metrics", app.Metrics)
	}

	r.Get("/commands", listCommandsHandler)

	r.Post("/tasks", app.createTaskHandler)
	r.Get("/tasks/{taskId}", app.getTaskHandler)
	r.Post("/tasks/{taskId}/submit", app.submitTaskHandler)

	r.Post("/actions", app.createActionHandler)
	r.Get("/actions", app.listActionsHandler)
	r.Get("/actions/{actionId}", app.getActionHandler)
	r.Post("/actions/{actionId}/commands/{command}", app.commandHandler)

	if app.Workflows != nil {
		r.Get("/workflows/{workflowId}/state", app.workflowStateHandler)
		r.Get("/workflows/{workflowId}/task", app.workflowTaskHandler)
		r.Get("/workflows/{workflowId}/audit", app.workflowAuditHandler)
		r.Post("/workflows/{workflowId}/task/decision", app.workflowDecisionHandler)
	}
}
