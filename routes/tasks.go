package routes

import (
	"net/http"
	"time"

	"github.com/soban-iftikhar/HostelMate/controllers/users"
	"github.com/soban-iftikhar/HostelMate/middleware"

	"github.com/gorilla/mux"
)

// TasksRoutes registers the favor lifecycle endpoints. All of them require an
// authenticated resident.
func TasksRoutes(api *mux.Router) {
	taskLimiter := middleware.NewUserRateLimiter(120, 60, time.Minute)

	protect := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(taskLimiter.Middleware(h))
	}

	api.Handle("/tasks/create", protect(users.CreateTaskHandler)).Methods(http.MethodPost)
	api.Handle("/tasks/available", protect(users.AvailableTasksHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/accept", protect(users.AcceptTaskHandler)).Methods(http.MethodPut)
	api.Handle("/tasks/request-complete/{id}", protect(users.RequestCompletionHandler)).Methods(http.MethodPut)
	api.Handle("/tasks/complete/{id}", protect(users.CompleteTaskHandler)).Methods(http.MethodPut)
	api.Handle("/tasks/myTasks", protect(users.MyTasksHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/history", protect(users.TaskHistoryHandler)).Methods(http.MethodGet)
	api.Handle("/tasks/update/{id}", protect(users.UpdateTaskHandler)).Methods(http.MethodPut)
	api.Handle("/tasks/delete/{id}", protect(users.DeleteTaskHandler)).Methods(http.MethodDelete)
}
