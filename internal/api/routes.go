package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

const apiPrefix = "/api/v1"

func NewRouter(handler *Handler, guard *AuthGuard) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(handler.logger))
	router.Use(corsMiddleware)

	api := router.PathPrefix(apiPrefix).Subrouter()
	api.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)
	api.Handle("/metrics", handler.metrics.Handler()).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(guard.Middleware)

	protected.HandleFunc("/jobs", handler.ListJobs).Methods(http.MethodGet)
	protected.HandleFunc("/jobs", handler.AddJob).Methods(http.MethodPost)
	protected.HandleFunc("/jobs/{index}", handler.EditJob).Methods(http.MethodPut)
	protected.HandleFunc("/jobs/{index}", handler.DeleteJob).Methods(http.MethodDelete)
	protected.HandleFunc("/jobs/{index}/filter", handler.EditFilter).Methods(http.MethodPut)
	protected.HandleFunc("/jobs/{index}/properties", handler.GetProperties).Methods(http.MethodGet)
	protected.HandleFunc("/jobs/{index}/properties", handler.EditProperties).Methods(http.MethodPut)

	protected.HandleFunc("/schedules", handler.ListSchedules).Methods(http.MethodGet)
	protected.HandleFunc("/schedules", handler.AddSchedule).Methods(http.MethodPost)
	protected.HandleFunc("/schedules/{position}", handler.EditSchedule).Methods(http.MethodPut)
	protected.HandleFunc("/schedules/{position}", handler.DeleteSchedule).Methods(http.MethodDelete)
	protected.HandleFunc("/schedules/{position}/runs", handler.ScheduleRuns).Methods(http.MethodGet)
	protected.HandleFunc("/audit", handler.RunAudit).Methods(http.MethodPost)

	return router
}
