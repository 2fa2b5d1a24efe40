package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
)

// Handler builds the full route table wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	api := r.PathPrefix("/api").Methods(http.MethodGet).Subrouter()
	api.HandleFunc("/vehicles", s.handleListVehicles)
	// registered ahead of {id} so "status" is never taken for a vehicle id
	api.HandleFunc("/vehicles/status/{status}", s.handleVehiclesByStatus)
	api.HandleFunc("/vehicles/{id}", s.handleGetVehicle)
	api.HandleFunc("/statistics", s.handleStatistics)
	api.HandleFunc("/docs", s.handleDocs)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	if s.stream != nil {
		r.Handle("/ws", s.stream).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReadyz).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.gatherer)).Methods(http.MethodGet)
	}

	notFound := s.observe(http.HandlerFunc(s.handleNotFound))
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	return s.cors(s.recoverer(r))
}
