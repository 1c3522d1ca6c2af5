package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ca-srg/mailscope/internal/auth"
	"github.com/ca-srg/mailscope/internal/filter"
	"github.com/ca-srg/mailscope/internal/metrics"
	"github.com/ca-srg/mailscope/internal/search"
	"github.com/ca-srg/mailscope/internal/types"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Cluster string `json:"cluster,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.usage.Record(r.Context(), metrics.EndpointSearch)

	resp, err := s.service.Search(r.Context(), filter.FromValues(r.URL.Query()))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	s.usage.Record(r.Context(), metrics.EndpointStats)

	query := r.URL.Query()
	window := &types.DateRange{
		From: filter.ParseDate(query.Get(filter.ParamStartDate)),
		To:   filter.ParseDate(query.Get(filter.ParamEndDate)),
	}
	if window.IsEmpty() {
		window = nil
	}

	resp, err := s.service.DashboardStats(r.Context(), window)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEmail(w http.ResponseWriter, r *http.Request) {
	s.usage.Record(r.Context(), metrics.EndpointDocument)

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusNotFound, "Not found", "")
		return
	}

	detail, err := s.service.GetEmail(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	writeJSON(w, http.StatusOK, principal)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	cluster, err := s.health.HealthCheck(r.Context())
	if err != nil {
		s.logger.Printf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "document store unreachable"})
		return
	}
	if cluster == "red" {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Cluster: cluster})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Cluster: cluster})
}

// writeServiceError maps query engine errors onto the API error contract.
// Internal error structure stays in the server log.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "")
	case errors.Is(err, search.ErrSearchFailed):
		writeError(w, http.StatusInternalServerError, "Search failed", search.DetailOf(err))
	default:
		s.logger.Printf("Unexpected service error: %v", err)
		writeError(w, http.StatusInternalServerError, "Search failed", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}
