package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/planner"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, planner.ErrInvalidConfiguration), errors.Is(err, analysis.ErrEmptyImage):
		return http.StatusBadRequest
	case errors.Is(err, planner.ErrInsufficientCatalog), errors.Is(err, planner.ErrNoEligibleDish):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		if status == http.StatusInternalServerError {
			msg = "the server encountered a problem"
		}
	} else {
		s.logger.Warnw("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	_ = writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) domainError(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, statusFor(err), err)
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, http.StatusBadRequest, err)
}

func (s *Server) unauthorizedResponse(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="macro-meal-planner"`)
	s.errorResponse(w, r, http.StatusUnauthorized, err)
}

func (s *Server) unavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.errorResponse(w, r, http.StatusServiceUnavailable, err)
}
