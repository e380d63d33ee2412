package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/seantiz/wayfarer/internal/errs"
)

const maxBodySize = 1 << 20 // 1 MB

// handle adapts an engine call to an HTTP handler. The request body is
// decoded into Req, fn is invoked, and its payload or error is written back.
// An empty body decodes to the zero Req.
func handle[Req any](s *Server, engine, action string, fn func(r *http.Request, req *Req) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		resp, err := fn(r, &req)
		recordAction(engine, action, err)
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"error": message})
}

// writeEngineError maps an engine error to a status code by its kind.
// Errors without a kind are logged and reported as internal.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errs.Retryable(err) {
		s.writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "retryable": true})
		return
	}

	status, ok := statusOf(err)
	if !ok {
		s.logger.Error("engine call failed", "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

func statusOf(err error) (int, bool) {
	switch errs.Kind(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest, true
	case errs.ErrNotFound:
		return http.StatusNotFound, true
	case errs.ErrConflict:
		return http.StatusConflict, true
	case errs.ErrForbidden:
		return http.StatusForbidden, true
	case errs.ErrStateViolation:
		return http.StatusUnprocessableEntity, true
	}
	return 0, false
}
