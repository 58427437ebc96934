package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sozercan/instrument-lens/apimodels"
	"github.com/sozercan/instrument-lens/internal/analyzer"
)

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read request body"))
		return
	}

	// The deadline sits below the server write timeout so a request that runs
	// out of time still gets its error envelope.
	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := s.analyzer.AnalyzeBody(ctx, body)
	if err != nil {
		slog.Error("Analysis request failed", "error", err)
		writeError(w, err)
		return
	}

	slog.Debug("Analysis request completed successfully", "analysis", string(result.Analysis))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apimodels.HealthResponse{
		OK:            true,
		HasCredential: s.analyzer.Ready(),
	})
}

func errorBody(message string) apimodels.ErrorResponse {
	return apimodels.ErrorResponse{Error: message}
}

// writeError renders err as the error envelope with the status it carries.
func writeError(w http.ResponseWriter, err error) {
	resp := apimodels.ErrorResponse{Error: err.Error()}

	var e *analyzer.Error
	if errors.As(err, &e) {
		resp.Error = e.Message
		resp.Details = e.Details
		resp.Type = e.Kind.String()
	}

	writeJSON(w, analyzer.StatusCode(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
