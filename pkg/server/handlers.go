package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stratum-hq/strata/pkg/history"
	"stratum-hq/strata/pkg/intent"
)

const (
	// maxIntentBytes caps intent document uploads.
	maxIntentBytes = 4 << 20

	// recordTimeout bounds writing one history record.
	recordTimeout = 10 * time.Second
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleValidate runs the validate stage and returns the per-adapter
// validation results.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	pol, ok := s.readPolicy(w, r)
	if !ok {
		return
	}

	startedAt := time.Now()
	results := s.orch.Validate(pol, adapterNames(r))
	s.recordRun(history.FromValidate(pol, results, startedAt))

	writeJSON(w, http.StatusOK, results)
}

// handleCompile runs validate and compile and returns the aggregated
// compile result, surviving outputs included.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	pol, ok := s.readPolicy(w, r)
	if !ok {
		return
	}

	startedAt := time.Now()
	result := s.orch.Compile(pol, adapterNames(r))
	s.recordRun(history.FromCompile(pol, result, startedAt))

	writeJSON(w, http.StatusOK, result)
}

// handleApply runs the full pipeline. The dry_run query parameter selects
// preview mode; apply is gated on a fully successful compile either way.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	pol, ok := s.readPolicy(w, r)
	if !ok {
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dry_run value %q", raw)
			return
		}
		dryRun = parsed
	}

	startedAt := time.Now()
	result := s.orch.Apply(r.Context(), pol, adapterNames(r), dryRun)
	s.recordRun(history.FromApply(pol, result, dryRun, startedAt))

	writeJSON(w, http.StatusOK, result)
}

// handleAdapters lists the registered adapters.
func (s *Server) handleAdapters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, s.orch.ListAdapters())
}

// handleHealthz answers liveness probes.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// readPolicy reads and parses the intent document from the request body.
// YAML and JSON both parse; yaml.v3 accepts JSON documents. On failure the
// error response has already been written.
func (s *Server) readPolicy(w http.ResponseWriter, r *http.Request) (*intent.Policy, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIntentBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body: %v", err)
		return nil, false
	}

	pol, err := intent.ParsePolicy(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid intent document: %v", err)
		return nil, false
	}

	return pol, true
}

// recordRun saves a pipeline run record if a history store is configured.
// A fresh context is used so a client disconnect cannot drop the record.
func (s *Server) recordRun(rec *history.Record) {
	if s.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if err := s.history.Save(ctx, rec); err != nil {
		s.logger.Error("failed to record run history", "record_id", rec.ID, "error", err)
	}
}

// adapterNames parses the adapters query parameter, a comma-separated list.
// Empty means all registered adapters.
func adapterNames(r *http.Request) []string {
	raw := r.URL.Query().Get("adapters")
	if raw == "" {
		return nil
	}

	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}
