// Package api serves reports over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"FlowSpectra/internal/model"
	"FlowSpectra/internal/query"
	"FlowSpectra/internal/reducer"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds POST /reduce request bodies.
const maxBodyBytes = 32 << 20

// Handler holds the dependencies for API handlers.
type Handler struct {
	querier query.Querier
	opts    reducer.Options
}

// NewRouter wires the API routes. The querier may be nil, in which case the
// stored-run routes answer 503.
func NewRouter(querier query.Querier, opts reducer.Options) *mux.Router {
	h := &Handler{querier: querier, opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/reduce", h.reduceHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/runs", h.listRunsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/runs/{id}/report", h.runReportHandler).Methods(http.MethodGet)
	return r
}

// reduceHandler reduces a posted array of flow records.
func (h *Handler) reduceHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	var records []model.FlowRecord
	if err := json.Unmarshal(body, &records); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	report, err := reducer.Reduce(records, h.opts)
	if err != nil {
		if errors.Is(err, reducer.ErrMalformedRecord) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, fmt.Sprintf("failed to reduce records: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, report)
}

func (h *Handler) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "run storage is not configured", http.StatusServiceUnavailable)
		return
	}

	runs, err := h.querier.ListRuns(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []query.RunInfo{}
	}
	writeJSON(w, runs)
}

// runReportHandler re-reduces a stored run. ?format=text selects the plain
// text rendering.
func (h *Handler) runReportHandler(w http.ResponseWriter, r *http.Request) {
	if h.querier == nil {
		http.Error(w, "run storage is not configured", http.StatusServiceUnavailable)
		return
	}

	runID := mux.Vars(r)["id"]
	records, err := h.querier.LoadRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, query.ErrRunNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("failed to load run: %v", err), http.StatusInternalServerError)
		return
	}

	// stored runs already passed validation when they were written
	report, err := reducer.Reduce(records, reducer.Options{})
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to reduce run: %v", err), http.StatusInternalServerError)
		return
	}
	report.RunID = runID

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, reducer.FormatReport(report.Flows, report.Aggregate))
		return
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}
