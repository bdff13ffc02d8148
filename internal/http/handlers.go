package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/odorscope/odorscope/internal/analysis"
	"github.com/odorscope/odorscope/internal/metrics"
)

// Analyzer is the part of analysis.Analyzer the handlers need.
type Analyzer interface {
	Features() analysis.FeatureCatalog
	Labels() analysis.LabelCatalog
	TopK() int
	Submit(sel analysis.Selection) (*analysis.Result, error)
}

type API struct {
	analyzer  Analyzer
	title     string
	dashboard *dashboard
}

func New(analyzer Analyzer, title string) *API {
	return &API{
		analyzer:  analyzer,
		title:     title,
		dashboard: newDashboard(),
	}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", a.index)
	mux.HandleFunc("/api/features", a.features)
	mux.HandleFunc("/api/labels", a.labels)
	mux.HandleFunc("/api/analyze", a.analyze)
}

type AnalyzeRequest struct {
	Concentrations map[string]float64 `json:"concentrations"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (a *API) features(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": a.analyzer.Features(),
		"sorted":   a.analyzer.Features().Sorted(),
	})
}

func (a *API) labels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"labels": a.analyzer.Labels()})
}

func (a *API) analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.Analyses.WithLabelValues("http", "bad_request").Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid payload: %v", err), Kind: "bad_request"})
		return
	}

	res, err := a.run(req.Concentrations, "http")
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Kind: analysis.ErrorKind(err)})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (a *API) run(sel analysis.Selection, transport string) (*analysis.Result, error) {
	res, err := a.analyzer.Submit(sel)
	if err != nil {
		metrics.Analyses.WithLabelValues(transport, analysis.ErrorKind(err)).Inc()
		if !analysis.IsRequestError(err) {
			log.Printf("analyze (%s): %v", transport, err)
		}
		return nil, err
	}

	metrics.Analyses.WithLabelValues(transport, "ok").Inc()
	return res, nil
}

func statusFor(err error) int {
	if analysis.IsRequestError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v before sending the status so an encoding failure
// still reaches the client as an error.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("encode response: %v", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "encode response: " + err.Error(), Kind: "internal"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
