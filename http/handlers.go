package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"hospitalpredict/dataset"
	"hospitalpredict/diagnosis"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"num": formatNumber,
}).ParseFS(templateFS, "templates/index.html"))

const defaultPreviewRows = 5

// inputField 表单输入项
type inputField struct {
	dataset.Bound
	Value float64
}

// pageData 页面数据
type pageData struct {
	Model   *diagnosis.Model
	Columns []string
	Inputs  []inputField
	Outcome *diagnosis.Outcome
	Error   string
}

type predictResponse struct {
	diagnosis.Outcome
	Accuracy     float64 `json:"accuracy"`
	AccuracyText string  `json:"accuracy_text"`
}

type datasetResponse struct {
	Source  string            `json:"source"`
	Columns []string          `json:"columns"`
	Total   int               `json:"total"`
	Rows    []dataset.Patient `json:"rows"`
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /predict", s.handlePredictForm)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.HandleFunc("GET /api/model", s.handleModel)
	mux.HandleFunc("GET /api/dataset", s.handleDataset)
	mux.HandleFunc("GET /api/health", handleHealth)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIndex retrains and renders the page with default inputs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	model, err := s.service.Train(r.Context())
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, newPageData(model, dataset.DefaultVitals(), nil))
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, statusFor(err), pageData{Error: err.Error(), Inputs: inputs(dataset.DefaultVitals())})
		return
	}
	vitals := vitalsFromForm(r)

	model, outcome, err := s.service.Predict(r.Context(), vitals)
	if err != nil {
		s.renderFailure(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, newPageData(model, outcome.Vitals, &outcome))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	vitals := dataset.DefaultVitals()
	if err := json.NewDecoder(r.Body).Decode(&vitals); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	model, outcome, err := s.service.Predict(r.Context(), vitals)
	if err != nil {
		s.logger.Error("prediction failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, predictResponse{
		Outcome:      outcome,
		Accuracy:     model.Accuracy,
		AccuracyText: model.AccuracyText(),
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	model, err := s.service.Train(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	respondJSON(w, http.StatusOK, model.Summary())
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	rows := defaultPreviewRows
	if v := r.URL.Query().Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("rows must be a non-negative integer"))
			return
		}
		rows = n
	}

	table, err := s.service.Dataset(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	preview := table.Head(rows)
	if preview == nil {
		preview = []dataset.Patient{}
	}
	respondJSON(w, http.StatusOK, datasetResponse{
		Source:  s.service.Source(),
		Columns: table.Columns,
		Total:   table.Len(),
		Rows:    preview,
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("training failed", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	s.render(w, r, statusFor(err), pageData{
		Error:  err.Error(),
		Inputs: inputs(dataset.DefaultVitals()),
	})
}

func newPageData(model *diagnosis.Model, v dataset.Vitals, outcome *diagnosis.Outcome) pageData {
	return pageData{
		Model:   model,
		Columns: dataset.Columns,
		Inputs:  inputs(v),
		Outcome: outcome,
	}
}

func inputs(v dataset.Vitals) []inputField {
	values := v.Vector()
	bounds := dataset.Bounds()
	fields := make([]inputField, len(bounds))
	for i, b := range bounds {
		fields[i] = inputField{Bound: b, Value: values[i]}
	}
	return fields
}

// vitalsFromForm reads each bounded field; a missing or unparsable value
// takes the field default. Clamping happens at prediction.
func vitalsFromForm(r *http.Request) dataset.Vitals {
	bounds := dataset.Bounds()
	values := make([]float64, len(bounds))
	for i, b := range bounds {
		values[i] = parseField(r.PostForm.Get(b.Name), b)
	}
	v, _ := dataset.VitalsFromValues(values)
	return v
}

func parseField(raw string, b dataset.Bound) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return b.Default
	}
	return f
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
