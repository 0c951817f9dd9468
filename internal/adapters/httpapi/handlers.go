package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"coffeeroaster/internal/adapters/exports"
	"coffeeroaster/internal/core"
	"coffeeroaster/internal/machines"
	"coffeeroaster/internal/reports"
	"coffeeroaster/internal/sage"
	"coffeeroaster/pkg/domain"
)

// ingestEnvelope is the JSON form of a webhook delivery. When Content is
// absent the whole body is the export.
type ingestEnvelope struct {
	Token   string  `json:"token"`
	LogName string  `json:"log_name"`
	Content *string `json:"content"`
}

// readUpload reads a machine export body. It writes the error response and
// reports false when the body cannot be read.
func (a *api) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxUpload))
	if err == nil {
		return content, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "machine export too large")
	} else {
		writeError(w, http.StatusBadRequest, "read request body: "+err.Error())
	}
	return nil, false
}

// parseEnvelope decodes a JSON object body. Bodies that are not JSON
// objects yield an empty envelope.
func parseEnvelope(content []byte) ingestEnvelope {
	var env ingestEnvelope
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return ingestEnvelope{}
	}
	return env
}

func (a *api) handleIngest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	content, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	env := parseEnvelope(content)
	if env.Content != nil {
		content = []byte(*env.Content)
	}
	res, err := a.svc.IngestMachineExport(r.Context(), core.MachineIngest{
		Token:    firstNonEmpty(q.Get("token"), r.Header.Get("X-Roast-Token"), env.Token),
		LogName:  firstNonEmpty(r.Header.Get("X-Roast-Log-Name"), q.Get("log_name"), env.LogName),
		Filename: r.Header.Get("X-Roast-Filename"),
		Adapter:  r.Header.Get("X-Roast-Adapter"),
		Content:  content,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"roasting_log": res.RoastingLog,
		"adapter":      res.Adapter,
		"points":       res.Points,
		"events":       res.Events,
		"phases":       res.Phases,
	})
}

func (a *api) handleListReports(w http.ResponseWriter, _ *http.Request) {
	if a.reports == nil {
		writeError(w, http.StatusNotFound, "reports not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": a.reports.Templates()})
}

func (a *api) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if a.reports == nil {
		writeError(w, http.StatusNotFound, "reports not configured")
		return
	}
	tpl, ok := a.reports.Resolve(chi.URLParam(r, "key"))
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	format, ok := negotiateFormat(r, tpl)
	if !ok {
		writeError(w, http.StatusNotAcceptable, "requested format not supported")
		return
	}

	params := map[string]any{}
	for name, values := range r.URL.Query() {
		if name == "format" {
			continue
		}
		params[name] = strings.Join(values, ",")
	}
	res, perrs, err := a.reports.Run(r.Context(), tpl.Key, params, format)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(perrs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid report parameters", "errors": perrs})
		return
	}

	var buf bytes.Buffer
	d := tpl.Descriptor()
	if err := reports.Render(&buf, d, res); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", reports.ContentType(format))
	if format == reports.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reports.Filename(d.Key, format, res.GeneratedAt)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// negotiateFormat picks the output from ?format= or the Accept header.
func negotiateFormat(r *http.Request, tpl reports.Template) (reports.Format, bool) {
	wanted := r.URL.Query().Get("format")
	if wanted == "" {
		accept := r.Header.Get("Accept")
		switch {
		case strings.Contains(accept, "text/csv"):
			wanted = string(reports.FormatCSV)
		case strings.Contains(accept, "text/html"):
			wanted = string(reports.FormatHTML)
		}
	}
	f, err := reports.ParseFormat(wanted)
	if err != nil || !tpl.SupportsFormat(f) {
		return "", false
	}
	return f, true
}

type exportRequest struct {
	Company     string   `json:"company"`
	Period      string   `json:"period"`
	Email       bool     `json:"email"`
	Recipients  []string `json:"recipients"`
	RequestedBy string   `json:"requested_by"`
}

func (a *api) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if a.exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	var req exportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	input := exports.Input{
		Company:     req.Company,
		Email:       req.Email,
		Recipients:  req.Recipients,
		RequestedBy: req.RequestedBy,
	}
	if p := strings.TrimSpace(req.Period); p != "" {
		period, err := sage.ParsePeriod(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		input.Period = period
	}
	rec, err := a.exports.Enqueue(r.Context(), input)
	if err != nil {
		if domain.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": rec})
}

func (a *api) handleExportGet(w http.ResponseWriter, r *http.Request) {
	if a.exports == nil {
		writeError(w, http.StatusNotFound, "exports not configured")
		return
	}
	rec, ok := a.exports.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": rec})
}

func (a *api) handleBuildRoute(w http.ResponseWriter, r *http.Request) {
	var req core.RouteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid route request payload")
		return
	}
	res, err := a.svc.BuildRouteFromRTM(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *api) handleStartRoast(w http.ResponseWriter, r *http.Request) {
	se, res, err := a.svc.StartRoast(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_entry": se, "violations": res.Violations})
}

func (a *api) handleSubmitRoastBatch(w http.ResponseWriter, r *http.Request) {
	rb, res, err := a.svc.SubmitRoastBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roast_batch": rb, "violations": res.Violations})
}

func (a *api) handleSubmitBatchCost(w http.ResponseWriter, r *http.Request) {
	bc, je, res, err := a.svc.SubmitBatchCost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch_cost": bc, "journal_entry": je, "violations": res.Violations})
}

// handleSubmitAssessment submits a green bean assessment or, when no such
// document exists, a cupping form.
func (a *api) handleSubmitAssessment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var green bool
	_ = a.svc.View(r.Context(), func(v domain.TransactionView) error {
		_, green = domain.Find[domain.GreenBeanAssessment](v, id)
		return nil
	})
	if green {
		doc, res, err := a.svc.SubmitGreenBeanAssessment(r.Context(), id)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assessment": doc, "violations": res.Violations})
		return
	}
	doc, res, err := a.svc.SubmitCuppingAssessment(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessment": doc, "violations": res.Violations})
}

// handlePullPreview returns the values the log would copy from its roast
// batch; ?roast_batch= previews another batch.
func (a *api) handlePullPreview(w http.ResponseWriter, r *http.Request) {
	rbID := strings.TrimSpace(r.URL.Query().Get("roast_batch"))
	if rbID == "" {
		err := a.svc.View(r.Context(), func(v domain.TransactionView) error {
			log, err := domain.Get[domain.CoffeeRoastingLog](v, chi.URLParam(r, "id"))
			if err != nil {
				return err
			}
			rbID = log.RoastBatch
			return nil
		})
		if err != nil {
			a.fail(w, r, err)
			return
		}
	}
	pull, err := a.svc.PullFromRoastBatch(r.Context(), rbID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pull)
}

func (a *api) handlePullApply(w http.ResponseWriter, r *http.Request) {
	log, err := a.svc.ApplyRoastBatchToLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roasting_log": log})
}

// handleImportCurve imports the request body into the log, or the latest
// attachment when the body is empty.
func (a *api) handleImportCurve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, ok := a.readUpload(w, r)
	if !ok {
		return
	}
	adapter := firstNonEmpty(r.Header.Get("X-Roast-Adapter"), r.URL.Query().Get("adapter"))
	filename := firstNonEmpty(r.Header.Get("X-Roast-Filename"), r.URL.Query().Get("filename"), core.DefaultExportFilename)

	var (
		summary machines.Summary
		err     error
	)
	if len(bytes.TrimSpace(content)) == 0 {
		summary, err = a.svc.ImportCurveFromAttachment(r.Context(), id, adapter)
	} else {
		summary, err = a.svc.ImportCurve(r.Context(), id, filename, content, adapter)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roasting_log": id, "summary": summary})
}

func (a *api) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(q.Get("lat")), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(q.Get("lng")), 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}
	place, err := a.svc.ReverseGeocode(r.Context(), lat, lng)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, place)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
