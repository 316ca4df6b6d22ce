// Package web provides the HTTP surface: the explore pages, the filtered
// download endpoints, and the JSON API.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"surveyscope/internal/adapters/export"
	"surveyscope/internal/metrics"
	"surveyscope/internal/survey"

	"golang.org/x/time/rate"
)

// Handler binds the record store, suppression policy and export scheduler to
// the HTTP routes.
type Handler struct {
	Store      survey.Store
	Suppressor survey.Suppressor
	Exports    export.Scheduler
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	downloadLimiter *rate.Limiter
}

// Options configures optional handler behavior.
type Options struct {
	// DownloadsPerSecond throttles the download endpoints; zero disables.
	DownloadsPerSecond float64
	DownloadBurst      int
}

// NewHandler constructs the HTTP handler. exports and m may be nil; logger
// falls back to slog.Default.
func NewHandler(store survey.Store, suppressor survey.Suppressor, exports export.Scheduler, m *metrics.Metrics, logger *slog.Logger, opts Options) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Store:      store,
		Suppressor: suppressor,
		Exports:    exports,
		Metrics:    m,
		Logger:     logger,
	}
	if opts.DownloadsPerSecond > 0 {
		burst := opts.DownloadBurst
		if burst <= 0 {
			burst = 1
		}
		h.downloadLimiter = rate.NewLimiter(rate.Limit(opts.DownloadsPerSecond), burst)
	}
	return h
}

// Routes returns the route table. The /metrics endpoint is mounted by the
// caller so tests can run without a registry.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", h.instrument("index", http.HandlerFunc(h.handleIndex)))
	mux.Handle("GET /about", h.instrument("about", http.HandlerFunc(h.handleAbout)))
	mux.Handle("GET /explore", h.instrument("explore", http.HandlerFunc(h.handleExplore)))
	mux.Handle("POST /explore", h.instrument("explore", http.HandlerFunc(h.handleExplore)))
	mux.Handle("POST /download_csv", h.instrument("download_csv", h.limitDownloads(http.HandlerFunc(h.handleDownloadCSV))))
	mux.Handle("POST /download_excel", h.instrument("download_excel", h.limitDownloads(http.HandlerFunc(h.handleDownloadExcel))))
	mux.Handle("GET /api/data", h.instrument("api_data", http.HandlerFunc(h.handleAPIData)))
	mux.Handle("POST /api/filter", h.instrument("api_filter", http.HandlerFunc(h.handleAPIFilter)))
	mux.Handle("POST /api/exports", h.instrument("api_exports", http.HandlerFunc(h.handleExportCreate)))
	mux.Handle("GET /api/exports/{id}", h.instrument("api_exports", http.HandlerFunc(h.handleExportGet)))
	mux.Handle("GET /healthz", http.HandlerFunc(h.handleHealthz))
	return mux
}

// formFilter reads the optional equality constraints from form fields.
// Malformed form input defaults to an unconstrained filter; the form routes
// never reject.
func formFilter(r *http.Request) survey.Filter {
	if err := r.ParseForm(); err != nil {
		return survey.Filter{}
	}
	return survey.Filter{
		State:            r.FormValue("state"),
		Gender:           r.FormValue("gender"),
		EmploymentStatus: r.FormValue("employment_status"),
		Year:             r.FormValue("year"),
	}.Normalize()
}

// filteredResults queries the store and applies the suppression policy.
func (h *Handler) filteredResults(r *http.Request, filter survey.Filter) ([]survey.Record, error) {
	results, err := h.Store.Query(r.Context(), filter)
	if err != nil {
		return nil, err
	}
	if h.Suppressor.Suppressed(len(results)) {
		if h.Metrics != nil {
			h.Metrics.SuppressionTotal.Inc()
		}
		h.Logger.Info("result set suppressed", "rows", len(results))
	}
	return h.Suppressor.Apply(results), nil
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", nil)
}

func (h *Handler) handleAbout(w http.ResponseWriter, r *http.Request) {
	h.render(w, "about.html", nil)
}

type explorePage struct {
	Filter     survey.Filter
	Submitted  bool
	Results    []survey.Record
	States     []string
	Genders    []string
	EmpStatus  []string
	Years      []string
	Suppressed bool
}

func (h *Handler) handleExplore(w http.ResponseWriter, r *http.Request) {
	page := explorePage{}
	if r.Method == http.MethodPost {
		page.Submitted = true
		page.Filter = formFilter(r)
		results, err := h.Store.Query(r.Context(), page.Filter)
		if err != nil {
			h.serverError(w, "explore query", err)
			return
		}
		if h.Suppressor.Suppressed(len(results)) {
			page.Suppressed = true
			if h.Metrics != nil {
				h.Metrics.SuppressionTotal.Inc()
			}
		}
		page.Results = h.Suppressor.Apply(results)
	}

	// Dropdowns are recomputed per request: sorted distinct non-empty values
	// per column. Linear in the dataset, fine for a small static table.
	var err error
	if page.States, err = h.Store.Distinct(r.Context(), survey.ColumnState); err != nil {
		h.serverError(w, "distinct states", err)
		return
	}
	if page.Genders, err = h.Store.Distinct(r.Context(), survey.ColumnGender); err != nil {
		h.serverError(w, "distinct genders", err)
		return
	}
	if page.EmpStatus, err = h.Store.Distinct(r.Context(), survey.ColumnEmploymentStatus); err != nil {
		h.serverError(w, "distinct employment", err)
		return
	}
	if page.Years, err = h.Store.Distinct(r.Context(), survey.ColumnYear); err != nil {
		h.serverError(w, "distinct years", err)
		return
	}
	h.render(w, "explore.html", page)
}

func (h *Handler) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	results, err := h.filteredResults(r, formFilter(r))
	if err != nil {
		h.serverError(w, "download_csv query", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="results.csv"`)
	if err := export.EncodeCSV(w, results); err != nil {
		h.Logger.Error("stream csv", "err", err)
	}
}

func (h *Handler) handleDownloadExcel(w http.ResponseWriter, r *http.Request) {
	results, err := h.filteredResults(r, formFilter(r))
	if err != nil {
		h.serverError(w, "download_excel query", err)
		return
	}
	w.Header().Set("Content-Type", export.FormatXLSX.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="results.xlsx"`)
	if err := export.EncodeXLSX(w, results); err != nil {
		h.Logger.Error("stream xlsx", "err", err)
	}
}

// handleAPIData returns every record unconditionally. It deliberately
// bypasses both filtering and suppression; the source system shipped this
// unguarded bulk endpoint and the behavior is preserved as-is.
func (h *Handler) handleAPIData(w http.ResponseWriter, r *http.Request) {
	results, err := h.Store.All(r.Context())
	if err != nil {
		h.serverError(w, "api_data query", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := export.EncodeJSON(w, results); err != nil {
		h.Logger.Error("encode api_data", "err", err)
	}
}

func (h *Handler) handleAPIFilter(w http.ResponseWriter, r *http.Request) {
	var filter survey.Filter
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&filter); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("field %s must be a string", typeErr.Field))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid filter payload")
		return
	}
	results, err := h.filteredResults(r, filter.Normalize())
	if err != nil {
		h.serverError(w, "api_filter query", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := export.EncodeJSON(w, results); err != nil {
		h.Logger.Error("encode api_filter", "err", err)
	}
}

type exportRequest struct {
	Filter  survey.Filter `json:"filter"`
	Formats []string      `json:"formats"`
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusNotFound, "export scheduler not configured")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	formats := make([]export.Format, 0, len(req.Formats))
	for _, s := range req.Formats {
		f, err := export.ParseFormat(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		formats = append(formats, f)
	}
	job, err := h.Exports.Enqueue(r.Context(), export.Input{Filter: req.Filter.Normalize(), Formats: formats})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": job})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request) {
	if h.Exports == nil {
		writeError(w, http.StatusNotFound, "export scheduler not configured")
		return
	}
	job, ok := h.Exports.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": job})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	n, err := h.Store.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": n, "time": time.Now().UTC()})
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.Logger.Error(op, "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
