package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/engine"
	"github.com/warp/flexpay-engine/ingest"
	"github.com/warp/flexpay-engine/invoice"
	"github.com/warp/flexpay-engine/store"
	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a multipart upload.
const maxUploadBytes = 64 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    store.Store
	Resolver *config.Resolver
	Runner   *engine.Runner
	Factory  *config.Factory
	Version  string
	logger   *zap.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(st store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := config.NewResolver(st, logger)
	return &Handler{
		Store:    st,
		Resolver: resolver,
		Runner:   engine.NewRunner(resolver, st, logger),
		Factory:  config.NewFactory(),
		logger:   logger,
	}
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Version: h.Version})
}

// =============================================================================
// CONFIGURATION HANDLERS
// =============================================================================

// GetClientConfig returns the client's resolved configuration.
// GET /api/clients/{id}/config
func (h *Handler) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "id")

	dto := ClientConfigDTO{ClientID: clientID, Resolved: h.Resolver.Resolve(ctx, clientID)}
	rec, err := h.Store.ClientConfig(ctx, clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load client config", err)
		return
	}
	if rec != nil {
		dto.Version = rec.Version
		dto.UpdatedAt = &rec.UpdatedAt
	}
	writeJSON(w, http.StatusOK, dto)
}

// PutClientConfig validates and stores the client's configuration document.
// PUT /api/clients/{id}/config
func (h *Handler) PutClientConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "id")

	var cj config.ClientConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&cj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, _, _, err := h.Factory.FromJSON(cj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid client config", err)
		return
	}
	doc, err := json.Marshal(cj)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode client config", err)
		return
	}

	rec, err := h.Store.SaveClientConfig(ctx, clientID, string(doc))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client config", err)
		return
	}
	h.logger.Info("client config saved", zap.String("client_id", clientID), zap.Int("version", rec.Version))

	writeJSON(w, http.StatusOK, ClientConfigDTO{
		ClientID:  clientID,
		Version:   rec.Version,
		UpdatedAt: &rec.UpdatedAt,
		Resolved:  h.Resolver.Resolve(ctx, clientID),
	})
}

// ListIncentiveRules returns the client's stored rules, inactive included.
// GET /api/clients/{id}/incentives
func (h *Handler) ListIncentiveRules(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	records, err := h.Store.IncentiveRules(r.Context(), clientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load incentive rules", err)
		return
	}

	dtos := make([]IncentiveRuleDTO, 0, len(records))
	for _, rr := range records {
		rule, err := h.Factory.ParseIncentiveRule(rr.RuleJSON)
		if err != nil {
			h.logger.Warn("stored incentive rule unparseable",
				zap.String("client_id", clientID), zap.String("rule_id", rr.ID), zap.Error(err))
			continue
		}
		rule.ID = rr.ID
		rule.Active = rr.Active
		dtos = append(dtos, IncentiveRuleDTO{Position: rr.Position, IncentiveRuleJSON: config.RuleToJSON(rule)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PutIncentiveRules replaces the client's rule set.
// PUT /api/clients/{id}/incentives
func (h *Handler) PutIncentiveRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := chi.URLParam(r, "id")

	var body []config.IncentiveRuleJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]config.RuleRecord, 0, len(body))
	dtos := make([]IncentiveRuleDTO, 0, len(body))
	for i, rj := range body {
		rule, err := h.Factory.RuleFromJSON(rj)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid incentive rule at position %d", i), err)
			return
		}
		stored := config.RuleToJSON(rule)
		doc, err := json.Marshal(stored)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to encode incentive rule", err)
			return
		}
		records = append(records, config.RuleRecord{ID: rule.ID, RuleJSON: string(doc), Active: rule.Active})
		dtos = append(dtos, IncentiveRuleDTO{Position: i, IncentiveRuleJSON: stored})
	}

	if err := h.Store.ReplaceIncentiveRules(ctx, clientID, records); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save incentive rules", err)
		return
	}
	h.logger.Info("incentive rules replaced", zap.String("client_id", clientID), zap.Int("rules", len(records)))
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TRANSFORMATION HANDLERS
// =============================================================================

// RunPayroll runs the payroll pipeline over uploaded files.
// POST /api/clients/{id}/payroll
//
// Multipart files: timecards (required), crosswalk (required), manual_adds.
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	if err := parseUpload(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	up := &uploads{r: r}
	defer up.Close()
	req := engine.PayrollRequest{
		ClientID:   clientID,
		Timecards:  up.file("timecards"),
		ManualAdds: up.file("manual_adds"),
		Crosswalk:  up.file("crosswalk"),
	}
	if up.err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", up.err)
		return
	}

	run, err := h.Runner.Payroll(r.Context(), req)
	if err != nil {
		writeTransformError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PayrollResponseDTO{
		RunID:      run.RunID,
		ClientID:   clientID,
		Count:      len(run.Result.Records),
		CSV:        run.CSV,
		Records:    run.Result.Records,
		Stats:      run.Result.Stats,
		Rejections: summarize(run.Result.Rejections),
		Defaulted:  run.Config.Defaulted,
	})
}

// RunInvoice runs the invoice pipeline over uploaded files.
// POST /api/clients/{id}/invoice
//
// Multipart files: current (required), previous, detail_1..detail_4,
// facility_crosswalk. Form value: start_sequence.
func (h *Handler) RunInvoice(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	if err := parseUpload(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart upload", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := engine.InvoiceRequest{ClientID: clientID}
	if v := strings.TrimSpace(r.FormValue("start_sequence")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "start_sequence must be a positive integer", err)
			return
		}
		req.StartSequence = n
	}

	up := &uploads{r: r}
	defer up.Close()
	req.Current = up.file("current")
	req.Previous = up.file("previous")
	req.Facilities = up.file("facility_crosswalk")
	for i := 0; i < invoice.DetailPeriods; i++ {
		req.Details[i] = up.file(fmt.Sprintf("detail_%d", i+1))
	}
	if up.err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", up.err)
		return
	}

	run, err := h.Runner.Invoice(r.Context(), req)
	if err != nil {
		writeTransformError(w, err)
		return
	}
	res := run.Result
	writeJSON(w, http.StatusOK, InvoiceResponseDTO{
		RunID:                run.RunID,
		ClientID:             clientID,
		InvoiceNumber:        res.InvoiceNumber,
		HasMicrohospitals:    res.HasMicrohospitals,
		MainCount:            len(res.MainInvoiceDetail),
		MicroCount:           len(res.MicroInvoiceDetail),
		MainInvoiceCSV:       res.MainInvoiceCSV,
		MicroInvoiceCSV:      res.MicroInvoiceCSV,
		MainProductivityCSV:  res.MainProductivityCSV,
		MicroProductivityCSV: res.MicroProductivityCSV,
		Rejections:           summarize(res.Rejections),
		UnmappedFacilities:   res.UnmappedFacilities,
		Defaulted:            run.Config.Defaulted,
	})
}

// ListRuns returns the run audit trail, newest first.
// GET /api/runs?client_id=&limit=
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}
	runs, err := h.Store.ListRuns(r.Context(), r.URL.Query().Get("client_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	return r.ParseMultipartForm(32 << 20)
}

// uploads opens multipart files and remembers the first failure.
type uploads struct {
	r     *http.Request
	files []multipart.File
	err   error
}

// file returns the named upload, or nil when the field is absent.
func (u *uploads) file(field string) *engine.File {
	if u.err != nil {
		return nil
	}
	f, header, err := u.r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		u.err = fmt.Errorf("%s: %w", field, err)
		return nil
	}
	u.files = append(u.files, f)
	return &engine.File{Name: uploadName(header, field), Body: f}
}

func (u *uploads) Close() {
	for _, f := range u.files {
		f.Close()
	}
}

func uploadName(header *multipart.FileHeader, field string) string {
	if header != nil && header.Filename != "" {
		return header.Filename
	}
	return field + ".csv"
}

// writeTransformError maps pipeline failures to HTTP responses. Missing or
// unreadable inputs are the caller's fault; anything else is ours.
func writeTransformError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, timecard.ErrMissingInput),
		errors.Is(err, timecard.ErrMissingCrosswalk),
		errors.Is(err, timecard.ErrUnsupportedFormat),
		errors.Is(err, timecard.ErrEmptyFile):
		status = http.StatusBadRequest
	}

	var te *timecard.TransformError
	if errors.As(err, &te) {
		resp := ErrorResponse{Error: te.Message, Code: te.Stage}
		if d := te.Details(); d != "" {
			resp.Details = d
		}
		if status == http.StatusInternalServerError && te.Stage == ingest.StageIngest {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, resp)
		return
	}
	writeError(w, status, "Transformation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
