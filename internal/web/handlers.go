// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"strada-check/internal/checks"
	"strada-check/internal/classify"
	"strada-check/internal/config"
	"strada-check/internal/core"
	"strada-check/internal/dataset"
	"strada-check/internal/formatters"
	"strada-check/internal/formatters/shared"
	"strada-check/internal/observability"
	"strada-check/internal/result"
	"strada-check/internal/store"
	"strada-check/internal/suppressions"
	"strada-check/internal/version"
)

// Multipart field names of the uploaded tables
const (
	fieldCrashes = "crashes"
	fieldPersons = "persons"
)

// inputError marks failures caused by the request rather than the server
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func invalid(format string, args ...interface{}) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// respondError maps err onto a 400 or 500 envelope
func respondError(c *gin.Context, err error) {
	var in *inputError
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &in), errors.Is(err, dataset.ErrMissingColumn):
		BadRequest(c, err.Error())
	case errors.As(err, &maxBytes):
		Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxBytes.Limit))
	default:
		_ = c.Error(err)
		InternalError(c, err.Error())
	}
}

// runRequest holds the form fields shared by the upload endpoints
type runRequest struct {
	Profile   string `form:"profile"`
	Checks    string `form:"checks"`
	Cycling   string `form:"cycling"`
	YearStart int    `form:"year_start"`
	YearEnd   int    `form:"year_end"`
	Verbose   bool   `form:"verbose"`
}

// runSettings resolves defaults < profile < request fields, the same
// precedence the CLI applies to flags
func (s *Server) runSettings(c *gin.Context) (config.RunSettings, error) {
	var req runRequest
	if err := c.ShouldBind(&req); err != nil {
		return config.RunSettings{}, invalid("invalid form data: %v", err)
	}

	var profile *config.Profile
	if req.Profile != "" {
		if profile = s.cfg.GetProfile(req.Profile); profile == nil {
			return config.RunSettings{}, invalid("unknown profile %q (available: %s)", req.Profile, strings.Join(s.cfg.ListProfiles(), ", "))
		}
	}
	run := s.cfg.Effective(profile)

	if req.Checks != "" {
		run.Checks = req.Checks
	}
	if req.Cycling != "" {
		domain, err := strconv.ParseBool(req.Cycling)
		if err != nil {
			return config.RunSettings{}, invalid("cycling must be true or false, got %q", req.Cycling)
		}
		run.Domain = domain
	}
	if req.YearStart != 0 {
		run.YearStart = req.YearStart
	}
	if req.YearEnd != 0 {
		run.YearEnd = req.YearEnd
	}
	if run.YearStart != 0 && run.YearEnd != 0 && run.YearStart > run.YearEnd {
		return config.RunSettings{}, invalid("year_start %d is after year_end %d", run.YearStart, run.YearEnd)
	}
	run.Verbose = run.Verbose || req.Verbose
	return run, nil
}

// readUpload parses one uploaded table. Excel workbooks are staged to a
// temporary file because excelize needs random access.
func (s *Server) readUpload(c *gin.Context, field string) (string, []string, []map[string]string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", nil, nil, invalid("missing %q file upload", field)
	}
	name := filepath.Base(fh.Filename)

	if dataset.IsExcel(name) {
		dir, err := os.MkdirTemp("", "strada-upload-*")
		if err != nil {
			return name, nil, nil, fmt.Errorf("failed to stage upload: %w", err)
		}
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, field+strings.ToLower(filepath.Ext(name)))
		if err := c.SaveUploadedFile(fh, path); err != nil {
			return name, nil, nil, fmt.Errorf("failed to stage upload: %w", err)
		}
		header, rows, err := dataset.ReadExcel(path, "")
		if err != nil {
			return name, nil, nil, invalid("%s: %v", name, err)
		}
		return name, header, rows, nil
	}

	f, err := fh.Open()
	if err != nil {
		return name, nil, nil, fmt.Errorf("failed to open upload %s: %w", name, err)
	}
	defer f.Close()

	header, rows, err := dataset.ReadCSV(f)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return name, nil, nil, err
		}
		return name, nil, nil, invalid("%s: %v", name, err)
	}
	return name, header, rows, nil
}

func (s *Server) observer() *observability.StandardObserver {
	level := observability.ObservabilityMetrics
	if s.debug {
		level = observability.ObservabilityDebug
	}
	return observability.NewLoggerObserver(level, s.logger)
}

func (s *Server) verify(c *gin.Context, run config.RunSettings) (*core.VerifyResult, error) {
	cols := s.cfg.Columns.WithDefaults()
	crashesName, crashHeader, crashRows, err := s.readUpload(c, fieldCrashes)
	if err != nil {
		return nil, err
	}
	personsName, personHeader, personRows, err := s.readUpload(c, fieldPersons)
	if err != nil {
		return nil, err
	}
	ds := &dataset.Dataset{
		Crashes: dataset.NewCrashTable(crashHeader, crashRows, cols),
		Persons: dataset.NewPersonTable(personHeader, personRows, cols),
		Columns: cols,
	}

	vc := core.BuildVerifyConfig(s.cfg, run)
	vc.Observer = s.observer()
	vc.SuppressionManager = s.suppressions

	res, err := core.Verify(c.Request.Context(), ds, vc)
	if err != nil {
		return nil, err
	}

	if s.saveRuns() {
		err := s.store.SaveVerification(c.Request.Context(), store.Run{
			ID:          res.RunID,
			StartedAt:   res.StartedAt,
			Duration:    res.Duration,
			CrashCount:  res.CrashCount,
			PersonCount: res.PersonCount,
			Source:      crashesName + ", " + personsName,
		}, res.Results)
		if err != nil {
			s.logger.Warn("failed to save verification run", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Server) classify(c *gin.Context, run config.RunSettings) (*core.ClassifyResult, error) {
	cols := s.cfg.Columns.WithDefaults()
	personsName, header, rows, err := s.readUpload(c, fieldPersons)
	if err != nil {
		return nil, err
	}

	cc := core.BuildClassifyConfig(s.cfg, run)
	cc.Observer = s.observer()
	cc.SuppressionManager = s.suppressions

	res, err := core.Classify(c.Request.Context(), dataset.NewPersonTable(header, rows, cols), cc)
	if err != nil {
		return nil, err
	}

	if s.saveRuns() {
		err := s.store.SaveClassification(c.Request.Context(), store.Run{
			ID:        res.RunID,
			StartedAt: res.StartedAt,
			Duration:  res.Duration,
			Source:    personsName,
		}, res.Outcome)
		if err != nil {
			s.logger.Warn("failed to save classification run", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}
	return res, nil
}

func (s *Server) saveRuns() bool {
	return s.store != nil && s.cfg.Defaults.SaveRuns
}

// handleHealth reports liveness and build information
// GET /health
func (s *Server) handleHealth(c *gin.Context) {
	Success(c, gin.H{
		"status":       "healthy",
		"service":      "strada-check-web",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"build":        version.Get(),
		"run_history":  s.store != nil,
		"suppressions": s.suppressions != nil && s.suppressions.IsEnabled(),
	})
}

type checkInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Domain        bool     `json:"domain"`
	CrashColumns  []string `json:"crash_columns,omitempty"`
	PersonColumns []string `json:"person_columns,omitempty"`
}

// handleChecks lists the registered checks with their resolved columns
// GET /api/checks
func (s *Server) handleChecks(c *gin.Context) {
	cols := s.cfg.Columns.WithDefaults()
	resolve := func(keys []string) []string {
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = cols.Resolve(k)
		}
		return out
	}

	var out []checkInfo
	for _, def := range checks.Registry() {
		out = append(out, checkInfo{
			ID:            def.ID,
			Name:          def.Name,
			Domain:        def.Domain,
			CrashColumns:  resolve(def.CrashColumns),
			PersonColumns: resolve(def.PersonColumns),
		})
	}
	Success(c, out)
}

// GET /api/formats
func (s *Server) handleFormats(c *gin.Context) {
	Success(c, formatters.GetSupportedFormats())
}

// handleVerify runs the checks over an uploaded crashes/persons pair
// POST /api/verify (multipart: crashes, persons, profile, checks, cycling, year_start, year_end, verbose)
func (s *Server) handleVerify(c *gin.Context) {
	run, err := s.runSettings(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := s.verify(c, run)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, shared.ConvertReport(res.Report(""), formatters.FormatterOptions{Verbose: run.Verbose}))
}

type classifyResponse struct {
	shared.JSONResponse
	// Augmented is the persons table with the classification columns, verbose only
	Augmented *result.Table `json:"augmented,omitempty"`
}

// handleClassify classifies an uploaded persons table
// POST /api/classify (multipart: persons, profile, year_start, year_end, verbose)
func (s *Server) handleClassify(c *gin.Context) {
	run, err := s.runSettings(c)
	if err != nil {
		respondError(c, err)
		return
	}
	res, err := s.classify(c, run)
	if err != nil {
		respondError(c, err)
		return
	}

	out := classifyResponse{
		JSONResponse: shared.ConvertReport(res.Report(""), formatters.FormatterOptions{Verbose: run.Verbose}),
	}
	if run.Verbose {
		out.Augmented = &result.Table{Columns: res.Outcome.AugmentedHeader(), Rows: res.Outcome.AugmentedRecords()}
	}
	Success(c, out)
}

// formatAugmented downloads the augmented persons table instead of a report
const formatAugmented = "augmented"

// handleExport runs verify (default) or classify and returns the rendered
// report as an attachment
// POST /api/export?format=csv&mode=verify|classify
func (s *Server) handleExport(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	mode := strings.ToLower(c.DefaultQuery("mode", "verify"))

	switch mode {
	case "verify", "classify":
	default:
		BadRequest(c, fmt.Sprintf("unknown mode %q: use verify or classify", mode))
		return
	}
	if format == formatAugmented && mode != "classify" {
		BadRequest(c, "the augmented table is only available with mode=classify")
		return
	}
	if _, ok := formatters.Get(format); !ok && format != formatAugmented {
		BadRequest(c, fmt.Sprintf("unsupported format %q. Available formats: %s", format, strings.Join(formatters.List(), ", ")))
		return
	}

	run, err := s.runSettings(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var report *formatters.Report
	if mode == "classify" {
		res, err := s.classify(c, run)
		if err != nil {
			respondError(c, err)
			return
		}
		if format == formatAugmented {
			var buf bytes.Buffer
			if err := dataset.WriteCSV(&buf, res.Outcome.AugmentedHeader(), res.Outcome.AugmentedRecords()); err != nil {
				respondError(c, err)
				return
			}
			attachment(c, "strada-check-augmented.csv", "text/csv", buf.Bytes())
			return
		}
		report = res.Report("")
	} else {
		res, err := s.verify(c, run)
		if err != nil {
			respondError(c, err)
			return
		}
		report = res.Report("")
	}

	content, mimeType, filename, err := formatters.ExportForWeb(format, report, formatters.FormatterOptions{Verbose: run.Verbose})
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, filename, mimeType, []byte(content))
}

func attachment(c *gin.Context, filename, mimeType string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, mimeType, content)
}

func (s *Server) requireSuppressions(c *gin.Context) bool {
	if s.suppressions == nil {
		NotFound(c, "suppressions are not configured on this server")
		return false
	}
	return true
}

// GET /api/suppressions
func (s *Server) handleListSuppressions(c *gin.Context) {
	if !s.requireSuppressions(c) {
		return
	}
	Success(c, gin.H{
		"file":    s.suppressions.GetConfigPath(),
		"enabled": s.suppressions.IsEnabled(),
		"rules":   s.suppressions.ListSuppressions(),
	})
}

// createSuppressionRequest acknowledges either every finding of a check for
// one crash (crash_id) or one exact detail row (columns + row)
type createSuppressionRequest struct {
	CheckID       string   `json:"check_id" binding:"required"`
	CrashID       string   `json:"crash_id"`
	Columns       []string `json:"columns"`
	Row           []string `json:"row"`
	Reason        string   `json:"reason" binding:"required"`
	ExpiresInDays int      `json:"expires_in_days"`
}

// POST /api/suppressions
func (s *Server) handleCreateSuppression(c *gin.Context) {
	if !s.requireSuppressions(c) {
		return
	}
	var req createSuppressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: check_id and reason are required")
		return
	}
	if !knownCheckID(req.CheckID) {
		BadRequest(c, fmt.Sprintf("unknown check id %q", req.CheckID))
		return
	}

	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}

	var (
		rule *suppressions.SuppressionRule
		err  error
	)
	switch {
	case req.CrashID != "":
		rule, err = s.suppressions.AddCrashSuppression(req.CheckID, req.CrashID, req.Reason, "web", expiresAt)
	case len(req.Row) > 0:
		finding := suppressions.Finding{CheckID: req.CheckID, Columns: req.Columns, Row: req.Row}
		rule, err = s.suppressions.AddSuppression(finding, req.Reason, "web", expiresAt)
	default:
		BadRequest(c, "either crash_id or row is required")
		return
	}

	switch {
	case errors.Is(err, suppressions.ErrRuleExists):
		Error(c, http.StatusConflict, err.Error())
	case err != nil:
		respondError(c, err)
	default:
		Success(c, rule)
	}
}

// knownCheckID accepts registered checks, their sub-checks and the
// classification verifier checks
func knownCheckID(id string) bool {
	id = strings.ToUpper(strings.TrimSpace(id))
	switch id {
	case classify.CheckElectricMismatch, classify.CheckConventionalElectric:
		return true
	}
	_, ok := checks.Lookup(strings.SplitN(id, ".", 2)[0])
	return ok
}

// DELETE /api/suppressions/:id
func (s *Server) handleRemoveSuppression(c *gin.Context) {
	if !s.requireSuppressions(c) {
		return
	}
	if err := s.suppressions.RemoveSuppression(c.Param("id")); err != nil {
		if errors.Is(err, suppressions.ErrRuleNotFound) {
			NotFound(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}
	Success(c, gin.H{"id": c.Param("id")})
}

// POST /api/suppressions/:id/enable, /api/suppressions/:id/disable
func (s *Server) handleSetSuppressionEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.requireSuppressions(c) {
			return
		}
		if err := s.suppressions.SetRuleEnabled(c.Param("id"), enabled); err != nil {
			if errors.Is(err, suppressions.ErrRuleNotFound) {
				NotFound(c, err.Error())
				return
			}
			respondError(c, err)
			return
		}
		Success(c, gin.H{"id": c.Param("id"), "enabled": enabled})
	}
}

type runInfo struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	StartedAt   string `json:"started_at"`
	DurationMs  int64  `json:"duration_ms"`
	CrashCount  int    `json:"crash_count"`
	PersonCount int    `json:"person_count"`
	TotalIssues int    `json:"total_issues"`
	Source      string `json:"source"`
}

type storedResult struct {
	CheckID    string        `json:"check_id"`
	ParentID   string        `json:"parent_id,omitempty"`
	Name       string        `json:"check_name"`
	Status     result.Status `json:"status"`
	Summary    string        `json:"summary"`
	IssueCount int           `json:"issue_count"`
	Details    *result.Table `json:"details,omitempty"`
}

// GET /api/runs
func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		NotFound(c, "run history is disabled on this server")
		return
	}
	runs, err := s.store.ListRuns(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]runInfo, 0, len(runs))
	for _, r := range runs {
		out = append(out, runInfo{
			ID:          r.ID,
			Kind:        r.Kind,
			StartedAt:   r.StartedAt.Format(time.RFC3339),
			DurationMs:  r.Duration.Milliseconds(),
			CrashCount:  r.CrashCount,
			PersonCount: r.PersonCount,
			TotalIssues: r.TotalIssues,
			Source:      r.Source,
		})
	}
	Success(c, out)
}

// GET /api/runs/:id
func (s *Server) handleGetRun(c *gin.Context) {
	if s.store == nil {
		NotFound(c, "run history is disabled on this server")
		return
	}
	stored, err := s.store.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			NotFound(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}
	out := make([]storedResult, 0, len(stored))
	for _, r := range stored {
		out = append(out, storedResult(r))
	}
	Success(c, out)
}
