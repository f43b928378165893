// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"strada-check/internal/classify"
	"strada-check/internal/result"
	"strada-check/internal/suppressions"
)

// DefaultTitle heads every report unless the caller sets one
const DefaultTitle = "STRADA Data Quality Assessment Report"

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Verbose bool // Whether to list every flagged record
	NoColor bool // Whether to disable colored output
	// MaxRows caps flagged records per check in text output when not verbose
	MaxRows int
}

// TypeCount is one row of the micromobility type distribution
type TypeCount struct {
	Type  string `json:"type" yaml:"type"`
	Count int    `json:"count" yaml:"count"`
}

// ClassificationSummary is attached to reports produced by a classify run
type ClassificationSummary struct {
	Stats       classify.Stats `json:"stats" yaml:"stats"`
	TypeCounts  []TypeCount    `json:"type_counts" yaml:"type_counts"`
	Ambiguities int            `json:"ambiguities" yaml:"ambiguities"`
	OutputPath  string         `json:"output_path,omitempty" yaml:"output_path,omitempty"`
}

// NewClassificationSummary orders the type distribution by rule priority
func NewClassificationSummary(outcome *classify.Outcome, rules classify.Rules) *ClassificationSummary {
	counts := outcome.CountByType()
	summary := &ClassificationSummary{
		Stats:       outcome.Stats,
		Ambiguities: outcome.Ambiguities.Len(),
	}
	seen := make(map[string]bool)
	for _, t := range rules.Priority {
		seen[t] = true
		summary.TypeCounts = append(summary.TypeCounts, TypeCount{Type: t, Count: counts[t]})
	}
	var rest []string
	for t := range counts {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	for _, t := range rest {
		summary.TypeCounts = append(summary.TypeCounts, TypeCount{Type: t, Count: counts[t]})
	}
	return summary
}

// Report is the envelope every formatter renders
type Report struct {
	Title          string
	RunID          string
	GeneratedAt    time.Time
	CrashCount     int
	PersonCount    int
	Results        []result.Result
	Suppressed     []suppressions.Suppressed
	Classification *ClassificationSummary
}

// StatusCounts tallies top-level statuses
func (r *Report) StatusCounts() (pass, warning, fail int) {
	for _, res := range r.Results {
		switch res.Status {
		case result.StatusPass:
			pass++
		case result.StatusWarning:
			warning++
		case result.StatusFail:
			fail++
		}
	}
	return pass, warning, fail
}

// HeaderTitle returns Title or the default
func (r *Report) HeaderTitle() string {
	if r.Title == "" {
		return DefaultTitle
	}
	return r.Title
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// Format renders the report in the formatter's specific output format
	Format(report *Report, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[strings.ToLower(name)]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	var names []string
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormatInfo provides metadata about a formatter for web UI integration
type FormatInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
	MimeType    string `json:"mime_type"`
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Export is a service-level function that provides unified formatting for both CLI and Web UI
func Export(format string, report *Report, options FormatterOptions) (string, error) {
	formatter, exists := Get(format)
	if !exists {
		return "", fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter.Format(report, options)
}

// ExportForWeb provides web-friendly export with proper MIME types and filenames
func ExportForWeb(format string, report *Report, options FormatterOptions) (content string, mimeType string, filename string, err error) {
	options.NoColor = true
	content, err = Export(format, report, options)
	if err != nil {
		return "", "", "", err
	}

	info := GetFormatInfo(format)
	return content, info.MimeType, "strada-check-report" + info.Extension, nil
}

// GetFormatInfo returns metadata about a specific formatter
func GetFormatInfo(name string) FormatInfo {
	formatter, exists := Get(name)
	if !exists {
		return FormatInfo{}
	}

	info := FormatInfo{
		Name:        formatter.Name(),
		Description: formatter.Description(),
		Extension:   formatter.FileExtension(),
	}

	switch formatter.Name() {
	case "json":
		info.MimeType = "application/json"
	case "csv":
		info.MimeType = "text/csv"
	case "yaml":
		info.MimeType = "application/x-yaml"
	case "junit":
		info.MimeType = "application/xml"
	case "text":
		info.MimeType = "text/plain"
	default:
		info.MimeType = "application/octet-stream"
	}
	return info
}

// GetSupportedFormats returns information about all available formatters
func GetSupportedFormats() []FormatInfo {
	var formats []FormatInfo
	for _, name := range List() {
		formats = append(formats, GetFormatInfo(name))
	}
	return formats
}
