// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package shared

import (
	"strings"
	"time"

	"strada-check/internal/formatters"
	"strada-check/internal/result"
	"strada-check/internal/suppressions"
)

// JSONResponse represents the top-level response structure for JSON/YAML output
type JSONResponse struct {
	Title          string                            `json:"title" yaml:"title"`
	RunID          string                            `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt    string                            `json:"generated_at" yaml:"generated_at"`
	Dataset        DatasetSummary                    `json:"dataset" yaml:"dataset"`
	Summary        CheckSummary                      `json:"summary" yaml:"summary"`
	Results        []result.Result                   `json:"results" yaml:"results"`
	Suppressed     []suppressions.Suppressed         `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Classification *formatters.ClassificationSummary `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// DatasetSummary holds the row counts of the verified tables
type DatasetSummary struct {
	Crashes int `json:"crashes" yaml:"crashes"`
	Persons int `json:"persons" yaml:"persons"`
}

// CheckSummary tallies top-level results
type CheckSummary struct {
	Checks      int `json:"checks" yaml:"checks"`
	Passed      int `json:"passed" yaml:"passed"`
	Warnings    int `json:"warnings" yaml:"warnings"`
	Failed      int `json:"failed" yaml:"failed"`
	TotalIssues int `json:"total_issues" yaml:"total_issues"`
	Suppressed  int `json:"suppressed" yaml:"suppressed"`
}

// ConvertReport converts a report to the JSON/YAML structure. Detail tables
// are dropped unless verbose.
func ConvertReport(report *formatters.Report, options formatters.FormatterOptions) JSONResponse {
	pass, warning, fail := report.StatusCounts()
	results := report.Results
	if !options.Verbose {
		results = stripDetails(results)
	}
	if results == nil {
		results = []result.Result{}
	}
	return JSONResponse{
		Title:       report.HeaderTitle(),
		RunID:       report.RunID,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Dataset:     DatasetSummary{Crashes: report.CrashCount, Persons: report.PersonCount},
		Summary: CheckSummary{
			Checks:      len(report.Results),
			Passed:      pass,
			Warnings:    warning,
			Failed:      fail,
			TotalIssues: result.TotalIssues(report.Results),
			Suppressed:  len(report.Suppressed),
		},
		Results:        results,
		Suppressed:     report.Suppressed,
		Classification: report.Classification,
	}
}

func stripDetails(results []result.Result) []result.Result {
	if results == nil {
		return nil
	}
	out := make([]result.Result, len(results))
	for i, r := range results {
		r.Details = nil
		r.SubResults = stripDetails(r.SubResults)
		out[i] = r
	}
	return out
}

// IssueRow is one flagged record in the flat issue listing
type IssueRow struct {
	CheckID   string
	CheckName string
	CrashID   string
	Issue     string
	Details   string
}

// IssueRows flattens results into one row per flagged record. The first
// detail column is taken as the crash id; the others become key=value
// pairs. A result with issues but no details yields a single row.
func IssueRows(results []result.Result) []IssueRow {
	var rows []IssueRow
	for _, r := range result.Flatten(results) {
		if r.Details.Len() > 0 {
			for _, row := range r.Details.Rows {
				var parts []string
				for i := 1; i < len(r.Details.Columns) && i < len(row); i++ {
					parts = append(parts, r.Details.Columns[i]+"="+row[i])
				}
				rows = append(rows, IssueRow{
					CheckID:   r.ID,
					CheckName: r.Name,
					CrashID:   row[0],
					Issue:     r.Summary,
					Details:   strings.Join(parts, "; "),
				})
			}
			continue
		}
		if r.IssueCount > 0 && len(r.SubResults) == 0 {
			rows = append(rows, IssueRow{CheckID: r.ID, CheckName: r.Name, Issue: r.Summary})
		}
	}
	return rows
}
