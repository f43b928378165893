// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"encoding/csv"
	"fmt"
	"strings"

	"strada-check/internal/formatters"
	"strada-check/internal/formatters/shared"
)

// Header is the column layout of the issue listing
var Header = []string{"check_id", "check_name", "crash_id", "issue", "details"}

// Formatter implements CSV output formatting: one row per flagged record
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "One row per flagged record for spreadsheet review"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.FormatterOptions) (string, error) {
	var builder strings.Builder
	// Excel needs the BOM to detect UTF-8
	builder.WriteString("\ufeff")

	w := csv.NewWriter(&builder)
	if err := w.Write(Header); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, row := range shared.IssueRows(report.Results) {
		if err := w.Write(sanitizeRow(row.CheckID, row.CheckName, row.CrashID, row.Issue, row.Details)); err != nil {
			return "", fmt.Errorf("error writing CSV row: %w", err)
		}
	}

	if options.Verbose {
		for _, s := range report.Suppressed {
			crashID := ""
			if len(s.Row) > 0 {
				crashID = s.Row[0]
			}
			issue := fmt.Sprintf("Suppressed by %s: %s", s.RuleID, s.Reason)
			if err := w.Write(sanitizeRow(s.CheckID, "", crashID, issue, strings.Join(s.Row, "; "))); err != nil {
				return "", fmt.Errorf("error writing CSV row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("error formatting CSV: %w", err)
	}
	return builder.String(), nil
}

func sanitizeRow(fields ...string) []string {
	for i, field := range fields {
		fields[i] = sanitizeFormulaInjection(field)
	}
	return fields
}

// sanitizeFormulaInjection prefixes values spreadsheets would evaluate as formulas
func sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}

	firstChar := field[0]
	if firstChar == '=' || firstChar == '+' || firstChar == '-' || firstChar == '@' {
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
