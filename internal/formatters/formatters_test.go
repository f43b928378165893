// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters_test

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"strada-check/internal/classify"
	"strada-check/internal/formatters"
	_ "strada-check/internal/formatters/csv"
	_ "strada-check/internal/formatters/json"
	"strada-check/internal/formatters/junit"
	"strada-check/internal/formatters/shared"
	_ "strada-check/internal/formatters/text"
	_ "strada-check/internal/formatters/yaml"
	"strada-check/internal/result"
	"strada-check/internal/suppressions"
)

func sampleReport() *formatters.Report {
	g1 := result.NewTable("Olycksnummer", "Found_in")
	g1.Add("101", "Olyckor only")
	g1.Add("=cmd", "Personer only")

	sub1 := result.New("G3.1", "All categories missing", "1 persons", 1, func() *result.Table {
		t := result.NewTable("Olycksnummer")
		t.Add("300")
		return t
	}())
	sub2 := result.New("G3.2", "P vs S", "No mismatches", 0, nil)

	return &formatters.Report{
		RunID:       "run-1",
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		CrashCount:  12345,
		PersonCount: 23456,
		Results: []result.Result{
			result.New("G1", "Crash-ID consistency", "2 mismatched ids", 2, g1),
			result.Aggregate("G3", "Road-user category", []result.Result{sub1, sub2}),
			result.Failed("C1", "Solo validation", "Missing columns: [Olyckstyp]"),
		},
		Suppressed: []suppressions.Suppressed{
			{CheckID: "G1", Columns: []string{"Olycksnummer", "Found_in"}, Row: []string{"999", "Olyckor only"}, RuleID: "SUP-00000001", Reason: "known"},
		},
	}
}

func TestRegistry_AllFormatsRegistered(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "junit", "text", "yaml"}, formatters.List())

	info := formatters.GetFormatInfo("junit")
	assert.Equal(t, ".xml", info.Extension)
	assert.Equal(t, "application/xml", info.MimeType)

	assert.Len(t, formatters.GetSupportedFormats(), 5)
	assert.Equal(t, formatters.FormatInfo{}, formatters.GetFormatInfo("sarif"))
}

func TestExport_UnknownFormat(t *testing.T) {
	_, err := formatters.Export("pdf", sampleReport(), formatters.FormatterOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available formats: csv, json")
}

func TestExportForWeb(t *testing.T) {
	content, mime, filename, err := formatters.ExportForWeb("csv", sampleReport(), formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", mime)
	assert.Equal(t, "strada-check-report.csv", filename)
	assert.NotEmpty(t, content)
}

func TestText(t *testing.T) {
	out, err := formatters.Export("text", sampleReport(), formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)

	assert.Contains(t, out, formatters.DefaultTitle)
	assert.Contains(t, out, "Crashes (Olyckor):  12,345")
	assert.Contains(t, out, "G1       ⚠ warning         2  Crash-ID consistency")
	assert.Contains(t, out, "  G3.1   ⚠ warning         1  All categories missing")
	assert.Contains(t, out, "✗ fail")
	assert.Contains(t, out, "3 checks: 0 passed, 2 warnings, 1 failed, 3 issues in total")
	assert.Contains(t, out, "Flagged records (2):")
	assert.Contains(t, out, "101, Olyckor only")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes with NoColor")
	assert.NotContains(t, out, "Suppressed records")
	assert.True(t, strings.HasSuffix(out, strings.Repeat("=", 80)+"\n"))
}

func TestText_TruncatesRows(t *testing.T) {
	table := result.NewTable("Olycksnummer")
	for i := 0; i < 5; i++ {
		table.Add("x")
	}
	report := &formatters.Report{Results: []result.Result{result.New("C2", "Cykel presence", "5", 5, table)}}

	out, err := formatters.Export("text", report, formatters.FormatterOptions{NoColor: true, MaxRows: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "... 3 more")

	out, err = formatters.Export("text", report, formatters.FormatterOptions{NoColor: true, MaxRows: 2, Verbose: true})
	require.NoError(t, err)
	assert.NotContains(t, out, "more (use")
}

func TestText_Classification(t *testing.T) {
	rules := classify.DefaultRules()
	outcome := &classify.Outcome{
		Persons: []classify.Classified{
			{MicromobilityType: classify.TypeEScooter},
			{MicromobilityType: classify.TypeConventional},
			{MicromobilityType: classify.TypeNotApplicable},
		},
		Stats: classify.Stats{TotalCycling: 2, SoloCrashes: 2, StepCounts: map[string]int{classify.StepPoliceSolo: 1, classify.StepDefault: 1}},
	}
	summary := formatters.NewClassificationSummary(outcome, rules)
	require.Len(t, summary.TypeCounts, len(rules.Priority))
	assert.Equal(t, formatters.TypeCount{Type: classify.TypeEScooter, Count: 1}, summary.TypeCounts[0])

	out, err := formatters.Export("text", &formatters.Report{Classification: summary}, formatters.FormatterOptions{NoColor: true})
	require.NoError(t, err)
	assert.Contains(t, out, "Cycling persons: 2")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, classify.StepPoliceSolo)
}

func TestCSV(t *testing.T) {
	out, err := formatters.Export("csv", sampleReport(), formatters.FormatterOptions{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"check_id", "check_name", "crash_id", "issue", "details"}, records[0])
	assert.Equal(t, []string{"G1", "Crash-ID consistency", "101", "2 mismatched ids", "Found_in=Olyckor only"}, records[1])
	assert.Equal(t, "'=cmd", records[2][2], "formula prefix neutralised")
	assert.Equal(t, "G3.1", records[3][0])

	verbose, err := formatters.Export("csv", sampleReport(), formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, verbose, "Suppressed by SUP-00000001: known")
}

func TestJSON(t *testing.T) {
	out, err := formatters.Export("json", sampleReport(), formatters.FormatterOptions{})
	require.NoError(t, err)

	var resp shared.JSONResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, shared.CheckSummary{Checks: 3, Passed: 0, Warnings: 2, Failed: 1, TotalIssues: 3, Suppressed: 1}, resp.Summary)
	assert.Equal(t, 12345, resp.Dataset.Crashes)
	require.Len(t, resp.Results, 3)
	assert.Nil(t, resp.Results[0].Details, "details only in verbose mode")
	assert.Equal(t, result.StatusFail, resp.Results[2].Status)

	out, err = formatters.Export("json", sampleReport(), formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Results[0].Details)
	assert.Equal(t, 2, resp.Results[0].Details.Len())
}

func TestJSON_EmptyResults(t *testing.T) {
	out, err := formatters.Export("json", &formatters.Report{}, formatters.FormatterOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, `"results": []`)
}

func TestYAML(t *testing.T) {
	out, err := formatters.Export("yaml", sampleReport(), formatters.FormatterOptions{Verbose: true})
	require.NoError(t, err)

	var resp shared.JSONResponse
	require.NoError(t, yaml.Unmarshal([]byte(out), &resp))
	assert.Equal(t, formatters.DefaultTitle, resp.Title)
	require.Len(t, resp.Results, 3)
	require.Len(t, resp.Results[1].SubResults, 2)
	assert.Equal(t, "G3.1", resp.Results[1].SubResults[0].ID)
	require.Len(t, resp.Suppressed, 1)
}

func TestJUnit(t *testing.T) {
	out, err := formatters.Export("junit", sampleReport(), formatters.FormatterOptions{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, xml.Header))

	var suites junit.TestSuites
	require.NoError(t, xml.Unmarshal([]byte(out), &suites))
	// G1, G3, G3.1, G3.2, C1 plus one suppressed record
	assert.Equal(t, 6, suites.Tests)
	assert.Equal(t, 3, suites.Failures)
	assert.Equal(t, 1, suites.Errors)

	require.Len(t, suites.TestSuites, 2)
	verification := suites.TestSuites[1]
	assert.Equal(t, "verification", verification.Name)
	require.Len(t, verification.TestCases, 5)
	require.NotNil(t, verification.TestCases[0].Failure)
	assert.Contains(t, verification.TestCases[0].Failure.Content, "101, Olyckor only")
	assert.Nil(t, verification.TestCases[3].Failure, "G3.2 passes")
	require.NotNil(t, verification.TestCases[4].Error)
}

func TestIssueRows(t *testing.T) {
	rows := shared.IssueRows(sampleReport().Results)
	require.Len(t, rows, 3)
	assert.Equal(t, "300", rows[2].CrashID)
	assert.Empty(t, rows[2].Details)

	noDetails := []result.Result{{ID: "X", Name: "x", Status: result.StatusWarning, IssueCount: 4, Summary: "4 issues"}}
	rows = shared.IssueRows(noDetails)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].CrashID)
}
