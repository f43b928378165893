// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"time"

	"strada-check/internal/checks"
	"strada-check/internal/dataset"
	"strada-check/internal/formatters"
	"strada-check/internal/observability"
	"strada-check/internal/result"
	"strada-check/internal/suppressions"
)

// VerifyConfig holds configuration for a verification run.
type VerifyConfig struct {
	// Checks restricts the run to these ids; nil runs everything
	Checks        []string
	IncludeDomain bool
	Parallel      int
	// YearStart and YearEnd filter both tables first when non-zero
	YearStart int
	YearEnd   int
	Settings  checks.Settings
	Observer  *observability.StandardObserver
	// SuppressionManager, when non-nil, is applied to the results before returning.
	SuppressionManager *suppressions.SuppressionManager
}

// VerifyResult holds the results of a verification run.
type VerifyResult struct {
	RunID       string
	Results     []result.Result
	Suppressed  []suppressions.Suppressed
	CrashCount  int
	PersonCount int
	StartedAt   time.Time
	Duration    time.Duration
}

// Verify runs the selected checks over ds. This is the logic shared by the
// CLI and the web server.
func Verify(ctx context.Context, ds *dataset.Dataset, cfg VerifyConfig) (*VerifyResult, error) {
	if ds == nil || ds.Crashes == nil || ds.Persons == nil {
		return nil, fmt.Errorf("verify needs both a crashes and a persons table")
	}
	started := time.Now()
	if cfg.YearStart != 0 || cfg.YearEnd != 0 {
		ds = ds.FilterByYear(cfg.YearStart, cfg.YearEnd)
	}

	debug := observability.Debug(cfg.Observer)
	var finishStep func(bool, string)
	if debug != nil {
		finishStep = debug.StartStep("core", "verify", fmt.Sprintf("%d crashes, %d persons", ds.Crashes.Len(), ds.Persons.Len()))
	}

	results, err := checks.Run(ctx, ds, checks.Options{
		IncludeDomain: cfg.IncludeDomain,
		Selected:      cfg.Checks,
		Parallel:      cfg.Parallel,
		Settings:      cfg.Settings,
		Observer:      cfg.Observer,
	})
	if finishStep != nil {
		finishStep(err == nil, "")
	}
	if err != nil {
		return nil, err
	}

	var suppressed []suppressions.Suppressed
	if cfg.SuppressionManager != nil {
		results, suppressed = cfg.SuppressionManager.Apply(results)
	}

	return &VerifyResult{
		RunID:       runID(cfg.Observer),
		Results:     results,
		Suppressed:  suppressed,
		CrashCount:  ds.Crashes.Len(),
		PersonCount: ds.Persons.Len(),
		StartedAt:   started,
		Duration:    time.Since(started),
	}, nil
}

// TotalIssues sums the top-level issue counts
func (r *VerifyResult) TotalIssues() int {
	return result.TotalIssues(r.Results)
}

// Report wraps the result in the envelope the formatters render
func (r *VerifyResult) Report(title string) *formatters.Report {
	return &formatters.Report{
		Title:       title,
		RunID:       r.RunID,
		GeneratedAt: r.StartedAt,
		CrashCount:  r.CrashCount,
		PersonCount: r.PersonCount,
		Results:     r.Results,
		Suppressed:  r.Suppressed,
	}
}

// ParseCheckIDs converts a comma-separated id list into a selection.
// "all" or an empty string selects every check.
func ParseCheckIDs(value string) []string {
	return checks.ParseCheckIDs(value)
}
