// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"fmt"
	"time"

	"strada-check/internal/classify"
	"strada-check/internal/dataset"
	"strada-check/internal/formatters"
	"strada-check/internal/observability"
	"strada-check/internal/suppressions"
)

// ClassifyConfig holds configuration for a classification run.
type ClassifyConfig struct {
	Rules     classify.Rules
	Columns   dataset.Columns
	YearStart int
	YearEnd   int
	Observer  *observability.StandardObserver
	// SuppressionManager, when non-nil, is applied to the CL checks.
	SuppressionManager *suppressions.SuppressionManager
}

// ClassifyResult holds the outcome of a classification run.
type ClassifyResult struct {
	RunID      string
	Outcome    *classify.Outcome
	Rules      classify.Rules
	Suppressed []suppressions.Suppressed
	StartedAt  time.Time
	Duration   time.Duration
}

// Classify runs the micromobility pipeline over persons and verifies the
// assignments.
func Classify(ctx context.Context, persons *dataset.PersonTable, cfg ClassifyConfig) (*ClassifyResult, error) {
	if persons == nil {
		return nil, fmt.Errorf("classify needs a persons table")
	}
	cols := cfg.Columns.WithDefaults()
	if err := dataset.RequireColumns(persons.Columns, cols.CrashID, cols.CategoryMain); err != nil {
		return nil, fmt.Errorf("cannot classify persons: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("classification cancelled: %w", err)
	}

	started := time.Now()
	if cfg.YearStart != 0 || cfg.YearEnd != 0 {
		persons = persons.FilterByYear(cfg.YearStart, cfg.YearEnd)
	}

	rules := cfg.Rules.WithDefaults()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classification rules: %w", err)
	}

	outcome := classify.NewPipeline(rules, cfg.Observer).Run(persons, cols)

	var suppressed []suppressions.Suppressed
	if cfg.SuppressionManager != nil {
		outcome.Verification, suppressed = cfg.SuppressionManager.Apply(outcome.Verification)
	}

	return &ClassifyResult{
		RunID:      runID(cfg.Observer),
		Outcome:    outcome,
		Rules:      rules,
		Suppressed: suppressed,
		StartedAt:  started,
		Duration:   time.Since(started),
	}, nil
}

// Report wraps the verification of the assignments and the type distribution
func (r *ClassifyResult) Report(title string) *formatters.Report {
	return &formatters.Report{
		Title:          title,
		RunID:          r.RunID,
		GeneratedAt:    r.StartedAt,
		PersonCount:    len(r.Outcome.Persons),
		Results:        r.Outcome.Verification,
		Suppressed:     r.Suppressed,
		Classification: formatters.NewClassificationSummary(r.Outcome, r.Rules),
	}
}
