// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"

	"strada-check/internal/dataset"
	"strada-check/internal/observability"
	"strada-check/internal/result"
)

// Options controls which checks run and how
type Options struct {
	// IncludeDomain adds the cycling-specific checks
	IncludeDomain bool
	// Selected restricts output to these ids. Unknown ids are ignored.
	Selected []string
	// Parallel bounds concurrent checks; 0 or 1 runs sequentially
	Parallel int
	Settings Settings
	Observer *observability.StandardObserver
}

// ParseCheckIDs splits a comma-separated id list. Empty input or "all"
// selects every check and returns nil.
func ParseCheckIDs(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "all") {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(value, ",") {
		if id := strings.ToUpper(strings.TrimSpace(part)); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Plan returns the definitions Run would execute, in order
func Plan(opts Options) []Definition {
	selected := make(map[string]bool, len(opts.Selected))
	for _, id := range opts.Selected {
		selected[strings.ToUpper(strings.TrimSpace(id))] = true
	}

	var plan []Definition
	for _, def := range registry {
		if def.Domain && !opts.IncludeDomain {
			continue
		}
		if len(selected) > 0 && !selected[def.ID] {
			continue
		}
		plan = append(plan, def)
	}
	return plan
}

// Run executes the planned checks against ds and returns results in
// registry order. A check that cannot run or panics yields a fail result;
// it never stops the others. Only context cancellation returns an error.
func Run(ctx context.Context, ds *dataset.Dataset, opts Options) ([]result.Result, error) {
	in := Input{
		Crashes:  ds.Crashes,
		Persons:  ds.Persons,
		Columns:  ds.Columns.WithDefaults(),
		Settings: opts.Settings.WithDefaults(),
	}
	plan := Plan(opts)
	results := make([]result.Result, len(plan))

	finish := opts.Observer.StartTiming("checks", "run_checks", "")

	eg, egCtx := errgroup.WithContext(ctx)
	if opts.Parallel > 1 {
		eg.SetLimit(opts.Parallel)
	} else {
		eg.SetLimit(1)
	}
	for i, def := range plan {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = runOne(def, in, opts.Observer)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		finish(false, map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("check run cancelled: %w", err)
	}

	finish(true, map[string]interface{}{
		"checks":       len(results),
		"total_issues": result.TotalIssues(results),
	})
	return results, nil
}

func runOne(def Definition, in Input, observer *observability.StandardObserver) (res result.Result) {
	finish := observer.StartTiming("checks", "run_check", def.ID)

	defer func() {
		if r := recover(); r != nil {
			res = result.Failed(def.ID, def.Name, fmt.Sprintf("Check failed: %v", r))
			observer.LogOperation(observability.StandardObservabilityData{
				Component: "checks",
				Operation: "run_check",
				Source:    def.ID,
				Error:     fmt.Sprintf("%v", r),
				Metadata:  map[string]interface{}{"stack": string(debug.Stack())},
			})
		}
	}()

	if missing := def.missingColumns(in); len(missing) > 0 {
		res = result.Failed(def.ID, def.Name, fmt.Sprintf("Missing columns: [%s]", strings.Join(missing, ", ")))
		finish(false, map[string]interface{}{"missing_columns": missing})
		return res
	}

	res = def.Run(in)
	finish(res.Status != result.StatusFail, map[string]interface{}{
		"status":      string(res.Status),
		"issue_count": res.IssueCount,
	})
	return res
}
