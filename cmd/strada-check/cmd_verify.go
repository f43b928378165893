// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strada-check/internal/core"
	"strada-check/internal/dataset"
	"strada-check/internal/store"
)

type verifyFlags struct {
	runFlags
	crashes      string
	persons      string
	parallel     int
	failOnIssues bool
}

func newVerifyCmd(a *app) *cobra.Command {
	f := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run data-quality checks on a crashes/persons pair",
		Long: `Runs the generic checks G1-G6 over the crashes and persons tables and,
with --cycling, the cycling checks C1-C3. Inputs may be CSV (with or
without a byte-order mark) or Excel workbooks.

Examples:
  strada-check verify --crashes Olyckor.csv --persons Personer.csv
  strada-check verify --crashes Olyckor.csv --persons Personer.csv --cycling --format both
  strada-check verify --crashes Olyckor.csv --persons Personer.csv --checks G1,G4,C2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.crashes, "crashes", "", "Path to the crashes (Olyckor) table")
	cmd.Flags().StringVar(&f.persons, "persons", "", "Path to the persons (Personer) table")
	cmd.Flags().StringVar(&f.checks, "checks", "", "Comma-separated check ids to run (default: all)")
	cmd.Flags().BoolVar(&f.cycling, "cycling", false, "Include the cycling checks C1-C3")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "Run up to this many checks concurrently")
	cmd.Flags().BoolVar(&f.failOnIssues, "fail-on-issues", false, "Exit with status 2 when any check reports issues")
	f.registerYears(cmd)
	f.registerOutput(cmd, "text")
	f.registerStorage(cmd)
	_ = cmd.MarkFlagRequired("crashes")
	_ = cmd.MarkFlagRequired("persons")
	return cmd
}

func (a *app) runVerify(cmd *cobra.Command, f *verifyFlags) error {
	run, err := a.resolve(cmd, &f.runFlags)
	if err != nil {
		return err
	}
	names := formats(run.Format)
	w := cmd.OutOrStdout()

	bold.Fprintln(w, "Loading data...")
	ds, err := dataset.LoadPair(f.crashes, f.persons, a.cfg.Columns)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Crashes: %d   Persons: %d\n", ds.Crashes.Len(), ds.Persons.Len())

	vc := core.BuildVerifyConfig(a.cfg, run)
	if cmd.Flags().Changed("parallel") {
		vc.Parallel = f.parallel
	}
	vc.Observer = a.observer(run)
	vc.SuppressionManager = a.suppressionManager(&f.runFlags)
	defer vc.Observer.Sync()

	bold.Fprintln(w, "Running checks...")
	res, err := core.Verify(cmd.Context(), ds, vc)
	if err != nil {
		return err
	}
	printSummary(w, "Verification Summary", res.Results)
	if len(res.Suppressed) > 0 {
		fmt.Fprintf(w, "\n  %d findings suppressed\n", len(res.Suppressed))
	}

	report := res.Report("")
	written, err := writeReports(report, names, a.outputDir(&f.runFlags), "strada_quality_report", formatterOptions(run))
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	printWritten(w, "Report:", written)

	a.saveVerification(cmd.Context(), &f.runFlags, res, filepath.Base(f.crashes)+", "+filepath.Base(f.persons))

	total := res.TotalIssues()
	if total == 0 {
		green.Fprintln(w, "\n✓ All checks passed!")
		return nil
	}
	yellow.Fprintf(w, "\n⚠ %d total issues found. See reports for details.\n", total)
	if f.failOnIssues {
		return fmt.Errorf("%w: %d issues", errIssuesFound, total)
	}
	return nil
}

// saveVerification records the run when a database is configured. Failures
// are logged and do not fail the command.
func (a *app) saveVerification(ctx context.Context, f *runFlags, res *core.VerifyResult, source string) {
	s, err := a.openStore(f)
	if err != nil {
		a.logger.Warn("run not saved", zap.Error(err))
		return
	}
	if s == nil {
		return
	}
	defer s.Close()

	err = s.SaveVerification(ctx, store.Run{
		ID:          res.RunID,
		StartedAt:   res.StartedAt,
		Duration:    res.Duration,
		CrashCount:  res.CrashCount,
		PersonCount: res.PersonCount,
		Source:      source,
	}, res.Results)
	if err != nil {
		a.logger.Warn("failed to save verification run", zap.String("run_id", res.RunID), zap.Error(err))
		return
	}
	a.logger.Info("verification run saved", zap.String("run_id", res.RunID), zap.String("database", s.Path()))
}
