// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strada-check/internal/core"
	"strada-check/internal/dataset"
	"strada-check/internal/formatters"
	"strada-check/internal/store"
)

const (
	defaultAugmentedName = "Personer-analysis-ready.csv"
	classifyReportName   = "micromobility_classification_report"
	classifyReportTitle  = "Micromobility Classification Report"
)

type classifyFlags struct {
	runFlags
	persons    string
	outputName string
}

func newClassifyCmd(a *app) *cobra.Command {
	f := &classifyFlags{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify micromobility types and annotate conflict partners",
		Long: `Assigns a micromobility type to every cycling road user in the persons
table, verifies the assignments against the recorded sub-groups and writes
the persons table with four extra columns: Micromobility_type,
Classification_confidence, Classification_step and Conflict_partner.

Example:
  strada-check classify --persons Personer.csv --output-dir ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClassify(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.persons, "persons", "", "Path to the persons (Personer) table")
	cmd.Flags().StringVar(&f.outputName, "output-name", defaultAugmentedName, "File name of the augmented persons CSV")
	f.registerYears(cmd)
	f.registerOutput(cmd, "text")
	f.registerStorage(cmd)
	_ = cmd.MarkFlagRequired("persons")
	return cmd
}

func (a *app) runClassify(cmd *cobra.Command, f *classifyFlags) error {
	run, err := a.resolve(cmd, &f.runFlags)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	bold.Fprintln(w, "Loading data...")
	persons, err := dataset.LoadPersons(f.persons, a.cfg.Columns.WithDefaults())
	if err != nil {
		return fmt.Errorf("failed to load persons: %w", err)
	}
	fmt.Fprintf(w, "  Persons: %d\n", persons.Len())

	cc := core.BuildClassifyConfig(a.cfg, run)
	cc.Observer = a.observer(run)
	cc.SuppressionManager = a.suppressionManager(&f.runFlags)
	defer cc.Observer.Sync()

	bold.Fprintln(w, "Classifying micromobility types...")
	res, err := core.Classify(cmd.Context(), persons, cc)
	if err != nil {
		return err
	}

	report := res.Report(classifyReportTitle)
	printClassification(w, report.Classification)
	for _, v := range res.Outcome.Verification {
		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(v.Status), v.ID, v.Summary)
	}

	dir := a.outputDir(&f.runFlags)
	outPath := filepath.Join(dir, f.outputName)
	if err := res.Outcome.WriteAugmentedCSV(outPath); err != nil {
		return err
	}
	report.Classification.OutputPath = outPath

	written, err := writeReports(report, formats(run.Format), dir, classifyReportName, formatterOptions(run))
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	printWritten(w, "Saved: ", []string{outPath})
	printWritten(w, "Report:", written)

	a.saveClassification(cmd.Context(), &f.runFlags, res, filepath.Base(f.persons))
	green.Fprintln(w, "\n✓ Classification complete.")
	return nil
}

func printClassification(w io.Writer, c *formatters.ClassificationSummary) {
	if c == nil || c.Stats.TotalCycling == 0 {
		fmt.Fprintln(w, "\n  No cycling persons found.")
		return
	}
	fmt.Fprintln(w)
	bold.Fprintln(w, "Micromobility Classification")
	fmt.Fprintf(w, "  %-28s %8s %7s\n", "Type", "Count", "%")
	for _, tc := range c.TypeCounts {
		if tc.Count == 0 {
			continue
		}
		pct := float64(tc.Count) / float64(c.Stats.TotalCycling) * 100
		fmt.Fprintf(w, "  %s %8d %6.1f%%\n", cyan.Sprintf("%-28s", tc.Type), tc.Count, pct)
	}
	if c.Ambiguities > 0 {
		yellow.Fprintf(w, "\n⚠ %d entries matched multiple categories\n", c.Ambiguities)
	}
}

func (a *app) saveClassification(ctx context.Context, f *runFlags, res *core.ClassifyResult, source string) {
	s, err := a.openStore(f)
	if err != nil {
		a.logger.Warn("run not saved", zap.Error(err))
		return
	}
	if s == nil {
		return
	}
	defer s.Close()

	err = s.SaveClassification(ctx, store.Run{
		ID:        res.RunID,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
		Source:    source,
	}, res.Outcome)
	if err != nil {
		a.logger.Warn("failed to save classification run", zap.String("run_id", res.RunID), zap.Error(err))
		return
	}
	a.logger.Info("classification run saved", zap.String("run_id", res.RunID), zap.String("database", s.Path()))
}
