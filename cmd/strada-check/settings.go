// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strada-check/internal/config"
	"strada-check/internal/observability"
	"strada-check/internal/paths"
	"strada-check/internal/store"
	"strada-check/internal/suppressions"
)

// runFlags are the flags shared by verify and classify
type runFlags struct {
	format          string
	checks          string
	cycling         bool
	yearStart       int
	yearEnd         int
	outputDir       string
	suppressionFile string
	noSuppressions  bool
	database        string
}

func (f *runFlags) registerYears(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.yearStart, "year-start", 0, "Only keep rows from this year on (inclusive)")
	cmd.Flags().IntVar(&f.yearEnd, "year-end", 0, "Only keep rows up to this year (inclusive)")
}

func (f *runFlags) registerOutput(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringVar(&f.format, "format", defaultFormat, "Report formats, comma separated: text, csv, json, yaml, junit ('both' = text,csv)")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for the report files (default: defaults.output_dir)")
}

func (f *runFlags) registerStorage(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.suppressionFile, "suppressions", "", "Path to suppression rules file (default: suppressions.yaml in the config directory)")
	cmd.Flags().BoolVar(&f.noSuppressions, "no-suppressions", false, "Report every finding, ignoring suppression rules")
	cmd.Flags().StringVar(&f.database, "sqlite", "", "Save the run into this SQLite database")
}

// resolve applies defaults < config file < profile < command-line flags
func (a *app) resolve(cmd *cobra.Command, f *runFlags) (config.RunSettings, error) {
	var profile *config.Profile
	if a.profileName != "" {
		if profile = a.cfg.GetProfile(a.profileName); profile == nil {
			return config.RunSettings{}, fmt.Errorf("profile %q not found (available: %s)",
				a.profileName, strings.Join(a.cfg.ListProfiles(), ", "))
		}
	}
	run := a.cfg.Effective(profile)

	flags := cmd.Flags()
	if flags.Changed("format") || (run.Format == "" && f.format != "") {
		run.Format = f.format
	}
	if flags.Changed("checks") {
		run.Checks = f.checks
	}
	if flags.Changed("cycling") {
		run.Domain = f.cycling
	}
	if flags.Changed("year-start") {
		run.YearStart = f.yearStart
	}
	if flags.Changed("year-end") {
		run.YearEnd = f.yearEnd
	}
	if flags.Changed("verbose") {
		run.Verbose = a.verbose
	}
	if flags.Changed("debug") {
		run.Debug = a.debug
	}
	if flags.Changed("no-color") {
		run.NoColor = a.noColor
	}

	if run.YearStart != 0 && run.YearEnd != 0 && run.YearStart > run.YearEnd {
		return config.RunSettings{}, fmt.Errorf("--year-start %d is after --year-end %d", run.YearStart, run.YearEnd)
	}
	return run, nil
}

// formats splits the format list; "both" keeps the text and CSV pair
func formats(value string) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range strings.Split(value, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		names := []string{f}
		if f == "both" {
			names = []string{"text", "csv"}
		}
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

func (a *app) outputDir(f *runFlags) string {
	if f.outputDir != "" {
		return paths.NormalizePath(f.outputDir)
	}
	if a.cfg.Defaults.OutputDir != "" {
		return a.cfg.Defaults.OutputDir
	}
	return "."
}

// observer traces steps to stderr under --debug; otherwise operation
// metrics go through the logger.
func (a *app) observer(run config.RunSettings) *observability.StandardObserver {
	if run.Debug {
		return observability.NewDebugObserver(a.stderr).StandardObserver
	}
	return observability.NewLoggerObserver(observability.ObservabilityMetrics, a.logger)
}

func (a *app) suppressionManager(f *runFlags) *suppressions.SuppressionManager {
	if f.noSuppressions {
		return nil
	}
	return suppressions.NewSuppressionManager(f.suppressionFile)
}

// openStore opens the run database named by --sqlite, or the configured
// database when runs are saved by default. A nil store means no saving.
func (a *app) openStore(f *runFlags) (*store.Store, error) {
	path := f.database
	if path == "" {
		if !a.cfg.Defaults.SaveRuns || a.cfg.Defaults.Database == "" {
			return nil, nil
		}
		path = a.cfg.Defaults.Database
	}
	s, err := store.Open(paths.NormalizePath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	a.logger.Debug("run database opened", zap.String("path", s.Path()))
	return s, nil
}

// databasePath resolves the database used by the runs and web commands
func (a *app) databasePath(flagValue string) string {
	switch {
	case flagValue != "":
		return paths.NormalizePath(flagValue)
	case a.cfg.Defaults.Database != "":
		return a.cfg.Defaults.Database
	default:
		return paths.GetDatabaseFile()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
