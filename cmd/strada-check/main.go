// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"strada-check/internal/config"
	"strada-check/internal/version"

	// Import formatters to register them
	_ "strada-check/internal/formatters/csv"
	_ "strada-check/internal/formatters/json"
	_ "strada-check/internal/formatters/junit"
	_ "strada-check/internal/formatters/text"
	_ "strada-check/internal/formatters/yaml"
)

// errIssuesFound makes verify exit with status 2 under --fail-on-issues
var errIssuesFound = errors.New("verification found issues")

// app carries the global flags and the state shared by every command
type app struct {
	configFile  string
	profileName string
	verbose     bool
	debug       bool
	noColor     bool

	logger *zap.Logger
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strada-check",
		Short: "STRADA data quality assessment toolkit",
		Long: `strada-check verifies Swedish STRADA crash exports and classifies
micromobility road users.

It reads the crashes (Olyckor) and persons (Personer) tables as CSV or Excel,
runs the generic checks G1-G6 and, for cycling datasets, the domain checks
C1-C3, and writes reports in text, CSV, JSON, YAML or JUnit form.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Path to configuration file (YAML)")
	pf.StringVar(&a.profileName, "profile", "", "Profile name to use from config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "List every flagged record in reports")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging and step tracing")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newVerifyCmd(a),
		newClassifyCmd(a),
		newPreprocessCmd(a),
		newChecksCmd(a),
		newProfilesCmd(a),
		newWebCmd(a),
		newSuppressCmd(a),
		newRunsCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

// setup builds the logger, loads the configuration and decides on colour.
// The web server logs requests at info; one-shot commands only warn.
func (a *app) setup(cmd *cobra.Command) error {
	if a.logger == nil {
		level := zapcore.WarnLevel
		if cmd.Name() == "web" {
			level = zapcore.InfoLevel
		}
		if a.debug {
			level = zapcore.DebugLevel
		}
		logger, err := newLogger(level)
		if err != nil {
			return err
		}
		a.logger = logger
	}

	if a.configFile != "" {
		cfg, err := config.LoadConfig(a.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
	} else {
		a.cfg = config.LoadConfigOrDefault("")
	}

	if a.noColor || a.cfg.Defaults.NoColor || !isTerminal(a.stdout) || os.Getenv("CI") != "" {
		color.NoColor = true
	}
	return nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// isTerminal reports whether w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errIssuesFound) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
