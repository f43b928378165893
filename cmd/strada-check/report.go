// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"strada-check/internal/config"
	"strada-check/internal/formatters"
	"strada-check/internal/result"
)

var (
	bold   = color.New(color.Bold)
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func statusIcon(s result.Status) string {
	switch s {
	case result.StatusPass:
		return green.Sprint(s.Icon())
	case result.StatusWarning:
		return yellow.Sprint(s.Icon())
	default:
		return red.Sprint(s.Icon())
	}
}

func formatterOptions(run config.RunSettings) formatters.FormatterOptions {
	return formatters.FormatterOptions{
		Verbose: run.Verbose,
		NoColor: run.NoColor || color.NoColor,
	}
}

// writeReports renders report once per format into dir/<base><ext> and
// returns the written paths. Files never carry colour codes.
func writeReports(report *formatters.Report, names []string, dir, base string, options formatters.FormatterOptions) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no report format selected")
	}
	for _, name := range names {
		if _, ok := formatters.Get(name); !ok {
			return nil, fmt.Errorf("unsupported format %q (available: %s)", name, strings.Join(formatters.List(), ", "))
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	options.NoColor = true
	var written []string
	for _, name := range names {
		content, err := formatters.Export(name, report, options)
		if err != nil {
			return written, fmt.Errorf("failed to render %s report: %w", name, err)
		}
		path := filepath.Join(dir, base+formatters.GetFormatInfo(name).Extension)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// printSummary prints the overview of top-level checks and their sub-checks
func printSummary(w io.Writer, title string, results []result.Result) {
	fmt.Fprintln(w)
	bold.Fprintln(w, title)
	fmt.Fprintf(w, "  %-8s %-6s %8s  %s\n", "Check", "Status", "Issues", "Description")
	for _, r := range results {
		printSummaryLine(w, r, "")
		for _, sub := range r.SubResults {
			printSummaryLine(w, sub, "  ")
		}
	}
}

func printSummaryLine(w io.Writer, r result.Result, indent string) {
	id := fmt.Sprintf("%-8s", indent+r.ID)
	fmt.Fprintf(w, "  %s %s      %8d  %s\n", cyan.Sprint(id), statusIcon(r.Status), r.IssueCount, r.Name)
}

func printWritten(w io.Writer, label string, paths []string) {
	for _, p := range paths {
		fmt.Fprintf(w, "  %s %s\n", label, cyan.Sprint(p))
	}
}
