// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"strada-check/internal/dataset"
	"strada-check/internal/paths"
)

type preprocessFlags struct {
	excelFile    string
	outputDir    string
	yearStart    int
	yearEnd      int
	crashesSheet string
	personsSheet string
}

func newPreprocessCmd(a *app) *cobra.Command {
	f := &preprocessFlags{}
	cmd := &cobra.Command{
		Use:   "preprocess",
		Short: "Convert a STRADA Excel workbook to CSV",
		Long: `Converts the crashes and persons sheets of a STRADA workbook to UTF-8 CSV
files with a byte-order mark. In-cell line breaks are replaced by spaces.
With both --year-start and --year-end an additional year-filtered pair is
written with a -<start>-<end> suffix.

Example:
  strada-check preprocess --excel-file strada.xlsx --output-dir ./out --year-start 2016 --year-end 2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPreprocess(cmd, f)
		},
	}
	cmd.Flags().StringVarP(&f.excelFile, "excel-file", "e", "", "Path to the STRADA .xlsx workbook")
	cmd.Flags().StringVarP(&f.outputDir, "output-dir", "o", "", "Directory to write the CSV files to")
	cmd.Flags().IntVar(&f.yearStart, "year-start", 0, "First year of the filtered pair")
	cmd.Flags().IntVar(&f.yearEnd, "year-end", 0, "Last year of the filtered pair")
	cmd.Flags().StringVar(&f.crashesSheet, "crashes-sheet", "Olyckor", "Name of the crashes sheet")
	cmd.Flags().StringVar(&f.personsSheet, "persons-sheet", "Personer", "Name of the persons sheet")
	_ = cmd.MarkFlagRequired("excel-file")
	_ = cmd.MarkFlagRequired("output-dir")
	return cmd
}

func (a *app) runPreprocess(cmd *cobra.Command, f *preprocessFlags) error {
	if !dataset.IsExcel(f.excelFile) {
		return fmt.Errorf("%s is not an Excel workbook", f.excelFile)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Reading: %s\n", f.excelFile)

	res, err := dataset.Preprocess(f.excelFile, paths.NormalizePath(f.outputDir), dataset.PreprocessOptions{
		CrashesSheet: f.crashesSheet,
		PersonsSheet: f.personsSheet,
		YearStart:    f.yearStart,
		YearEnd:      f.yearEnd,
		Columns:      a.cfg.Columns,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	bold.Fprintln(w, "Preprocessing Results")
	for _, file := range res.Files() {
		fmt.Fprintf(w, "  %s %10d rows\n", cyan.Sprintf("%-50s", file.Path), file.Rows)
		a.logger.Debug("csv written", zap.String("path", file.Path), zap.Int("rows", file.Rows))
	}
	green.Fprintln(w, "\n✓ Preprocessing complete.")
	return nil
}
