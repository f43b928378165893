// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PreprocessOptions selects the workbook sheets and output names. Zero
// values fall back to the STRADA defaults.
type PreprocessOptions struct {
	CrashesSheet string
	PersonsSheet string
	CrashesName  string
	PersonsName  string
	// YearStart and YearEnd, when both set, add a year-filtered pair
	YearStart int
	YearEnd   int
	Columns   Columns
}

// ConvertedFile is one CSV written by Preprocess
type ConvertedFile struct {
	Path string
	Rows int
}

// PreprocessResult lists the files in the order they were written
type PreprocessResult struct {
	Crashes         ConvertedFile
	Persons         ConvertedFile
	CrashesFiltered *ConvertedFile
	PersonsFiltered *ConvertedFile
}

// Files returns every written file
func (r *PreprocessResult) Files() []ConvertedFile {
	files := []ConvertedFile{r.Crashes, r.Persons}
	if r.CrashesFiltered != nil {
		files = append(files, *r.CrashesFiltered)
	}
	if r.PersonsFiltered != nil {
		files = append(files, *r.PersonsFiltered)
	}
	return files
}

func (o PreprocessOptions) withDefaults() PreprocessOptions {
	if o.CrashesSheet == "" {
		o.CrashesSheet = "Olyckor"
	}
	if o.PersonsSheet == "" {
		o.PersonsSheet = "Personer"
	}
	if o.CrashesName == "" {
		o.CrashesName = "Olyckor.csv"
	}
	if o.PersonsName == "" {
		o.PersonsName = "Personer.csv"
	}
	o.Columns = o.Columns.WithDefaults()
	return o
}

// Preprocess converts the crashes and persons sheets of a STRADA workbook to
// BOM-prefixed CSV files in outputDir. With a year range it also writes a
// filtered pair suffixed "-<start>-<end>".
func Preprocess(excelPath, outputDir string, opts PreprocessOptions) (*PreprocessResult, error) {
	opts = opts.withDefaults()
	if (opts.YearStart == 0) != (opts.YearEnd == 0) {
		return nil, fmt.Errorf("year filtering needs both a start and an end year")
	}
	if opts.YearStart > opts.YearEnd {
		return nil, fmt.Errorf("start year %d is after end year %d", opts.YearStart, opts.YearEnd)
	}

	res := &PreprocessResult{}
	sheets := []struct {
		sheet, name string
		full        *ConvertedFile
		filtered    **ConvertedFile
	}{
		{opts.CrashesSheet, opts.CrashesName, &res.Crashes, &res.CrashesFiltered},
		{opts.PersonsSheet, opts.PersonsName, &res.Persons, &res.PersonsFiltered},
	}

	for _, s := range sheets {
		header, rows, err := ReadExcel(excelPath, s.sheet)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, s.name)
		if err := WriteCSVFile(path, header, Records(header, rows)); err != nil {
			return nil, err
		}
		*s.full = ConvertedFile{Path: path, Rows: len(rows)}

		if opts.YearStart == 0 {
			continue
		}
		kept := filterRows(rows, opts.Columns.Year, opts.YearStart, opts.YearEnd)
		path = filepath.Join(outputDir, yearSuffixed(s.name, opts.YearStart, opts.YearEnd))
		if err := WriteCSVFile(path, header, Records(header, kept)); err != nil {
			return nil, err
		}
		*s.filtered = &ConvertedFile{Path: path, Rows: len(kept)}
	}
	return res, nil
}

func filterRows(rows []map[string]string, yearColumn string, start, end int) []map[string]string {
	var kept []map[string]string
	for _, row := range rows {
		if inRange(row[yearColumn], start, end) {
			kept = append(kept, row)
		}
	}
	return kept
}

func yearSuffixed(name string, start, end int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d-%d%s", strings.TrimSuffix(name, ext), start, end, ext)
}
