// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSV parses a UTF-8 CSV stream, with or without a byte-order mark.
// Rows are returned keyed by header name.
func ReadCSV(r io.Reader) ([]string, []map[string]string, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty CSV input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row %d: %w", len(rows)+2, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func readCSVFile(path string) ([]string, []map[string]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	header, rows, err := ReadCSV(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return header, rows, nil
}

// LoadCrashes reads the crashes table from a CSV file or the first sheet
// of a workbook
func LoadCrashes(path string, cols Columns) (*CrashTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return NewCrashTable(header, rows, cols), nil
}

// LoadPersons reads the persons table from a CSV file or the first sheet
// of a workbook
func LoadPersons(path string, cols Columns) (*PersonTable, error) {
	header, rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return NewPersonTable(header, rows, cols), nil
}

// LoadPair reads both tables
func LoadPair(crashesPath, personsPath string, cols Columns) (*Dataset, error) {
	cols = cols.WithDefaults()

	crashes, err := LoadCrashes(crashesPath, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to load crashes: %w", err)
	}
	persons, err := LoadPersons(personsPath, cols)
	if err != nil {
		return nil, fmt.Errorf("failed to load persons: %w", err)
	}
	return &Dataset{Crashes: crashes, Persons: persons, Columns: cols}, nil
}

func readTable(path string) ([]string, []map[string]string, error) {
	if IsExcel(path) {
		return ReadExcel(path, "")
	}
	return readCSVFile(path)
}
