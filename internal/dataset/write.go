// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const utf8BOM = "\ufeff"

// WriteCSV writes a header and records with a leading byte-order mark so the
// output opens correctly in spreadsheet tools.
func WriteCSV(w io.Writer, header []string, records [][]string) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteCSVFile writes a CSV file, creating parent directories as needed
func WriteCSVFile(path string, header []string, records [][]string) error {
	path = filepath.Clean(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, header, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Records flattens raw rows into header order
func Records(header []string, rows []map[string]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, len(header))
		for j, col := range header {
			rec[j] = row[col]
		}
		out[i] = rec
	}
	return out
}

// Records returns the crash rows in header order
func (t *CrashTable) Records() [][]string {
	raw := make([]map[string]string, len(t.Rows))
	for i, c := range t.Rows {
		raw[i] = c.Fields
	}
	return Records(t.Columns, raw)
}

// Records returns the person rows in header order
func (t *PersonTable) Records() [][]string {
	raw := make([]map[string]string, len(t.Rows))
	for i, p := range t.Rows {
		raw[i] = p.Fields
	}
	return Records(t.Columns, raw)
}
