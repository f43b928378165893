// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// cellBreaks flattens in-cell line breaks so every record stays on one line
var cellBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// IsExcel reports whether path has a spreadsheet extension
func IsExcel(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}

// ReadExcel reads one sheet of a workbook. An empty sheet name selects the
// first sheet. Rows are padded to the header width.
func ReadExcel(path, sheet string) ([]string, []map[string]string, error) {
	f, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	header := make([]string, len(all[0]))
	for i, h := range all[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(all)-1)
	for _, record := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = cellBreaks.Replace(record[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// ConvertExcel converts the first sheet of a workbook to a UTF-8 CSV with a
// byte-order mark and returns the number of data rows written.
func ConvertExcel(excelPath, csvPath string) (int, error) {
	header, rows, err := ReadExcel(excelPath, "")
	if err != nil {
		return 0, err
	}
	if err := WriteCSVFile(csvPath, header, Records(header, rows)); err != nil {
		return 0, err
	}
	return len(rows), nil
}
