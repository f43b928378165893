// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"strconv"
	"strings"
)

// ParseYear reads a year cell. Spreadsheet exports sometimes write "2021.0".
func ParseYear(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if y, err := strconv.Atoi(value); err == nil {
		return y, true
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(f), true
	}
	return 0, false
}

func inRange(year string, start, end int) bool {
	y, ok := ParseYear(year)
	return ok && y >= start && y <= end
}

// FilterByYear keeps crashes whose year lies in [start, end]
func (t *CrashTable) FilterByYear(start, end int) *CrashTable {
	out := &CrashTable{Columns: t.Columns}
	for _, c := range t.Rows {
		if inRange(c.Year, start, end) {
			out.Rows = append(out.Rows, c)
		}
	}
	return out
}

// FilterByYear keeps persons whose year lies in [start, end]
func (t *PersonTable) FilterByYear(start, end int) *PersonTable {
	out := &PersonTable{Columns: t.Columns}
	for _, p := range t.Rows {
		if inRange(p.Year, start, end) {
			out.Rows = append(out.Rows, p)
		}
	}
	return out
}

// FilterByYear restricts both tables to [start, end]
func (d *Dataset) FilterByYear(start, end int) *Dataset {
	return &Dataset{
		Crashes: d.Crashes.FilterByYear(start, end),
		Persons: d.Persons.FilterByYear(start, end),
		Columns: d.Columns,
	}
}
