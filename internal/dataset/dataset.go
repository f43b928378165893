// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package dataset holds the typed Crash and Person tables and the loaders
// that produce them from STRADA CSV and Excel exports.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned when a table lacks a column the caller requires
var ErrMissingColumn = errors.New("missing column")

// Crash is one row of the crashes (Olyckor) table
type Crash struct {
	ID           string
	Type         string
	Year         string
	Month        string
	Day          string
	TimeBucket   string
	County       string
	Municipality string
	Street       string

	// Fields holds the full raw row keyed by header name
	Fields map[string]string
}

// Person is one row of the persons (Personer) table
type Person struct {
	CrashID      string
	CrashType    string
	Year         string
	Month        string
	Day          string
	TimeBucket   string
	Age          string
	Gender       string
	County       string
	Municipality string
	Street       string

	CategoryMain string
	CategorySub  string
	CategoryP    string
	CategoryS    string

	RoleP  string
	RoleS  string
	EventP string
	EventS string

	ElementRefP        string
	ConflictPartnerSub string

	Fields map[string]string
}

// Field returns the raw value of any column by header name
func (p Person) Field(column string) string {
	return p.Fields[column]
}

// Field returns the raw value of any column by header name
func (c Crash) Field(column string) string {
	return c.Fields[column]
}

// CrashTable is the crashes table with its header order preserved
type CrashTable struct {
	Columns []string
	Rows    []Crash
}

// PersonTable is the persons table with its header order preserved
type PersonTable struct {
	Columns []string
	Rows    []Person
}

// HasColumn reports whether the header contains name
func (t *CrashTable) HasColumn(name string) bool {
	return hasColumn(t.Columns, name)
}

// HasColumn reports whether the header contains name
func (t *PersonTable) HasColumn(name string) bool {
	return hasColumn(t.Columns, name)
}

// Len returns the number of crash rows
func (t *CrashTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Len returns the number of person rows
func (t *PersonTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Dataset is the crashes/persons pair processed in one run
type Dataset struct {
	Crashes *CrashTable
	Persons *PersonTable
	Columns Columns
}

// MissingColumns returns the required columns absent from header
func MissingColumns(header []string, required []string) []string {
	var missing []string
	for _, col := range required {
		if !hasColumn(header, col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// RequireColumns returns ErrMissingColumn naming every absent column
func RequireColumns(header []string, required ...string) error {
	if missing := MissingColumns(header, required); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// IsBlank reports whether a cell is empty after trimming
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

func hasColumn(header []string, name string) bool {
	for _, c := range header {
		if c == name {
			return true
		}
	}
	return false
}

// NewCrash builds a typed crash from a raw row
func NewCrash(fields map[string]string, cols Columns) Crash {
	get := func(col string) string { return strings.TrimSpace(fields[col]) }
	return Crash{
		ID:           get(cols.CrashID),
		Type:         get(cols.CrashType),
		Year:         get(cols.Year),
		Month:        get(cols.Month),
		Day:          get(cols.Day),
		TimeBucket:   get(cols.TimeBucket),
		County:       get(cols.County),
		Municipality: get(cols.Municipality),
		Street:       get(cols.Street),
		Fields:       fields,
	}
}

// NewPerson builds a typed person from a raw row
func NewPerson(fields map[string]string, cols Columns) Person {
	get := func(col string) string { return strings.TrimSpace(fields[col]) }
	return Person{
		CrashID:            get(cols.CrashID),
		CrashType:          get(cols.CrashType),
		Year:               get(cols.Year),
		Month:              get(cols.Month),
		Day:                get(cols.Day),
		TimeBucket:         get(cols.TimeBucket),
		Age:                get(cols.Age),
		Gender:             get(cols.Gender),
		County:             get(cols.County),
		Municipality:       get(cols.Municipality),
		Street:             get(cols.Street),
		CategoryMain:       get(cols.CategoryMain),
		CategorySub:        get(cols.CategorySub),
		CategoryP:          get(cols.CategoryP),
		CategoryS:          get(cols.CategoryS),
		RoleP:              get(cols.RoleP),
		RoleS:              get(cols.RoleS),
		EventP:             get(cols.EventP),
		EventS:             get(cols.EventS),
		ElementRefP:        get(cols.ElementRefP),
		ConflictPartnerSub: get(cols.ConflictPartnerSub),
		Fields:             fields,
	}
}

// NewCrashTable builds a crash table from a header and raw rows
func NewCrashTable(header []string, rows []map[string]string, cols Columns) *CrashTable {
	t := &CrashTable{Columns: header, Rows: make([]Crash, 0, len(rows))}
	for _, row := range rows {
		t.Rows = append(t.Rows, NewCrash(row, cols))
	}
	return t
}

// NewPersonTable builds a person table from a header and raw rows
func NewPersonTable(header []string, rows []map[string]string, cols Columns) *PersonTable {
	t := &PersonTable{Columns: header, Rows: make([]Person, 0, len(rows))}
	for _, row := range rows {
		t.Rows = append(t.Rows, NewPerson(row, cols))
	}
	return t
}

// GroupByCrash returns person row indexes per crash id together with the
// crash ids in order of first appearance
func (t *PersonTable) GroupByCrash() (map[string][]int, []string) {
	groups := make(map[string][]int)
	var order []string
	for i, p := range t.Rows {
		if _, seen := groups[p.CrashID]; !seen {
			order = append(order, p.CrashID)
		}
		groups[p.CrashID] = append(groups[p.CrashID], i)
	}
	return groups, order
}
