// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package checks implements the data-quality checks run over a crashes and
// persons table pair, and the runner that selects and executes them.
package checks

import (
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// Input is what every check reads. Checks never modify it.
type Input struct {
	Crashes  *dataset.CrashTable
	Persons  *dataset.PersonTable
	Columns  dataset.Columns
	Settings Settings
}

// Func computes one check result
type Func func(in Input) result.Result

// Definition describes a registered check
type Definition struct {
	ID   string
	Name string
	// Domain marks cycling-specific checks, run only on request
	Domain bool
	// CrashColumns and PersonColumns are logical column keys that must be
	// present for the check to run
	CrashColumns  []string
	PersonColumns []string
	Run           Func
}

var registry []Definition

func register(def Definition) {
	registry = append(registry, def)
}

func init() {
	register(Definition{
		ID:            "G1",
		Name:          "Crash-ID (Olycksnummer) consistency",
		CrashColumns:  []string{"crash_id"},
		PersonColumns: []string{"crash_id"},
		Run:           checkCrashIDs,
	})
	register(Definition{
		ID:            "G2",
		Name:          "Crash-type (Olyckstyp) consistency",
		CrashColumns:  []string{"crash_id", "crash_type"},
		PersonColumns: []string{"crash_id", "crash_type"},
		Run:           checkCrashType,
	})
	register(Definition{
		ID:            "G3",
		Name:          "Road-user category (Trafikantkategori) consistency",
		PersonColumns: []string{"crash_id", "category_p", "category_s", "category_sub"},
		Run:           checkRoadUserCategory,
	})
	register(Definition{
		ID:            "G4",
		Name:          "Crash timeline consistency",
		PersonColumns: []string{"crash_id", "year", "month", "day", "time_bucket"},
		Run:           checkTimeline,
	})
	register(Definition{
		ID:            "G5",
		Name:          "Location consistency (Län / Kommun)",
		PersonColumns: []string{"crash_id", "county", "municipality"},
		Run:           checkLocation,
	})
	register(Definition{
		ID:   "G6",
		Name: "Duplicate person detection (all road-user types)",
		// Duplicate columns come from settings and are checked by the check
		PersonColumns: []string{"crash_id"},
		Run:           checkDuplicatePersons,
	})
	register(Definition{
		ID:            "C1",
		Name:          "G1 (cykel singel) crash validation",
		Domain:        true,
		CrashColumns:  []string{"crash_id", "crash_type"},
		PersonColumns: []string{"crash_id", "category_main", "role_p", "role_s"},
		Run:           checkSoloCyclist,
	})
	register(Definition{
		ID:            "C2",
		Name:          "Cykel presence in every crash",
		Domain:        true,
		PersonColumns: []string{"crash_id", "category_main"},
		Run:           checkCyclistPresence,
	})
	register(Definition{
		ID:            "C3",
		Name:          "Cykel crashes with only passengers (no driver)",
		Domain:        true,
		PersonColumns: []string{"crash_id", "category_main", "role_p", "role_s"},
		Run:           checkPassengersOnly,
	})
}

// Registry returns every registered check in run order
func Registry() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a check by id, case-insensitively
func Lookup(id string) (Definition, bool) {
	id = strings.ToUpper(strings.TrimSpace(id))
	for _, def := range registry {
		if def.ID == id {
			return def, true
		}
	}
	return Definition{}, false
}

// missingColumns resolves logical keys and returns the header names absent
// from the tables
func (d Definition) missingColumns(in Input) []string {
	var missing []string
	if len(d.CrashColumns) > 0 {
		if in.Crashes == nil {
			missing = append(missing, "crashes table")
		} else {
			missing = append(missing, dataset.MissingColumns(in.Crashes.Columns, resolve(in.Columns, d.CrashColumns))...)
		}
	}
	if len(d.PersonColumns) > 0 {
		if in.Persons == nil {
			missing = append(missing, "persons table")
		} else {
			missing = append(missing, dataset.MissingColumns(in.Persons.Columns, resolve(in.Columns, d.PersonColumns))...)
		}
	}
	return missing
}

func resolve(cols dataset.Columns, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = cols.Resolve(k)
	}
	return out
}
