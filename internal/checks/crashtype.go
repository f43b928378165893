// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// checkCrashType aggregates G2.1 (missing type) and G2.2 (type mismatch)
func checkCrashType(in Input) result.Result {
	return result.Aggregate("G2", "Crash-type (Olyckstyp) consistency", []result.Result{
		missingCrashType(in),
		crashTypeMismatch(in),
	})
}

func missingCrashType(in Input) result.Result {
	details := result.NewTable(in.Columns.CrashID, "Source")

	missingCrashes := 0
	for _, c := range in.Crashes.Rows {
		if dataset.IsBlank(c.Type) {
			details.Add(c.ID, "Olyckor")
			missingCrashes++
		}
	}

	// Persons are counted once per crash
	seen := make(map[string]bool)
	missingPersons := 0
	for _, p := range in.Persons.Rows {
		if dataset.IsBlank(p.CrashType) && !seen[p.CrashID] {
			seen[p.CrashID] = true
			details.Add(p.CrashID, "Personer")
			missingPersons++
		}
	}

	var summary string
	if details.Len() == 0 {
		summary = "All records have Olyckstyp filled"
	} else {
		summary = fmt.Sprintf("Missing in Olyckor: %d, Missing in Personer (unique crashes): %d",
			missingCrashes, missingPersons)
	}
	return result.New("G2.1", "Missing Olyckstyp", summary, details.Len(), details)
}

func crashTypeMismatch(in Input) result.Result {
	// First type seen per crash in the persons table
	personTypes := make(map[string]string)
	for _, p := range in.Persons.Rows {
		if _, ok := personTypes[p.CrashID]; !ok {
			personTypes[p.CrashID] = p.CrashType
		}
	}

	details := result.NewTable(in.Columns.CrashID, "Olyckstyp_Olyckor", "Olyckstyp_Personer")
	for _, c := range in.Crashes.Rows {
		pt, ok := personTypes[c.ID]
		if !ok {
			continue
		}
		// Both blank is a G2.1 finding only
		if dataset.IsBlank(c.Type) && dataset.IsBlank(pt) {
			continue
		}
		if c.Type != pt {
			details.Add(c.ID, c.Type, pt)
		}
	}

	var summary string
	if details.Len() == 0 {
		summary = "All Olyckstyp values match between datasets"
	} else {
		summary = fmt.Sprintf("%d crashes with mismatched Olyckstyp", details.Len())
	}
	return result.New("G2.2", "Olyckstyp mismatch between datasets", summary, details.Len(), details)
}
