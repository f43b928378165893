// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"

	"strada-check/internal/result"
)

const (
	foundInCrashes = "Olyckor only"
	foundInPersons = "Personer only"
)

// checkCrashIDs reports crash ids present in only one of the two tables
func checkCrashIDs(in Input) result.Result {
	crashIDs := make(map[string]bool)
	for _, c := range in.Crashes.Rows {
		if c.ID != "" {
			crashIDs[c.ID] = true
		}
	}
	personIDs := make(map[string]bool)
	for _, p := range in.Persons.Rows {
		if p.CrashID != "" {
			personIDs[p.CrashID] = true
		}
	}

	var crashesOnly, personsOnly []string
	for id := range crashIDs {
		if !personIDs[id] {
			crashesOnly = append(crashesOnly, id)
		}
	}
	for id := range personIDs {
		if !crashIDs[id] {
			personsOnly = append(personsOnly, id)
		}
	}
	sortIDs(crashesOnly)
	sortIDs(personsOnly)

	details := result.NewTable(in.Columns.CrashID, "Found_in")
	for _, id := range crashesOnly {
		details.Add(id, foundInCrashes)
	}
	for _, id := range personsOnly {
		details.Add(id, foundInPersons)
	}

	var summary string
	if details.Len() == 0 {
		summary = printer.Sprintf("All Olycksnummer match perfectly. Total unique crashes: %d", len(crashIDs))
	} else {
		summary = fmt.Sprintf("%d in Olyckor only, %d in Personer only", len(crashesOnly), len(personsOnly))
	}
	return result.New("G1", "Crash-ID (Olycksnummer) consistency", summary, details.Len(), details)
}
