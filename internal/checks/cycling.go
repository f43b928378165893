// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"
	"strconv"
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// checkSoloCyclist validates crashes typed as single-cyclist crashes: one
// person row, and that person is a cyclist
func checkSoloCyclist(in Input) result.Result {
	settings := in.Settings.WithDefaults()
	groups, _ := personGroups(in.Persons)

	var soloIDs []string
	seen := make(map[string]bool)
	for _, c := range in.Crashes.Rows {
		if c.Type == settings.SoloCrashType && c.ID != "" && !seen[c.ID] {
			seen[c.ID] = true
			soloIDs = append(soloIDs, c.ID)
		}
	}
	sortIDs(soloIDs)

	keyword := strings.ToLower(settings.PassengerKeyword)
	details := result.NewTable(in.Columns.CrashID, "Reason")
	for _, id := range soloIDs {
		persons := groups[id]
		switch {
		case len(persons) > 1:
			passengers := 0
			for _, p := range persons {
				if strings.Contains(strings.ToLower(p.RoleP), keyword) || strings.Contains(strings.ToLower(p.RoleS), keyword) {
					passengers++
				}
			}
			if passengers > 0 {
				details.Add(id, fmt.Sprintf("Multiple entries (%d persons, %d passengers)", len(persons), passengers))
			} else {
				details.Add(id, fmt.Sprintf("Multiple entries (%d persons)", len(persons)))
			}
		case len(persons) == 1 && persons[0].CategoryMain != settings.CyclingCategory:
			details.Add(id, fmt.Sprintf("Single entry but not %s (is: %s)", settings.CyclingCategory, persons[0].CategoryMain))
		}
	}

	var summary string
	if details.Len() == 0 {
		summary = fmt.Sprintf("All %d %s crashes have exactly one %s entry",
			len(soloIDs), settings.SoloCrashType, settings.CyclingCategory)
	} else {
		summary = fmt.Sprintf("%d %s crashes with issues", details.Len(), settings.SoloCrashType)
	}
	return result.New("C1", "G1 (cykel singel) crash validation", summary, details.Len(), details)
}

// checkCyclistPresence flags crashes without any cyclist
func checkCyclistPresence(in Input) result.Result {
	settings := in.Settings.WithDefaults()
	groups, ids := personGroups(in.Persons)

	details := result.NewTable(in.Columns.CrashID, "Huvudgrupp_values")
	for _, id := range ids {
		persons := groups[id]
		categories := distinct(column(persons, func(p dataset.Person) string { return p.CategoryMain }))
		hasCyclist := false
		for _, c := range categories {
			if c == settings.CyclingCategory {
				hasCyclist = true
				break
			}
		}
		if hasCyclist {
			continue
		}
		value := "No values"
		if len(categories) > 0 {
			value = strings.Join(categories, ", ")
		}
		details.Add(id, value)
	}

	var summary string
	if details.Len() == 0 {
		summary = fmt.Sprintf("All %d crashes have at least one %s entry", len(ids), settings.CyclingCategory)
	} else {
		summary = fmt.Sprintf("%d crashes without any %s entry", details.Len(), settings.CyclingCategory)
	}
	return result.New("C2", "Cykel presence in every crash", summary, details.Len(), details)
}

// checkPassengersOnly flags crashes where every cyclist has a passenger role
func checkPassengersOnly(in Input) result.Result {
	const (
		id   = "C3"
		name = "Cykel crashes with only passengers (no driver)"
	)
	settings := in.Settings.WithDefaults()

	isPassenger := func(p dataset.Person) bool {
		for _, role := range settings.PassengerRoles {
			if strings.Contains(p.RoleP, role) || strings.Contains(p.RoleS, role) {
				return true
			}
		}
		return false
	}

	type tally struct{ cyclists, passengers int }
	tallies := make(map[string]*tally)
	var ids []string
	for _, p := range in.Persons.Rows {
		if p.CategoryMain != settings.CyclingCategory || p.CrashID == "" {
			continue
		}
		t, ok := tallies[p.CrashID]
		if !ok {
			t = &tally{}
			tallies[p.CrashID] = t
			ids = append(ids, p.CrashID)
		}
		t.cyclists++
		if isPassenger(p) {
			t.passengers++
		}
	}
	if len(ids) == 0 {
		return result.New(id, name, fmt.Sprintf("No %s entries in dataset", settings.CyclingCategory), 0, nil)
	}
	sortIDs(ids)

	details := result.NewTable(in.Columns.CrashID, "Num_passengers")
	for _, crashID := range ids {
		if t := tallies[crashID]; t.passengers == t.cyclists {
			details.Add(crashID, strconv.Itoa(t.passengers))
		}
	}

	var summary string
	if details.Len() == 0 {
		summary = fmt.Sprintf("All %s crashes have at least one driver/cyclist", settings.CyclingCategory)
	} else {
		summary = fmt.Sprintf("%d %s crashes with only passengers", details.Len(), settings.CyclingCategory)
	}
	return result.New(id, name, summary, details.Len(), details)
}
