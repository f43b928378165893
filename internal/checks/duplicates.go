// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

const (
	g6ID   = "G6"
	g6Name = "Duplicate person detection (all road-user types)"
)

// checkDuplicatePersons flags demographic and space-time signatures shared
// by persons of more than one crash
func checkDuplicatePersons(in Input) result.Result {
	settings := in.Settings.WithDefaults()
	columns := resolve(in.Columns, settings.DuplicateColumns)
	if missing := dataset.MissingColumns(in.Persons.Columns, columns); len(missing) > 0 {
		return result.Failed(g6ID, g6Name, fmt.Sprintf("Missing columns: [%s]", strings.Join(missing, ", ")))
	}

	type group struct {
		first   dataset.Person
		crashes map[string]bool
		entries int
	}
	groups := make(map[string]*group)
	var order []string

	unknown := strings.ToLower(settings.GenderUnknown)
	values := make([]string, len(columns))
	for _, p := range in.Persons.Rows {
		if p.Age == "" || p.Gender == "" || strings.ToLower(p.Gender) == unknown {
			continue
		}
		for i, col := range columns {
			values[i] = strings.TrimSpace(p.Field(col))
		}
		key := strings.Join(values, "\x1f")
		g, ok := groups[key]
		if !ok {
			g = &group{first: p, crashes: make(map[string]bool)}
			groups[key] = g
			order = append(order, key)
		}
		g.crashes[p.CrashID] = true
		g.entries++
	}

	type finding struct {
		ids []string
		g   *group
	}
	var findings []finding
	for _, key := range order {
		g := groups[key]
		if len(g.crashes) < 2 {
			continue
		}
		ids := make([]string, 0, len(g.crashes))
		for id := range g.crashes {
			ids = append(ids, id)
		}
		sortIDs(ids)
		findings = append(findings, finding{ids: ids, g: g})
	}
	sort.SliceStable(findings, func(i, j int) bool {
		return len(findings[i].ids) > len(findings[j].ids)
	})

	details := result.NewTable(in.Columns.CrashID, "Num_crashes", "Num_entries", "Age", "Gender",
		"Date", "Time", "County", "Municipality", "Street", "Road_user_type")
	for _, f := range findings {
		p := f.g.first
		details.Add(
			strings.Join(f.ids, ", "),
			strconv.Itoa(len(f.ids)),
			strconv.Itoa(f.g.entries),
			p.Age,
			p.Gender,
			fmt.Sprintf("%s-%s-%s", p.Year, p.Month, p.Day),
			p.TimeBucket,
			p.County,
			p.Municipality,
			p.Street,
			p.CategoryMain,
		)
	}

	var summary string
	if details.Len() == 0 {
		summary = "No potential duplicate persons found"
	} else {
		summary = fmt.Sprintf("%d potential duplicate-person groups across different crashes", details.Len())
	}
	return result.New(g6ID, g6Name, summary, details.Len(), details)
}
