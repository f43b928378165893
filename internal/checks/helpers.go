// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"strada-check/internal/dataset"
)

var printer = message.NewPrinter(language.English)

// sortIDs orders crash ids numerically when both parse as integers,
// numbers before text, and lexically otherwise
func sortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return lessID(ids[i], ids[j])
	})
}

func lessID(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

// distinct returns the non-blank values in order of first appearance
func distinct(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if dataset.IsBlank(v) || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// personGroups groups person rows by crash id, skipping blank ids. The
// returned ids are sorted.
func personGroups(persons *dataset.PersonTable) (map[string][]dataset.Person, []string) {
	groups := make(map[string][]dataset.Person)
	var ids []string
	for _, p := range persons.Rows {
		if p.CrashID == "" {
			continue
		}
		if _, ok := groups[p.CrashID]; !ok {
			ids = append(ids, p.CrashID)
		}
		groups[p.CrashID] = append(groups[p.CrashID], p)
	}
	sortIDs(ids)
	return groups, ids
}

// multiPersonGroups keeps only crashes with more than one person row
func multiPersonGroups(persons *dataset.PersonTable) (map[string][]dataset.Person, []string) {
	groups, ids := personGroups(persons)
	var multi []string
	for _, id := range ids {
		if len(groups[id]) > 1 {
			multi = append(multi, id)
		}
	}
	return groups, multi
}

func column(persons []dataset.Person, get func(dataset.Person) string) []string {
	out := make([]string, len(persons))
	for i, p := range persons {
		out[i] = get(p)
	}
	return out
}

// hasPrefixMatch reports an exact or prefix match of value against combined
func hasPrefixMatch(value, combined string) bool {
	return value == combined || strings.HasPrefix(value, combined)
}
