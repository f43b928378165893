// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"strings"
)

// Conflict partner values
const (
	PartnerSingle = "Single"
)

// AnnotatePartners returns a copy of classified where every cyclist lists
// the other road-user categories present in the same crash. Other cyclists
// are listed only when nobody else was involved.
func AnnotatePartners(classified []Classified, cyclingCategory string) []Classified {
	byCrash := make(map[string][]string)
	for _, c := range classified {
		byCrash[c.CrashID] = append(byCrash[c.CrashID], c.CategoryMain)
	}

	out := make([]Classified, len(classified))
	for i, c := range classified {
		out[i] = c
		if c.CategoryMain != cyclingCategory {
			out[i].ConflictPartner = TypeNotApplicable
			continue
		}
		out[i].ConflictPartner = conflictPartner(byCrash[c.CrashID], cyclingCategory)
	}
	return out
}

func conflictPartner(categories []string, cyclingCategory string) string {
	others := make([]string, 0, len(categories))
	removed := false
	for _, cat := range categories {
		if !removed && cat == cyclingCategory {
			removed = true
			continue
		}
		others = append(others, cat)
	}

	seen := distinct(others, func(cat string) bool { return cat != cyclingCategory })
	if len(seen) == 0 {
		// Bicycle-only crash: the other cyclists are the partners
		seen = distinct(others, nil)
	}
	if len(seen) == 0 {
		return PartnerSingle
	}
	return strings.Join(seen, ", ")
}

// distinct returns the non-blank values accepted by keep, in order of first appearance
func distinct(values []string, keep func(string) bool) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" || contains(out, v) {
			continue
		}
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
