// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// checkLocation flags multi-person crashes whose persons disagree on
// county or municipality
func checkLocation(in Input) result.Result {
	groups, ids := multiPersonGroups(in.Persons)
	cols := in.Columns

	details := result.NewTable(cols.CrashID, "Reason", "Details")
	for _, id := range ids {
		persons := groups[id]
		counties := distinct(column(persons, func(p dataset.Person) string { return p.County }))
		municipalities := distinct(column(persons, func(p dataset.Person) string { return p.Municipality }))

		var reasons, parts []string
		if len(counties) > 1 {
			reasons = append(reasons, cols.County+" mismatch")
			parts = append(parts, fmt.Sprintf("%s: %s", cols.County, strings.Join(counties, ", ")))
		}
		if len(municipalities) > 1 {
			reasons = append(reasons, cols.Municipality+" mismatch")
			parts = append(parts, fmt.Sprintf("%s: %s", cols.Municipality, strings.Join(municipalities, ", ")))
		}
		if len(reasons) > 0 {
			details.Add(id, strings.Join(reasons, ", "), strings.Join(parts, "; "))
		}
	}

	var summary string
	if details.Len() == 0 {
		summary = "All crashes have consistent location"
	} else {
		summary = fmt.Sprintf("%d crashes with location inconsistencies", details.Len())
	}
	return result.New("G5", "Location consistency (Län / Kommun)", summary, details.Len(), details)
}
