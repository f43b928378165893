// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// checkRoadUserCategory compares the police (P) and hospital (S) sub-groups
// with each other and with the combined sub-group
func checkRoadUserCategory(in Input) result.Result {
	cols := in.Columns
	rows := in.Persons.Rows

	// G3.1: all three blank
	allMissing := result.NewTable(cols.CrashID)
	for _, p := range rows {
		if dataset.IsBlank(p.CategoryP) && dataset.IsBlank(p.CategoryS) && dataset.IsBlank(p.CategorySub) {
			allMissing.Add(p.CrashID)
		}
	}
	var s31 string
	if allMissing.Len() == 0 {
		s31 = "All persons have at least one Trafikantkategori column filled"
	} else {
		s31 = fmt.Sprintf("%d persons with all three columns missing", allMissing.Len())
	}

	// G3.2: P and S disagree
	bothFilled := 0
	disagree := make(map[int]bool)
	pVsS := result.NewTable(cols.CrashID, cols.CategoryP, cols.CategoryS)
	for i, p := range rows {
		if dataset.IsBlank(p.CategoryP) || dataset.IsBlank(p.CategoryS) {
			continue
		}
		bothFilled++
		if p.CategoryP != p.CategoryS {
			disagree[i] = true
			pVsS.Add(p.CrashID, p.CategoryP, p.CategoryS)
		}
	}
	var s32 string
	if pVsS.Len() == 0 {
		s32 = fmt.Sprintf("All %d persons with both P and S filled have matching values", bothFilled)
	} else {
		s32 = fmt.Sprintf("%d persons where P ≠ S", pVsS.Len())
	}

	// G3.3: effective category against combined, excluding G3.2 rows
	effective := result.NewTable(cols.CrashID, "Filled_category", cols.CategorySub)
	for i, p := range rows {
		if disagree[i] {
			continue
		}
		eff := p.CategoryP
		if dataset.IsBlank(eff) {
			eff = p.CategoryS
		}
		if dataset.IsBlank(eff) || dataset.IsBlank(p.CategorySub) {
			continue
		}
		if !hasPrefixMatch(eff, p.CategorySub) {
			effective.Add(p.CrashID, eff, p.CategorySub)
		}
	}
	var s33 string
	if effective.Len() == 0 {
		s33 = "All filled P/S categories match Sammanvägd"
	} else {
		s33 = fmt.Sprintf("%d discrepancies between filled category and Sammanvägd", effective.Len())
	}

	// G3.4: both filled, neither matches combined
	neither := result.NewTable(cols.CrashID, cols.CategoryP, cols.CategoryS, cols.CategorySub)
	for _, p := range rows {
		if dataset.IsBlank(p.CategoryP) || dataset.IsBlank(p.CategoryS) || dataset.IsBlank(p.CategorySub) {
			continue
		}
		if !hasPrefixMatch(p.CategoryP, p.CategorySub) && !hasPrefixMatch(p.CategoryS, p.CategorySub) {
			neither.Add(p.CrashID, p.CategoryP, p.CategoryS, p.CategorySub)
		}
	}
	var s34 string
	if neither.Len() == 0 {
		s34 = "At least one of P/S matches Sammanvägd in all cases"
	} else {
		s34 = fmt.Sprintf("%d cases where neither P nor S matches Sammanvägd", neither.Len())
	}

	return result.Aggregate("G3", "Road-user category (Trafikantkategori) consistency", []result.Result{
		result.New("G3.1", "All three Trafikantkategori columns missing", s31, allMissing.Len(), allMissing),
		result.New("G3.2", "P and S categories mismatch when both filled", s32, pVsS.Len(), pVsS),
		result.New("G3.3", "Filled P/S ≠ Sammanvägd", s33, effective.Len(), effective),
		result.New("G3.4", "Neither P nor S matches Sammanvägd (both filled)", s34, neither.Len(), neither),
	})
}
