// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"fmt"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// Verifier ids
const (
	CheckElectricMismatch     = "CL.1"
	CheckConventionalElectric = "CL.2"
)

// Verify cross-checks assigned types against the combined sub-group column.
// It returns the two mismatch results and the ambiguity table of persons
// whose narratives matched more than one category.
func Verify(classified []Classified, rules Rules, cols dataset.Columns) ([]result.Result, *result.Table) {
	rules = rules.WithDefaults()
	cols = cols.WithDefaults()

	electric := result.NewTable(cols.CrashID, "Micromobility_type", cols.CategorySub)
	conventional := result.NewTable(cols.CrashID, "Micromobility_type", cols.CategorySub)
	ambiguous := result.NewTable(cols.CrashID, "Micromobility_type", "All_matches")

	for _, c := range classified {
		switch {
		case contains(rules.ElectricTypes, c.MicromobilityType) && !contains(rules.ElectricSubgroups, c.CategorySub):
			electric.Add(c.CrashID, c.MicromobilityType, c.CategorySub)
		case c.MicromobilityType == rules.DefaultType && contains(rules.ElectricSubgroups, c.CategorySub):
			conventional.Add(c.CrashID, c.MicromobilityType, c.CategorySub)
		}
		if len(c.AllMatches) > 1 {
			ambiguous.Add(c.CrashID, c.MicromobilityType, c.AllMatches.String())
		}
	}

	var electricSummary string
	if electric.Len() == 0 {
		electricSummary = "All E-scooter/E-bike classifications match Undergrupp"
	} else {
		electricSummary = fmt.Sprintf("%d electric types without matching Undergrupp", electric.Len())
	}
	var conventionalSummary string
	if conventional.Len() == 0 {
		conventionalSummary = "No Conventional bicycle with electric Undergrupp"
	} else {
		conventionalSummary = fmt.Sprintf("%d Conventional bicycle with electric Undergrupp", conventional.Len())
	}

	return []result.Result{
		result.New(CheckElectricMismatch, "E-scooter/E-bike without matching Undergrupp",
			electricSummary, electric.Len(), electric),
		result.New(CheckConventionalElectric, "Conventional bicycle with electric Undergrupp",
			conventionalSummary, conventional.Len(), conventional),
	}, ambiguous
}
