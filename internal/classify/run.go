// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

// Augmented columns appended to the persons table
const (
	ColumnMicromobilityType = "Micromobility_type"
	ColumnConfidence        = "Classification_confidence"
	ColumnStep              = "Classification_step"
	ColumnConflictPartner   = "Conflict_partner"
)

// Outcome is everything one classification run produces
type Outcome struct {
	Persons      []Classified
	Columns      []string
	Verification []result.Result
	Ambiguities  *result.Table
	Stats        Stats
}

// Run classifies, verifies and annotates conflict partners in one pass
func (p *Pipeline) Run(persons *dataset.PersonTable, cols dataset.Columns) *Outcome {
	classified, stats := p.Classify(persons)
	verification, ambiguities := Verify(classified, p.rules, cols)
	classified = AnnotatePartners(classified, p.rules.CyclingCategory)

	return &Outcome{
		Persons:      classified,
		Columns:      persons.Columns,
		Verification: verification,
		Ambiguities:  ambiguities,
		Stats:        stats,
	}
}

// AugmentedHeader is the persons header followed by the classification columns
func (o *Outcome) AugmentedHeader() []string {
	header := make([]string, 0, len(o.Columns)+4)
	header = append(header, o.Columns...)
	return append(header, ColumnMicromobilityType, ColumnConfidence, ColumnStep, ColumnConflictPartner)
}

// AugmentedRecords returns one record per person in AugmentedHeader order
func (o *Outcome) AugmentedRecords() [][]string {
	records := make([][]string, len(o.Persons))
	for i, c := range o.Persons {
		rec := make([]string, 0, len(o.Columns)+4)
		for _, col := range o.Columns {
			rec = append(rec, c.Field(col))
		}
		records[i] = append(rec, c.MicromobilityType, c.Confidence, c.Step, c.ConflictPartner)
	}
	return records
}

// WriteAugmentedCSV writes the augmented persons table
func (o *Outcome) WriteAugmentedCSV(path string) error {
	return dataset.WriteCSVFile(path, o.AugmentedHeader(), o.AugmentedRecords())
}

// CountByType tallies assigned types over cycling persons
func (o *Outcome) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, c := range o.Persons {
		if c.MicromobilityType != TypeNotApplicable {
			counts[c.MicromobilityType]++
		}
	}
	return counts
}
