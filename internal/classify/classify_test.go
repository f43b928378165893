// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

func person(crash, main string, opts ...func(*dataset.Person)) dataset.Person {
	p := dataset.Person{CrashID: crash, CategoryMain: main}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func eventP(text string) func(*dataset.Person) { return func(p *dataset.Person) { p.EventP = text } }
func eventS(text string) func(*dataset.Person) { return func(p *dataset.Person) { p.EventS = text } }
func sub(value string) func(*dataset.Person)   { return func(p *dataset.Person) { p.CategorySub = value } }
func subP(value string) func(*dataset.Person)  { return func(p *dataset.Person) { p.CategoryP = value } }
func ref(value string) func(*dataset.Person)   { return func(p *dataset.Person) { p.ElementRefP = value } }
func partner(value string) func(*dataset.Person) {
	return func(p *dataset.Person) { p.ConflictPartnerSub = value }
}

func table(rows ...dataset.Person) *dataset.PersonTable {
	return &dataset.PersonTable{Columns: []string{"Olycksnummer"}, Rows: rows}
}

func TestMatcher_Find(t *testing.T) {
	m := NewMatcher(DefaultRules())

	tests := []struct {
		name string
		text string
		want MatchSet
	}{
		{"substring keyword", "Cyklisten körde elsparkcykel", MatchSet{TypeEScooter}},
		{"case insensitive", "Föll av ELCYKEL", MatchSet{TypeEBike}},
		{"whole word hit", "hyrde en voi i centrum", MatchSet{TypeEScooter}},
		{"whole word miss", "voice message", nil},
		{"whole word uppercase keyword", "en VOJ stod parkerad", MatchSet{TypeEScooter}},
		{"several categories in priority order", "rullstol och elcykel", MatchSet{TypeEBike, TypeWheelchair}},
		{"no match", "vanlig cykel", nil},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Find(tt.text))
		})
	}
}

func TestResolve_PriorityTotality(t *testing.T) {
	rules := DefaultRules()
	priority := rules.Priority

	for mask := 0; mask < 1<<len(priority); mask++ {
		var set MatchSet
		// Add in reverse so input order never matches priority order
		for i := len(priority) - 1; i >= 0; i-- {
			if mask&(1<<i) != 0 {
				set = append(set, priority[i])
			}
		}
		got := rules.Resolve(set)
		if mask == 0 {
			assert.Equal(t, "", got)
			continue
		}
		for i, p := range priority {
			if mask&(1<<i) != 0 {
				assert.Equal(t, p, got, "mask %b", mask)
				break
			}
		}
	}
}

func TestClassify_SoloCrash(t *testing.T) {
	p := NewPipeline(DefaultRules(), nil)

	out, stats := p.Classify(table(
		person("1", "Cykel", eventP("Polisen observed an e-scooter rider"), sub("Eldrivet enpersonsfordon")),
		person("2", "Cykel", eventP("observed an e-scooter rider")),
	))

	require.Len(t, out, 2)
	assert.Equal(t, TypeEScooter, out[0].MicromobilityType)
	assert.Contains(t, out[0].Step, "solo")
	assert.Equal(t, ConfidenceHigh, out[0].Confidence)

	assert.Equal(t, TypeEScooter, out[1].MicromobilityType)
	assert.Equal(t, ConfidenceMedium, out[1].Confidence)

	assert.Equal(t, 2, stats.TotalCycling)
	assert.Equal(t, 2, stats.SoloCrashes)
	assert.Equal(t, 0, stats.MultiCrashes)
	assert.Equal(t, 2, stats.StepCounts[StepPoliceSolo])
	assert.Equal(t, 2, stats.GuardCounts[GuardSolo])
}

func TestClassify_ElementReference(t *testing.T) {
	narrative := "Trafikelement 1 (cykel) körde in i trafikelement 2 (elsparkcykel) som föll."
	p := NewPipeline(DefaultRules(), nil)

	out, stats := p.Classify(table(
		person("5", "Cykel", eventP(narrative), ref("1.0"), subP("Cykel"), sub("Cykel")),
		person("5", "Cykel", eventP(narrative), ref("2"), subP("Eldrivet enpersonsfordon")),
	))

	// Element 1's segment mentions no vehicle and the sub-group guard
	// attributes the e-scooter to element 2.
	assert.Equal(t, TypeConventional, out[0].MicromobilityType)
	assert.Equal(t, StepDefault, out[0].Step)
	assert.Equal(t, ConfidenceDefault, out[0].Confidence)
	assert.Equal(t, MatchSet{TypeEScooter}, out[0].AllMatches)

	assert.Equal(t, TypeEScooter, out[1].MicromobilityType)
	assert.Equal(t, StepPoliceElementRef, out[1].Step)

	assert.Equal(t, 1, stats.MultiCrashes)
	assert.Equal(t, 2, stats.GuardCounts[GuardElementRef])
	assert.Equal(t, 1, stats.GuardCounts[GuardSubgroupXref])
}

func TestGuards_ElementReferenceSegment(t *testing.T) {
	rules := DefaultRules()
	g := newGuards(rules, NewMatcher(rules))
	narrative := "TE 1 (cykel) svängde vänster. TE 2 (elcykel) kom bakifrån och körde på en elsparkcykel."

	tests := []struct {
		name string
		ref  string
		want MatchSet
	}{
		{"segment ends at next reference", "1", nil},
		{"last segment runs to end of text", "2", MatchSet{TypeEScooter, TypeEBike}},
		{"unknown reference", "3", nil},
		{"unparseable reference", "x", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.elementReference(narrative, tt.ref))
		})
	}
}

func TestClassify_SubgroupCrossReference(t *testing.T) {
	narrative := "en elcykel och en elsparkcykel kolliderade"
	p := NewPipeline(DefaultRules(), nil)

	out, _ := p.Classify(table(
		person("8", "Cykel", eventP(narrative), subP("Cykel")),
		person("8", "Cykel", eventP(narrative), subP("Elcykel"), sub("Elcykel")),
	))

	assert.Equal(t, TypeEScooter, out[0].MicromobilityType)
	assert.Equal(t, StepPoliceSubgroupXref, out[0].Step)
	assert.Equal(t, MatchSet{TypeEScooter, TypeEBike}, out[0].AllMatches)

	// Own specific sub-group makes the guard a no-op
	assert.Equal(t, TypeEScooter, out[1].MicromobilityType)
	assert.Equal(t, StepPoliceSubgroupXref, out[1].Step)
}

func TestClassify_HospitalNarrative(t *testing.T) {
	p := NewPipeline(DefaultRules(), nil)

	out, stats := p.Classify(table(
		// Multi-cyclist crash, no partner field: accepted at medium confidence
		person("3", "Cykel", eventS("Föll med elcykel"), sub("Elcykel")),
		person("3", "Cykel", eventP("ingen beskrivning"),
			eventS("på sin elcykel kolliderade med elsparkcykel"),
			partner("Eldrivet enpersonsfordon"), sub("Elcykel")),
		// Exclusion empties the set: falls through to the default
		person("3", "Cykel", eventS("kolliderade med elsparkcykel"), partner("Sparkcykelåkare")),
	))

	assert.Equal(t, TypeEBike, out[0].MicromobilityType)
	assert.Equal(t, StepHospitalPerPerson, out[0].Step)
	assert.Equal(t, ConfidenceMedium, out[0].Confidence)

	assert.Equal(t, TypeEBike, out[1].MicromobilityType)
	assert.Equal(t, StepHospitalPartner, out[1].Step)
	assert.Equal(t, ConfidenceHigh, out[1].Confidence)

	assert.Equal(t, TypeConventional, out[2].MicromobilityType)
	assert.Equal(t, StepDefault, out[2].Step)

	assert.Equal(t, 1, stats.GuardCounts[GuardPerPerson])
	assert.Equal(t, 2, stats.GuardCounts[GuardPartnerExclusion])
}

func TestClassify_SubgroupFallbackAndNonCyclists(t *testing.T) {
	p := NewPipeline(DefaultRules(), nil)

	out, stats := p.Classify(table(
		person("4", "Cykel", sub("Sparkcykel")),
		person("4", "Motorfordon", eventP("elsparkcykel")),
		person("6", "Cykel", sub("Cykel - Annan")),
	))

	assert.Equal(t, TypeEScooter, out[0].MicromobilityType)
	assert.Equal(t, ConfidenceLow, out[0].Confidence)
	assert.Equal(t, StepSubgroupFallback, out[0].Step)

	assert.Equal(t, TypeNotApplicable, out[1].MicromobilityType)
	assert.Empty(t, out[1].Step)

	assert.Equal(t, TypeConventional, out[2].MicromobilityType)
	assert.Equal(t, StepDefault, out[2].Step)

	assert.Equal(t, 2, stats.TotalCycling)
	assert.Equal(t, 2, stats.SoloCrashes)
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	input := table(person("1", "Cykel", eventP("elcykel")))
	before := input.Rows[0]
	NewPipeline(DefaultRules(), nil).Classify(input)
	assert.Equal(t, before, input.Rows[0])
}

func TestAnnotatePartners(t *testing.T) {
	in := []Classified{
		{Person: person("1", "Cykel")},
		{Person: person("1", "Cykel")},
		{Person: person("1", "Motorfordon")},
		{Person: person("2", "Cykel")},
		{Person: person("3", "Cykel")},
		{Person: person("3", "Gående")},
		{Person: person("3", "")},
		{Person: person("3", "Gående")},
	}
	out := AnnotatePartners(in, "Cykel")

	assert.Equal(t, "Motorfordon", out[0].ConflictPartner)
	assert.Equal(t, "Motorfordon", out[1].ConflictPartner)
	assert.Equal(t, TypeNotApplicable, out[2].ConflictPartner)
	assert.Equal(t, PartnerSingle, out[3].ConflictPartner)
	assert.Equal(t, "Gående", out[4].ConflictPartner)
	assert.Empty(t, in[0].ConflictPartner)
}

func TestConflictPartner_TwoCyclistsOnly(t *testing.T) {
	assert.Equal(t, "Cykel", conflictPartner([]string{"Cykel", "Cykel"}, "Cykel"))
	assert.Equal(t, PartnerSingle, conflictPartner([]string{"Cykel", ""}, "Cykel"))
}

func TestVerify(t *testing.T) {
	classified := []Classified{
		{Person: person("1", "Cykel", sub("Cykel")), MicromobilityType: TypeEScooter},
		{Person: person("2", "Cykel", sub("Elcykel")), MicromobilityType: TypeEBike,
			AllMatches: MatchSet{TypeEScooter, TypeEBike}},
		{Person: person("3", "Cykel", sub("Eldriven rullstol")), MicromobilityType: TypeConventional},
		{Person: person("4", "Motorfordon"), MicromobilityType: TypeNotApplicable},
	}

	results, ambiguous := Verify(classified, DefaultRules(), dataset.DefaultColumns())
	require.Len(t, results, 2)

	assert.Equal(t, CheckElectricMismatch, results[0].ID)
	assert.Equal(t, result.StatusWarning, results[0].Status)
	assert.Equal(t, 1, results[0].IssueCount)
	assert.Equal(t, []string{"1"}, results[0].Details.Column("Olycksnummer"))

	assert.Equal(t, CheckConventionalElectric, results[1].ID)
	assert.Equal(t, 1, results[1].IssueCount)
	assert.Equal(t, "Eldriven rullstol", results[1].Details.Value(0, "Sammanvägd Trafikantkategori - Undergrupp"))

	require.Equal(t, 1, ambiguous.Len())
	assert.Equal(t, "E-scooter, E-bike", ambiguous.Value(0, "All_matches"))
}

func TestVerify_Pass(t *testing.T) {
	results, ambiguous := Verify(nil, DefaultRules(), dataset.DefaultColumns())
	for _, r := range results {
		assert.Equal(t, result.StatusPass, r.Status)
		assert.Nil(t, r.Details)
	}
	assert.Equal(t, 0, ambiguous.Len())
}

func TestRun_AugmentedOutput(t *testing.T) {
	cols := dataset.DefaultColumns()
	persons := dataset.NewPersonTable(
		[]string{cols.CrashID, cols.CategoryMain, cols.EventP},
		[]map[string]string{
			{cols.CrashID: "1", cols.CategoryMain: "Cykel", cols.EventP: "elcykel"},
			{cols.CrashID: "1", cols.CategoryMain: "Motorfordon"},
		}, cols)

	outcome := NewPipeline(DefaultRules(), nil).Run(persons, cols)

	header := outcome.AugmentedHeader()
	assert.Equal(t, []string{cols.CrashID, cols.CategoryMain, cols.EventP,
		ColumnMicromobilityType, ColumnConfidence, ColumnStep, ColumnConflictPartner}, header)

	records := outcome.AugmentedRecords()
	assert.Equal(t, []string{"1", "Cykel", "elcykel", TypeEBike, ConfidenceMedium, StepPoliceSolo, "Motorfordon"}, records[0])
	assert.Equal(t, []string{"1", "Motorfordon", "", TypeNotApplicable, "", "", TypeNotApplicable}, records[1])
	assert.Equal(t, map[string]int{TypeEBike: 1}, outcome.CountByType())

	path := filepath.Join(t.TempDir(), "personer_classified.csv")
	require.NoError(t, outcome.WriteAugmentedCSV(path))
	reloaded, err := dataset.LoadPersons(path, cols)
	require.NoError(t, err)
	assert.Equal(t, TypeEBike, reloaded.Rows[0].Field(ColumnMicromobilityType))
}

func TestRules_Validate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.Priority = []string{TypeEScooter, TypeConventional}
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Priority = append(r.Priority, TypeEBike)
	assert.Error(t, r.Validate())
}

func TestNormalizeElementRef(t *testing.T) {
	assert.Equal(t, "2", normalizeElementRef("2.0"))
	assert.Equal(t, "2", normalizeElementRef(" 02 "))
	assert.Equal(t, "", normalizeElementRef("2.5"))
	assert.Equal(t, "", normalizeElementRef("x"))
	assert.Equal(t, "", normalizeElementRef(""))
}
