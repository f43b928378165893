// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/observability"
)

// Confidence levels
const (
	ConfidenceHigh    = "high"
	ConfidenceMedium  = "medium"
	ConfidenceLow     = "low"
	ConfidenceDefault = "default"
)

// Step tags recorded on each classified person
const (
	StepPoliceSolo         = "step1_solo"
	StepPoliceElementRef   = "step1_element_ref"
	StepPoliceSubgroupXref = "step1_subgroup_xref"
	StepHospitalSolo       = "step2_solo"
	StepHospitalPartner    = "step2_partner_exclusion"
	StepHospitalPerPerson  = "step2_per_person"
	StepSubgroupFallback   = "step3_subgroup"
	StepDefault            = "step4_default"
)

// Classified is a person together with its classification columns. Persons
// outside the cycling category carry "N/A" and empty provenance.
type Classified struct {
	dataset.Person
	MicromobilityType string
	Confidence        string
	Step              string
	ConflictPartner   string
	// AllMatches is every category that fired before priority resolution
	AllMatches MatchSet
}

// Stats are diagnostic counters collected during one pipeline run
type Stats struct {
	TotalCycling int            `json:"total_cycling" yaml:"total_cycling"`
	SoloCrashes  int            `json:"solo_crashes" yaml:"solo_crashes"`
	MultiCrashes int            `json:"multi_crashes" yaml:"multi_crashes"`
	StepCounts   map[string]int `json:"step_counts" yaml:"step_counts"`
	GuardCounts  map[string]int `json:"guard_counts" yaml:"guard_counts"`
}

// Pipeline classifies cycling persons in four short-circuiting steps
type Pipeline struct {
	rules    Rules
	matcher  *Matcher
	guards   *guards
	observer *observability.StandardObserver
}

// NewPipeline builds a pipeline from rules. Missing rule fields fall back
// to DefaultRules.
func NewPipeline(rules Rules, observer *observability.StandardObserver) *Pipeline {
	rules = rules.WithDefaults()
	m := NewMatcher(rules)
	return &Pipeline{
		rules:    rules,
		matcher:  m,
		guards:   newGuards(rules, m),
		observer: observer,
	}
}

// GetComponentName returns the component identifier
func (p *Pipeline) GetComponentName() string {
	return "classify"
}

// Rules returns the effective rules
func (p *Pipeline) Rules() Rules {
	return p.rules
}

type assignment struct {
	category   string
	confidence string
	step       string
	matches    MatchSet
}

// Classify assigns a micromobility type to each cycling person. The input
// table is not modified; a new record is built per person.
func (p *Pipeline) Classify(persons *dataset.PersonTable) ([]Classified, Stats) {
	finish := p.observer.StartTiming(p.GetComponentName(), "classify", "")
	stats := Stats{StepCounts: map[string]int{}, GuardCounts: map[string]int{}}

	cyclists := make(map[string][]int)
	for i, person := range persons.Rows {
		if p.isCycling(person) {
			cyclists[person.CrashID] = append(cyclists[person.CrashID], i)
		}
	}
	for _, idx := range cyclists {
		if len(idx) == 1 {
			stats.SoloCrashes++
		} else {
			stats.MultiCrashes++
		}
	}

	out := make([]Classified, len(persons.Rows))
	for i, person := range persons.Rows {
		if !p.isCycling(person) {
			out[i] = Classified{Person: person, MicromobilityType: TypeNotApplicable}
			continue
		}
		stats.TotalCycling++

		var crashmates []dataset.Person
		for _, j := range cyclists[person.CrashID] {
			if j != i {
				crashmates = append(crashmates, persons.Rows[j])
			}
		}
		a := p.classifyPerson(person, crashmates, &stats)
		stats.StepCounts[a.step]++
		out[i] = Classified{
			Person:            person,
			MicromobilityType: a.category,
			Confidence:        a.confidence,
			Step:              a.step,
			AllMatches:        a.matches,
		}
	}

	finish(true, map[string]interface{}{
		"total_cycling": stats.TotalCycling,
		"solo_crashes":  stats.SoloCrashes,
		"multi_crashes": stats.MultiCrashes,
	})
	if d := observability.Debug(p.observer); d != nil {
		for step, n := range stats.StepCounts {
			d.LogMetric(p.GetComponentName(), step, n)
		}
	}
	return out, stats
}

func (p *Pipeline) isCycling(person dataset.Person) bool {
	return person.CategoryMain == p.rules.CyclingCategory
}

func (p *Pipeline) classifyPerson(person dataset.Person, crashmates []dataset.Person, stats *Stats) assignment {
	solo := len(crashmates) == 0
	var firstRaw MatchSet

	// Step 1: police narrative
	if strings.TrimSpace(person.EventP) != "" {
		raw := p.matcher.Find(person.EventP)
		firstRaw = raw
		if len(raw) > 0 {
			if a, ok := p.policeStep(person, crashmates, raw, solo, stats); ok {
				return p.finalize(person, a)
			}
		}
	}

	// Step 2: hospital narrative
	if strings.TrimSpace(person.EventS) != "" {
		raw := p.matcher.Find(person.EventS)
		if len(firstRaw) == 0 {
			firstRaw = raw
		}
		if len(raw) > 0 {
			if a, ok := p.hospitalStep(person, raw, solo, stats); ok {
				return p.finalize(person, a)
			}
		}
	}

	// Step 3: structured sub-group
	if typ, ok := p.rules.SubgroupMap[person.CategorySub]; ok && typ != p.rules.DefaultType {
		return assignment{category: typ, confidence: ConfidenceLow, step: StepSubgroupFallback, matches: firstRaw}
	}

	// Step 4: default
	return assignment{category: p.rules.DefaultType, confidence: ConfidenceDefault, step: StepDefault, matches: firstRaw}
}

func (p *Pipeline) policeStep(person dataset.Person, crashmates []dataset.Person, raw MatchSet, solo bool, stats *Stats) (assignment, bool) {
	if solo {
		stats.GuardCounts[GuardSolo]++
		return assignment{category: p.rules.Resolve(raw), step: StepPoliceSolo, matches: raw}, true
	}

	stats.GuardCounts[GuardElementRef]++
	if narrowed := p.guards.elementReference(person.EventP, person.ElementRefP); len(narrowed) > 0 {
		return assignment{category: p.rules.Resolve(narrowed), step: StepPoliceElementRef, matches: raw}, true
	}

	stats.GuardCounts[GuardSubgroupXref]++
	if filtered := p.guards.subgroupCrossRef(person, crashmates, raw); len(filtered) > 0 {
		return assignment{category: p.rules.Resolve(filtered), step: StepPoliceSubgroupXref, matches: raw}, true
	}
	return assignment{}, false
}

func (p *Pipeline) hospitalStep(person dataset.Person, raw MatchSet, solo bool, stats *Stats) (assignment, bool) {
	if solo {
		stats.GuardCounts[GuardSolo]++
		return assignment{category: p.rules.Resolve(raw), step: StepHospitalSolo, matches: raw}, true
	}

	if strings.TrimSpace(person.ConflictPartnerSub) != "" {
		stats.GuardCounts[GuardPartnerExclusion]++
		filtered := p.guards.partnerExclusion(person.ConflictPartnerSub, raw)
		if len(filtered) == 0 {
			return assignment{}, false
		}
		return assignment{category: p.rules.Resolve(filtered), step: StepHospitalPartner, matches: raw}, true
	}

	// Hospital narratives are written per person, so an unfiltered match is
	// accepted at reduced confidence.
	stats.GuardCounts[GuardPerPerson]++
	return assignment{category: p.rules.Resolve(raw), confidence: ConfidenceMedium, step: StepHospitalPerPerson, matches: raw}, true
}

// finalize sets confidence from sub-group agreement when the step left it open
func (p *Pipeline) finalize(person dataset.Person, a assignment) assignment {
	if a.confidence != "" {
		return a
	}
	if typ, ok := p.rules.SubgroupMap[person.CategorySub]; ok && typ == a.category {
		a.confidence = ConfidenceHigh
	} else {
		a.confidence = ConfidenceMedium
	}
	return a
}
