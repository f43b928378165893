// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package classify assigns a micromobility type to every cycling person
// from police and hospital narratives, structured sub-groups and crash
// context, then cross-checks the result.
package classify

import (
	"fmt"
	"sort"
)

// Micromobility types
const (
	TypeEScooter      = "E-scooter"
	TypeEBike         = "E-bike"
	TypeWheelchair    = "rullstol/permobil"
	TypeOther         = "other_micromobility"
	TypeConventional  = "Conventional bicycle"
	TypeNotApplicable = "N/A"
)

// Rules is the immutable configuration injected into the matcher and the
// pipeline. It can be loaded from the config file's classification section.
type Rules struct {
	CyclingCategory string `yaml:"cycling_category"`

	// Keywords lists the narrative keywords per micromobility type
	Keywords map[string][]string `yaml:"keywords"`
	// WholeWord keywords only match on a word boundary
	WholeWord []string `yaml:"whole_word"`
	// Priority resolves multiple matches, earliest wins
	Priority []string `yaml:"priority"`

	SubgroupMap       map[string]string   `yaml:"subgroup_map"`
	SpecificSubgroups []string            `yaml:"specific_subgroups"`
	PartnerExclusions map[string][]string `yaml:"partner_exclusions"`

	ElectricSubgroups []string `yaml:"electric_subgroups"`
	ElectricTypes     []string `yaml:"electric_types"`
	DefaultType       string   `yaml:"default_type"`

	// ElementRefWords introduce a numbered element in police narratives,
	// e.g. "Trafikelement 2 (elsparkcykel)".
	ElementRefWords []string `yaml:"element_ref_words"`
}

// DefaultRules returns the STRADA keyword tables and lookup maps
func DefaultRules() Rules {
	return Rules{
		CyclingCategory: "Cykel",
		Keywords: map[string][]string{
			TypeEScooter: {
				"elscooter", "elspark", "el-spark", "elkickbike", "el-kickbike",
				"kickbike", "elsparkcykel", "el-sparkcykel", "elsparkcyklar",
				"el-sparkcyklar", "elsparkscykel", "elsparkscyklar", "el-sparkscykel",
				"elsparken", "elscootern", "e-scooter", "e-scootern",
				"elscootrar", "elscootrarna", "scooter", "scootern", "scootrar",
				"skoter", "skotern", "skotrar", "elskoter", "el-skoter",
				"el sparkcykel", "el sparkscykel", "el sparkcyklar",
				"el scooter", "el-scooter",
				"elsparcykel", "el-sparcykel", "elsparcykeln",
				"elsparkcykeln", "elsparkcyklarna",
				"el-sparkcykeln", "el-sparkcyklarna",
				"elsarkcykel", "elparkcykel", "elsparlcykel", "el-sparlcykel",
				"el-sparlcyklar", "elsparlcyklar",
				"scotter", "elscotter", "el-scotter",
				"elscoter", "el-scotty", "sparkcykel",
				"voi", "voien", "VOJ", "lime", "bird", "tier", "ryde",
				"spark", "Eldrivet enpersonsfordon", "elsparcyklar", "El-kick",
				"eldrivet enpersonfordon", "Eldrivna enpersonsfordonet",
				"elsccoter",
			},
			TypeEBike: {
				"elcykel", "e-bike", "elcyklar", "el-cykel", "el-cyklar",
				"elcykler", "elcykeln", "elcyklarna", "elcykelar", "elcykelarna",
				"eldriven cyklar", "eldriven cykel",
				"el-driven cykel", "el driven cykel",
				"el driven cyklar", "el-driven cyklar",
				"el-cykeln", "el-cyklarna",
				"fatbike", "fat-bike", "fatbiken",
				"speed pedelec", "speedpedelec",
				"el-bike", "el bike", "elcyckel",
				"lådcykeln", "låd cykel", "lådcykel",
				"elcyklist", "el-cyklist",
			},
			TypeWheelchair: {
				"rullstol", "permobil", "elrullstol", "el-rullstol", "rullstolar",
			},
			TypeOther: {
				"elskateboarden", "elskateboard", "enhjuling", "onewheel",
				"el-skateboard", "elmoped", "långboard", "el-långboard",
				"hoverboard", "elhoverboard", "el-hoverboard", "moped", "el-moped",
				"skateboard", "inlines",
			},
		},
		WholeWord: []string{"voi", "voien", "voj", "lime", "bird", "tier", "ryde", "spark"},
		Priority:  []string{TypeEScooter, TypeEBike, TypeWheelchair, TypeOther, TypeConventional},
		SubgroupMap: map[string]string{
			"Elcykel":                  TypeEBike,
			"Eldrivet enpersonsfordon": TypeEScooter,
			"Eldriven rullstol":        TypeWheelchair,
			"Sparkcykel":               TypeEScooter,
			"Rullstol":                 TypeWheelchair,
			"Inlines":                  TypeOther,
			"Skateboard":               TypeOther,
			"Cykel - Annan":            TypeConventional,
			"Cykel":                    TypeConventional,
		},
		SpecificSubgroups: []string{"Eldrivet enpersonsfordon", "Elcykel", "Eldriven rullstol"},
		PartnerExclusions: map[string][]string{
			TypeEScooter:   {"Eldrivet enpersonsfordon", "Sparkcykelåkare"},
			TypeEBike:      {"Elcykel"},
			TypeWheelchair: {"Eldriven rullstol", "Rullstolsburen"},
		},
		ElectricSubgroups: []string{"Elcykel", "Eldrivet enpersonsfordon", "Sparkcykel", "Eldriven rullstol"},
		ElectricTypes:     []string{TypeEScooter, TypeEBike},
		DefaultType:       TypeConventional,
		ElementRefWords:   []string{"trafikelement", "element", "te", "fordon", "cyklist", "part"},
	}
}

// WithDefaults fills every unset field from DefaultRules
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	if r.CyclingCategory == "" {
		r.CyclingCategory = d.CyclingCategory
	}
	if len(r.Keywords) == 0 {
		r.Keywords = d.Keywords
	}
	if r.WholeWord == nil {
		r.WholeWord = d.WholeWord
	}
	if len(r.Priority) == 0 {
		r.Priority = d.Priority
	}
	if r.SubgroupMap == nil {
		r.SubgroupMap = d.SubgroupMap
	}
	if r.SpecificSubgroups == nil {
		r.SpecificSubgroups = d.SpecificSubgroups
	}
	if r.PartnerExclusions == nil {
		r.PartnerExclusions = d.PartnerExclusions
	}
	if r.ElectricSubgroups == nil {
		r.ElectricSubgroups = d.ElectricSubgroups
	}
	if len(r.ElectricTypes) == 0 {
		r.ElectricTypes = d.ElectricTypes
	}
	if r.DefaultType == "" {
		r.DefaultType = d.DefaultType
	}
	if r.ElementRefWords == nil {
		r.ElementRefWords = d.ElementRefWords
	}
	return r
}

// Validate checks that every keyword category and mapped type is ranked
func (r Rules) Validate() error {
	ranked := make(map[string]bool, len(r.Priority))
	for _, p := range r.Priority {
		if ranked[p] {
			return fmt.Errorf("priority lists %q twice", p)
		}
		ranked[p] = true
	}
	for _, cat := range sortedKeys(r.Keywords) {
		if !ranked[cat] {
			return fmt.Errorf("keyword category %q is missing from priority", cat)
		}
	}
	for sub, typ := range r.SubgroupMap {
		if !ranked[typ] {
			return fmt.Errorf("subgroup %q maps to unranked type %q", sub, typ)
		}
	}
	if !ranked[r.DefaultType] {
		return fmt.Errorf("default type %q is missing from priority", r.DefaultType)
	}
	return nil
}

// categories returns keyword categories in priority order followed by any
// unranked ones sorted by name
func (r Rules) categories() []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range r.Priority {
		if _, ok := r.Keywords[p]; ok {
			out = append(out, p)
			seen[p] = true
		}
	}
	for _, cat := range sortedKeys(r.Keywords) {
		if !seen[cat] {
			out = append(out, cat)
		}
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
