// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package dataset

// Columns maps each logical field to its header name in the exported files.
// Upstream schema changes only need an edit here (or in the config file).
type Columns struct {
	CrashID      string `yaml:"crash_id"`
	CrashType    string `yaml:"crash_type"`
	Year         string `yaml:"year"`
	Month        string `yaml:"month"`
	Day          string `yaml:"day"`
	TimeBucket   string `yaml:"time_bucket"`
	Age          string `yaml:"age"`
	Gender       string `yaml:"gender"`
	County       string `yaml:"county"`
	Municipality string `yaml:"municipality"`
	Street       string `yaml:"street"`

	// Road-user category: combined main group, combined sub-group and the
	// independently sourced police (P) and hospital (S) sub-groups.
	CategoryMain string `yaml:"category_main"`
	CategorySub  string `yaml:"category_sub"`
	CategoryP    string `yaml:"category_p"`
	CategoryS    string `yaml:"category_s"`

	RoleP  string `yaml:"role_p"`
	RoleS  string `yaml:"role_s"`
	EventP string `yaml:"event_p"`
	EventS string `yaml:"event_s"`

	ElementRefP        string `yaml:"element_ref_p"`
	ConflictPartnerSub string `yaml:"conflict_partner_sub"`
}

// DefaultColumns returns the STRADA export headers
func DefaultColumns() Columns {
	return Columns{
		CrashID:            "Olycksnummer",
		CrashType:          "Olyckstyp",
		Year:               "År",
		Month:              "Månad",
		Day:                "Dag",
		TimeBucket:         "Klockslag grupp (timme)",
		Age:                "Ålder",
		Gender:             "Kön",
		County:             "Län",
		Municipality:       "Kommun",
		Street:             "Olycksväg/-gata",
		CategoryMain:       "Sammanvägd Trafikantkategori - Huvudgrupp",
		CategorySub:        "Sammanvägd Trafikantkategori - Undergrupp",
		CategoryP:          "Trafikantkategori (P) - Undergrupp",
		CategoryS:          "Trafikantkategori (S) - Undergrupp",
		RoleP:              "Trafikantroll (P)",
		RoleS:              "Trafikantroll (S)",
		EventP:             "Händelseförlopp (P)",
		EventS:             "Händelseförlopp (S)",
		ElementRefP:        "Trafikelement Nr (P)",
		ConflictPartnerSub: "I Konflikt med - Undergrupp",
	}
}

// WithDefaults fills every empty field from DefaultColumns
func (c Columns) WithDefaults() Columns {
	d := DefaultColumns()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.CrashID, d.CrashID)
	fill(&c.CrashType, d.CrashType)
	fill(&c.Year, d.Year)
	fill(&c.Month, d.Month)
	fill(&c.Day, d.Day)
	fill(&c.TimeBucket, d.TimeBucket)
	fill(&c.Age, d.Age)
	fill(&c.Gender, d.Gender)
	fill(&c.County, d.County)
	fill(&c.Municipality, d.Municipality)
	fill(&c.Street, d.Street)
	fill(&c.CategoryMain, d.CategoryMain)
	fill(&c.CategorySub, d.CategorySub)
	fill(&c.CategoryP, d.CategoryP)
	fill(&c.CategoryS, d.CategoryS)
	fill(&c.RoleP, d.RoleP)
	fill(&c.RoleS, d.RoleS)
	fill(&c.EventP, d.EventP)
	fill(&c.EventS, d.EventS)
	fill(&c.ElementRefP, d.ElementRefP)
	fill(&c.ConflictPartnerSub, d.ConflictPartnerSub)
	return c
}

// Resolve maps a logical field key (the yaml tag) to its header name.
// Unknown keys are returned unchanged so raw header names also work.
func (c Columns) Resolve(key string) string {
	switch key {
	case "crash_id":
		return c.CrashID
	case "crash_type":
		return c.CrashType
	case "year":
		return c.Year
	case "month":
		return c.Month
	case "day":
		return c.Day
	case "time_bucket":
		return c.TimeBucket
	case "age":
		return c.Age
	case "gender":
		return c.Gender
	case "county":
		return c.County
	case "municipality":
		return c.Municipality
	case "street":
		return c.Street
	case "category_main":
		return c.CategoryMain
	case "category_sub":
		return c.CategorySub
	case "category_p":
		return c.CategoryP
	case "category_s":
		return c.CategoryS
	case "role_p":
		return c.RoleP
	case "role_s":
		return c.RoleS
	case "event_p":
		return c.EventP
	case "event_s":
		return c.EventS
	case "element_ref_p":
		return c.ElementRefP
	case "conflict_partner_sub":
		return c.ConflictPartnerSub
	default:
		return key
	}
}
