// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

// Settings holds the domain values the checks compare against
type Settings struct {
	CyclingCategory string `yaml:"cycling_category"`
	SoloCrashType   string `yaml:"solo_crash_type"`
	GenderUnknown   string `yaml:"gender_unknown"`
	// PassengerRoles are matched as substrings of the role columns (C3)
	PassengerRoles []string `yaml:"passenger_roles"`
	// PassengerKeyword is matched case-insensitively when counting passengers (C1)
	PassengerKeyword string `yaml:"passenger_keyword"`
	// DuplicateColumns are the logical column keys forming the G6 signature
	DuplicateColumns []string `yaml:"duplicate_columns"`
}

// DefaultSettings returns the STRADA values
func DefaultSettings() Settings {
	return Settings{
		CyclingCategory: "Cykel",
		SoloCrashType:   "G1 (cykel singel)",
		GenderUnknown:   "Uppgift saknas",
		PassengerRoles: []string{
			// Misspelling is as exported
			"Passsagerare övrig/okänd plats",
			"Passagerare bak",
			"Passagerare fram",
		},
		PassengerKeyword: "passagerare",
		DuplicateColumns: []string{
			"age", "year", "month", "day", "gender", "county",
			"municipality", "time_bucket", "street", "category_main",
		},
	}
}

// WithDefaults fills every unset field from DefaultSettings
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.CyclingCategory == "" {
		s.CyclingCategory = d.CyclingCategory
	}
	if s.SoloCrashType == "" {
		s.SoloCrashType = d.SoloCrashType
	}
	if s.GenderUnknown == "" {
		s.GenderUnknown = d.GenderUnknown
	}
	if len(s.PassengerRoles) == 0 {
		s.PassengerRoles = d.PassengerRoles
	}
	if s.PassengerKeyword == "" {
		s.PassengerKeyword = d.PassengerKeyword
	}
	if len(s.DuplicateColumns) == 0 {
		s.DuplicateColumns = d.DuplicateColumns
	}
	return s
}
