// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides a small STRADA export pair shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CrashesCSV has four crashes. Crash 4 has no persons.
const CrashesCSV = `Olycksnummer,Olyckstyp,År,Län,Kommun
1,G1 (cykel singel),2020,Stockholms län,Stockholm
2,G1 (cykel singel),2021,Stockholms län,Solna
3,Annan,2022,Skåne län,Malmö
4,Annan,2022,Skåne län,Lund
`

// PersonsCSV has five persons. Crash 2 is a solo-cyclist crash with a
// passenger, crash 3 has no cyclist and crash 5 is unknown to the crashes
// table.
const PersonsCSV = `Olycksnummer,Olyckstyp,År,Månad,Dag,Klockslag grupp (timme),Ålder,Kön,Län,Kommun,Olycksväg/-gata,Sammanvägd Trafikantkategori - Huvudgrupp,Sammanvägd Trafikantkategori - Undergrupp,Trafikantkategori (P) - Undergrupp,Trafikantkategori (S) - Undergrupp,Trafikantroll (P),Trafikantroll (S),Händelseförlopp (P),Händelseförlopp (S),Trafikelement Nr (P),I Konflikt med - Undergrupp
1,G1 (cykel singel),2020,5,3,13:00-13:59,34,Man,Stockholms län,Stockholm,Sveavägen,Cykel,Eldrivet enpersonsfordon,Eldrivet enpersonsfordon,,Förare,,Föraren av elsparkcykeln körde omkull,,1,
2,G1 (cykel singel),2021,6,7,08:00-08:59,41,Kvinna,Stockholms län,Solna,Råsundavägen,Cykel,Cykel,Cykel,Cykel,Förare,Förare,,Föll med sin cykel,1,
2,G1 (cykel singel),2021,6,7,08:00-08:59,9,Man,Stockholms län,Solna,Råsundavägen,Cykel,Cykel,Cykel,Cykel,Passagerare bak,,,,1,
3,Annan,2022,8,1,17:00-17:59,55,Man,Skåne län,Malmö,Amiralsgatan,Personbil,Personbil,Personbil,,Förare,,,,1,
5,Annan,2022,9,9,10:00-10:59,28,Kvinna,Skåne län,Lund,Storgatan,Cykel,Elcykel,Elcykel,,Förare,,Cyklisten på elcykeln krockade,,1,
`

// WriteDataset writes the pair into dir and returns both paths
func WriteDataset(t testing.TB, dir string) (crashesPath, personsPath string) {
	t.Helper()
	crashesPath = filepath.Join(dir, "olyckor.csv")
	personsPath = filepath.Join(dir, "personer.csv")
	if err := os.WriteFile(crashesPath, []byte(CrashesCSV), 0600); err != nil {
		t.Fatalf("write crashes: %v", err)
	}
	if err := os.WriteFile(personsPath, []byte(PersonsCSV), 0600); err != nil {
		t.Fatalf("write persons: %v", err)
	}
	return crashesPath, personsPath
}
