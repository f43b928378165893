// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strada-check/internal/classify"
	"strada-check/internal/config"
	"strada-check/internal/dataset"
	"strada-check/internal/result"
	"strada-check/internal/suppressions"
	"strada-check/internal/testutil"
)

func loadFixture(t *testing.T) *dataset.Dataset {
	t.Helper()
	crashesPath, personsPath := testutil.WriteDataset(t, t.TempDir())
	ds, err := dataset.LoadPair(crashesPath, personsPath, dataset.DefaultColumns())
	require.NoError(t, err)
	return ds
}

func byID(results []result.Result) map[string]result.Result {
	out := make(map[string]result.Result)
	for _, r := range result.Flatten(results) {
		out[r.ID] = r
	}
	return out
}

func TestVerify_GenericOnly(t *testing.T) {
	res, err := Verify(context.Background(), loadFixture(t), VerifyConfig{})
	require.NoError(t, err)

	require.Len(t, res.Results, 6)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 4, res.CrashCount)
	assert.Equal(t, 5, res.PersonCount)

	g1 := byID(res.Results)["G1"]
	assert.Equal(t, 2, g1.IssueCount)
	assert.Equal(t, []string{"4", "5"}, g1.Details.Column("Olycksnummer"))
}

func TestVerify_DomainChecks(t *testing.T) {
	res, err := Verify(context.Background(), loadFixture(t), VerifyConfig{IncludeDomain: true, Parallel: 4})
	require.NoError(t, err)
	require.Len(t, res.Results, 9)

	ids := byID(res.Results)
	assert.Equal(t, 1, ids["C1"].IssueCount)
	assert.Equal(t, []string{"2"}, ids["C1"].Details.Column("Olycksnummer"))
	assert.Equal(t, []string{"3"}, ids["C2"].Details.Column("Olycksnummer"))
	assert.Equal(t, 0, ids["C3"].IssueCount)
	assert.Equal(t, res.TotalIssues(), result.TotalIssues(res.Results))
}

func TestVerify_SelectionAndYearFilter(t *testing.T) {
	res, err := Verify(context.Background(), loadFixture(t), VerifyConfig{
		Checks:        ParseCheckIDs("g1, c2"),
		IncludeDomain: true,
		YearStart:     2021,
		YearEnd:       2022,
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "G1", res.Results[0].ID)
	assert.Equal(t, "C2", res.Results[1].ID)
	assert.Equal(t, 3, res.CrashCount)
	assert.Equal(t, 4, res.PersonCount)
	assert.Equal(t, []string{"4", "5"}, res.Results[0].Details.Column("Olycksnummer"))
}

func TestVerify_AppliesSuppressions(t *testing.T) {
	sm := suppressions.NewSuppressionManager(filepath.Join(t.TempDir(), "s.yaml"))
	_, err := sm.AddCrashSuppression("G1", "5", "known orphan", "tester", nil)
	require.NoError(t, err)

	res, err := Verify(context.Background(), loadFixture(t), VerifyConfig{Checks: []string{"G1"}, SuppressionManager: sm})
	require.NoError(t, err)
	require.Len(t, res.Suppressed, 1)
	assert.Equal(t, 1, res.Results[0].IssueCount)

	report := res.Report("")
	assert.Equal(t, res.RunID, report.RunID)
	assert.Len(t, report.Suppressed, 1)
}

func TestVerify_Errors(t *testing.T) {
	_, err := Verify(context.Background(), nil, VerifyConfig{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Verify(ctx, loadFixture(t), VerifyConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify_DebugObserverTraces(t *testing.T) {
	var buf bytes.Buffer
	observer := NewObserver(true, &buf)

	res, err := Verify(context.Background(), loadFixture(t), VerifyConfig{Observer: observer})
	require.NoError(t, err)
	assert.Equal(t, observer.RunID(), res.RunID)
	assert.Contains(t, buf.String(), "core: verify")
	assert.Contains(t, buf.String(), "run_check")
}

func TestClassify(t *testing.T) {
	ds := loadFixture(t)
	res, err := Classify(context.Background(), ds.Persons, ClassifyConfig{})
	require.NoError(t, err)

	outcome := res.Outcome
	require.Len(t, outcome.Persons, 5)
	assert.Equal(t, classify.TypeEScooter, outcome.Persons[0].MicromobilityType)
	assert.Equal(t, classify.StepPoliceSolo, outcome.Persons[0].Step)
	assert.Equal(t, classify.TypeNotApplicable, outcome.Persons[3].MicromobilityType)
	assert.Equal(t, classify.TypeEBike, outcome.Persons[4].MicromobilityType)
	assert.Equal(t, 4, outcome.Stats.TotalCycling)

	report := res.Report("Classification")
	require.NotNil(t, report.Classification)
	assert.Equal(t, classify.TypeEScooter, report.Classification.TypeCounts[0].Type)
	assert.Equal(t, 1, report.Classification.TypeCounts[0].Count)
	assert.Equal(t, outcome.Verification, report.Results)
}

func TestClassify_MissingColumns(t *testing.T) {
	persons := dataset.NewPersonTable([]string{"Olycksnummer"}, nil, dataset.DefaultColumns())
	_, err := Classify(context.Background(), persons, ClassifyConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, err = Classify(context.Background(), nil, ClassifyConfig{})
	assert.Error(t, err)
}

func TestClassify_InvalidRules(t *testing.T) {
	ds := loadFixture(t)
	rules := classify.DefaultRules()
	rules.Priority = []string{classify.TypeEScooter}
	_, err := Classify(context.Background(), ds.Persons, ClassifyConfig{Rules: rules})
	assert.Error(t, err)
}

func TestBuildConfigs(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Parallel = 3
	run := cfg.Effective(cfg.GetProfile("cycling"))
	run.YearStart = 2020

	vc := BuildVerifyConfig(cfg, run)
	assert.True(t, vc.IncludeDomain)
	assert.Nil(t, vc.Checks)
	assert.Equal(t, 3, vc.Parallel)
	assert.Equal(t, 2020, vc.YearStart)
	assert.Equal(t, cfg.Checks, vc.Settings)

	cc := BuildClassifyConfig(cfg, run)
	assert.Equal(t, cfg.Columns, cc.Columns)
	assert.Equal(t, 2020, cc.YearStart)
}

func TestParseCheckIDs(t *testing.T) {
	assert.Nil(t, ParseCheckIDs("all"))
	assert.Nil(t, ParseCheckIDs(""))
	assert.Equal(t, []string{"G1", "C3"}, ParseCheckIDs(" g1 ,c3,"))
}
