// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"strada-check/internal/config"
	"strada-check/internal/store"
	"strada-check/internal/testutil"
	"strada-check/internal/version"
)

// execute runs the command tree with an isolated config directory
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{logger: zap.NewNop(), stdout: &out, stderr: &errOut}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("STRADA_CHECK_CONFIG_DIR", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestVerify_WritesReports(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)
	out := filepath.Join(dir, "reports")

	stdout, err := execute(t, "verify", "--crashes", crashes, "--persons", persons, "--format", "both", "-o", out)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Crashes: 4   Persons: 5")
	assert.Contains(t, stdout, "Verification Summary")
	assert.Contains(t, stdout, "G1")
	assert.NotContains(t, stdout, "Cykel presence", "cycling checks run only on request")
	assert.Contains(t, stdout, "total issues found")

	text, err := os.ReadFile(filepath.Join(out, "strada_quality_report.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "STRADA Data Quality Assessment Report")
	assert.FileExists(t, filepath.Join(out, "strada_quality_report.csv"))
}

func TestVerify_CyclingSelectionAsJSON(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)

	stdout, err := execute(t, "verify", "--crashes", crashes, "--persons", persons,
		"--cycling", "--checks", "c1,c2", "--format", "json", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "C1")
	assert.Contains(t, stdout, "C2")
	assert.NotContains(t, stdout, "Crash-ID (Olycksnummer) consistency")

	data, err := os.ReadFile(filepath.Join(dir, "strada_quality_report.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestVerify_FailOnIssues(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)

	_, err := execute(t, "verify", "--crashes", crashes, "--persons", persons, "-o", dir, "--fail-on-issues")
	assert.ErrorIs(t, err, errIssuesFound)
}

func TestVerify_Errors(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"--crashes", filepath.Join(dir, "nope.csv"), "--persons", persons}, "failed to load crashes"},
		{"missing flag", []string{"--crashes", crashes}, "persons"},
		{"unknown profile", []string{"--crashes", crashes, "--persons", persons, "--profile", "nope"}, `profile "nope" not found`},
		{"unknown format", []string{"--crashes", crashes, "--persons", persons, "--format", "sarif"}, "unsupported format"},
		{"inverted years", []string{"--crashes", crashes, "--persons", persons, "--year-start", "2022", "--year-end", "2020"}, "after --year-end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"verify", "-o", dir}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestVerify_SavesRunAndListsIt(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)
	db := filepath.Join(dir, "runs.db")

	_, err := execute(t, "verify", "--crashes", crashes, "--persons", persons, "-o", dir, "--sqlite", db)
	require.NoError(t, err)

	s, err := store.Open(db)
	require.NoError(t, err)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.Len(t, runs, 1)
	assert.Equal(t, store.KindVerify, runs[0].Kind)
	assert.Equal(t, "olyckor.csv, personer.csv", runs[0].Source)

	stdout, err := execute(t, "runs", "list", "--sqlite", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, runs[0].ID)

	stdout, err = execute(t, "runs", "show", runs[0].ID, "--sqlite", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "G3.1")

	_, err = execute(t, "runs", "delete", runs[0].ID, "--sqlite", db)
	require.NoError(t, err)
	_, err = execute(t, "runs", "show", runs[0].ID, "--sqlite", db)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
}

func TestRuns_NoDatabase(t *testing.T) {
	isolate(t)
	stdout, err := execute(t, "runs", "list", "--sqlite", filepath.Join(t.TempDir(), "missing.db"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "No runs recorded.")
}

func TestVerify_AppliesSuppressions(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)
	rules := filepath.Join(dir, "suppressions.yaml")

	_, err := execute(t, "suppress", "add", "--file", rules, "--check", "G1", "--crash", "5", "--reason", "known export gap")
	require.NoError(t, err)

	stdout, err := execute(t, "verify", "--crashes", crashes, "--persons", persons, "-o", dir, "--suppressions", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 findings suppressed")

	stdout, err = execute(t, "verify", "--crashes", crashes, "--persons", persons, "-o", dir, "--suppressions", rules, "--no-suppressions")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "findings suppressed")
}

func TestSuppress_Lifecycle(t *testing.T) {
	isolate(t)
	rules := filepath.Join(t.TempDir(), "suppressions.yaml")

	stdout, err := execute(t, "suppress", "list", "--file", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "No suppression rules found.")

	stdout, err = execute(t, "suppress", "add", "--file", rules, "--check", "g2", "--crash", "12", "--reason", "checked", "--expires-in-days", "30")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUP-00000001 for G2 crash 12")

	_, err = execute(t, "suppress", "add", "--file", rules, "--check", "G2", "--crash", "12", "--reason", "again")
	assert.Error(t, err)

	_, err = execute(t, "suppress", "add", "--file", rules, "--check", "G2", "--crash", "13")
	assert.Error(t, err, "reason is required")

	stdout, err = execute(t, "suppress", "list", "--file", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "SUP-00000001 (active)")

	_, err = execute(t, "suppress", "disable", "SUP-00000001", "--file", rules)
	require.NoError(t, err)
	stdout, err = execute(t, "suppress", "list", "--file", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(disabled)")

	_, err = execute(t, "suppress", "enable", "SUP-00000001", "--file", rules)
	require.NoError(t, err)

	stdout, err = execute(t, "suppress", "cleanup", "--file", rules)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleaned up 0 expired")

	_, err = execute(t, "suppress", "remove", "SUP-00000001", "--file", rules)
	require.NoError(t, err)
	_, err = execute(t, "suppress", "remove", "SUP-00000001", "--file", rules)
	assert.Error(t, err)
}

func TestSuppress_GenerateCreatesDisabledRules(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	crashes, persons := testutil.WriteDataset(t, dir)
	rules := filepath.Join(dir, "suppressions.yaml")

	stdout, err := execute(t, "suppress", "generate", "--file", rules, "--crashes", crashes, "--persons", persons)
	require.NoError(t, err)
	assert.Contains(t, stdout, "disabled suppression rules")
	assert.NotContains(t, stdout, "Generated 0 ")

	// Disabled rules leave the report untouched
	stdout, err = execute(t, "verify", "--crashes", crashes, "--persons", persons, "-o", dir, "--suppressions", rules)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "findings suppressed")

	// A second pass only refreshes existing rules
	stdout, err = execute(t, "suppress", "generate", "--file", rules, "--crashes", crashes, "--persons", persons)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Generated 0 disabled")
}

func TestClassify_WritesAugmentedCSV(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	_, persons := testutil.WriteDataset(t, dir)
	out := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.db")

	stdout, err := execute(t, "classify", "--persons", persons, "-o", out, "--sqlite", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Persons: 5")
	assert.Contains(t, stdout, "Micromobility Classification")
	assert.Contains(t, stdout, "CL.1")
	assert.Contains(t, stdout, "Classification complete.")

	data, err := os.ReadFile(filepath.Join(out, defaultAugmentedName))
	require.NoError(t, err)
	header := strings.SplitN(strings.TrimPrefix(string(data), "\ufeff"), "\n", 2)[0]
	assert.True(t, strings.HasSuffix(strings.TrimSpace(header),
		"Micromobility_type,Classification_confidence,Classification_step,Conflict_partner"))
	assert.FileExists(t, filepath.Join(out, classifyReportName+".txt"))

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.KindClassify, runs[0].Kind)
	assert.Equal(t, 5, runs[0].PersonCount)
}

func TestClassify_MissingColumn(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	persons := filepath.Join(dir, "personer.csv")
	require.NoError(t, os.WriteFile(persons, []byte("Olycksnummer,Kön\n1,Man\n"), 0o600))

	_, err := execute(t, "classify", "--persons", persons, "-o", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestPreprocess(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "strada.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Olyckor"))
	require.NoError(t, f.SetSheetRow("Olyckor", "A1", &[]interface{}{"Olycksnummer", "År"}))
	require.NoError(t, f.SetSheetRow("Olyckor", "A2", &[]interface{}{"1", "2019"}))
	_, err := f.NewSheet("Personer")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Personer", "A1", &[]interface{}{"Olycksnummer", "År"}))
	require.NoError(t, f.SetSheetRow("Personer", "A2", &[]interface{}{"1", "2019"}))
	require.NoError(t, f.SaveAs(xlsx))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "csv")
	stdout, err := execute(t, "preprocess", "-e", xlsx, "-o", out, "--year-start", "2016", "--year-end", "2024")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Preprocessing complete.")
	for _, name := range []string{"Olyckor.csv", "Personer.csv", "Olyckor-2016-2024.csv", "Personer-2016-2024.csv"} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	_, err = execute(t, "preprocess", "-e", filepath.Join(dir, "data.csv"), "-o", out)
	assert.Error(t, err)
}

func TestChecksAndProfiles(t *testing.T) {
	isolate(t)
	stdout, err := execute(t, "checks")
	require.NoError(t, err)
	for _, id := range []string{"G1", "G6", "C1", "C3"} {
		assert.Contains(t, stdout, id)
	}
	assert.Contains(t, stdout, "Olycksnummer")

	stdout, err = execute(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cycling")
	assert.Contains(t, stdout, "generic")
}

func TestVersion(t *testing.T) {
	isolate(t)
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "strada-check "))

	stdout, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.NotEmpty(t, info.GoVersion)
}

func TestResolve_Precedence(t *testing.T) {
	cfg := config.Default()
	cfg.Defaults.Format = "json"
	cfg.Defaults.YearStart = 2010

	newCmd := func(a *app, f *runFlags) *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().StringVar(&f.checks, "checks", "", "")
		cmd.Flags().BoolVar(&f.cycling, "cycling", false, "")
		cmd.Flags().BoolVar(&a.verbose, "verbose", false, "")
		f.registerYears(cmd)
		f.registerOutput(cmd, "text")
		return cmd
	}

	t.Run("config defaults", func(t *testing.T) {
		a, f := &app{cfg: cfg}, &runFlags{}
		cmd := newCmd(a, f)
		require.NoError(t, cmd.ParseFlags(nil))
		run, err := a.resolve(cmd, f)
		require.NoError(t, err)
		assert.Equal(t, "json", run.Format)
		assert.Equal(t, 2010, run.YearStart)
		assert.False(t, run.Domain)
	})

	t.Run("profile over config", func(t *testing.T) {
		a, f := &app{cfg: cfg, profileName: "cycling"}, &runFlags{}
		cmd := newCmd(a, f)
		require.NoError(t, cmd.ParseFlags(nil))
		run, err := a.resolve(cmd, f)
		require.NoError(t, err)
		assert.Equal(t, "text", run.Format)
		assert.True(t, run.Domain)
	})

	t.Run("flags over profile", func(t *testing.T) {
		a, f := &app{cfg: cfg, profileName: "cycling"}, &runFlags{}
		cmd := newCmd(a, f)
		require.NoError(t, cmd.ParseFlags([]string{"--cycling=false", "--format", "yaml", "--checks", "G2", "--year-start", "2018", "--verbose"}))
		run, err := a.resolve(cmd, f)
		require.NoError(t, err)
		assert.Equal(t, "yaml", run.Format)
		assert.Equal(t, "G2", run.Checks)
		assert.Equal(t, 2018, run.YearStart)
		assert.False(t, run.Domain)
		assert.True(t, run.Verbose)
	})
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"text", "csv", "json"}, formats("both, JSON,csv"))
	assert.Equal(t, []string{"yaml"}, formats("yaml"))
	assert.Empty(t, formats(" , "))
}
