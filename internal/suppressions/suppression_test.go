// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strada-check/internal/result"
)

func newTestManager(t *testing.T) *SuppressionManager {
	t.Helper()
	return NewSuppressionManager(filepath.Join(t.TempDir(), "suppressions.yaml"))
}

func sampleResults() []result.Result {
	pVsS := result.NewTable("Olycksnummer", "P", "S")
	pVsS.Add("100", "Cykel", "Moped")
	pVsS.Add("200", "Cykel", "Bil")
	allMissing := result.NewTable("Olycksnummer")
	allMissing.Add("300")

	g3 := result.Aggregate("G3", "Road-user category", []result.Result{
		result.New("G3.1", "All missing", "1 persons", 1, allMissing),
		result.New("G3.2", "P vs S", "2 mismatches", 2, pVsS),
	})

	dupes := result.NewTable("Olycksnummer", "Num_crashes")
	dupes.Add("10, 11", "2")
	g6 := result.New("G6", "Duplicates", "1 group", 1, dupes)

	return []result.Result{g3, g6, result.New("G1", "Ids", "ok", 0, nil)}
}

func TestNewSuppressionManager_NoFile(t *testing.T) {
	sm := NewSuppressionManager("/nonexistent/path.yaml")
	require.NotNil(t, sm)
	assert.True(t, sm.IsEnabled())
	assert.Empty(t, sm.ListSuppressions())
}

func TestFindings(t *testing.T) {
	findings := Findings(sampleResults())
	require.Len(t, findings, 4)
	assert.Equal(t, "G3.1", findings[0].CheckID)
	assert.Equal(t, []string{"300"}, findings[0].CrashIDs())
	assert.Equal(t, []string{"10", "11"}, findings[3].CrashIDs())
}

func TestFindingHash_Stable(t *testing.T) {
	f := Finding{CheckID: "g3.2", Row: []string{"100", "Cykel", "Moped"}}
	g := Finding{CheckID: "G3.2", Row: []string{"100", "Cykel", "Moped"}}
	h := Finding{CheckID: "G3.2", Row: []string{"100", "Cykel", "Bil"}}

	assert.Equal(t, FindingHash(f), FindingHash(g))
	assert.NotEqual(t, FindingHash(f), FindingHash(h))
}

func TestAddAndIsSuppressed(t *testing.T) {
	sm := newTestManager(t)
	f := Findings(sampleResults())[1]

	rule, err := sm.AddSuppression(f, "known export artefact", "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, "SUP-00000001", rule.ID)
	assert.Equal(t, "G3.2", rule.CheckID)
	assert.Equal(t, "100", rule.CrashID)
	require.NotNil(t, rule.ExpiresAt)

	suppressed, got := sm.IsSuppressed(f)
	assert.True(t, suppressed)
	require.NotNil(t, got)
	assert.Equal(t, "known export artefact", got.Reason)

	_, err = sm.AddSuppression(f, "again", "tester", nil)
	assert.ErrorIs(t, err, ErrRuleExists)
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "suppressions.yaml")
	sm := NewSuppressionManager(path)
	_, err := sm.AddCrashSuppression("g6", "11", "same person", "tester", nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded := NewSuppressionManager(path)
	rules := reloaded.ListSuppressions()
	require.Len(t, rules, 1)
	assert.Equal(t, "G6", rules[0].CheckID)
	assert.Equal(t, "11", rules[0].CrashID)
}

func TestApply_RecountsBottomUp(t *testing.T) {
	sm := newTestManager(t)
	_, err := sm.AddCrashSuppression("G3.2", "100", "reviewed", "tester", nil)
	require.NoError(t, err)
	_, err = sm.AddCrashSuppression("G6", "10", "reviewed", "tester", nil)
	require.NoError(t, err)

	input := sampleResults()
	out, suppressed := sm.Apply(input)
	require.Len(t, suppressed, 2)
	assert.Equal(t, "G3.2", suppressed[0].CheckID)
	assert.Equal(t, []string{"100", "Cykel", "Moped"}, suppressed[0].Row)

	g3 := out[0]
	assert.Equal(t, 2, g3.IssueCount)
	assert.Equal(t, 1, g3.SubResults[1].IssueCount)
	assert.Contains(t, g3.SubResults[1].Summary, "(1 suppressed)")

	g6 := out[1]
	assert.Equal(t, 0, g6.IssueCount)
	assert.Equal(t, result.StatusPass, g6.Status)
	assert.Nil(t, g6.Details)

	// Input untouched
	assert.Equal(t, 3, input[0].IssueCount)
	assert.Equal(t, 1, input[1].IssueCount)
}

func TestApply_ExpiredAndDisabledRulesIgnored(t *testing.T) {
	sm := newTestManager(t)
	past := time.Now().Add(-time.Hour)
	expired, err := sm.AddCrashSuppression("G3.1", "300", "old", "tester", &past)
	require.NoError(t, err)
	disabled, err := sm.AddCrashSuppression("G3.2", "200", "off", "tester", nil)
	require.NoError(t, err)
	require.NoError(t, sm.SetRuleEnabled(disabled.ID, false))

	out, suppressed := sm.Apply(sampleResults())
	assert.Empty(t, suppressed)
	assert.Equal(t, 3, out[0].IssueCount)

	removed, err := sm.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	for _, r := range sm.ListSuppressions() {
		assert.NotEqual(t, expired.ID, r.ID)
	}
}

func TestApply_ManagerDisabled(t *testing.T) {
	sm := newTestManager(t)
	_, err := sm.AddCrashSuppression("G3.1", "300", "r", "tester", nil)
	require.NoError(t, err)

	sm.SetEnabled(false)
	_, suppressed := sm.Apply(sampleResults())
	assert.Empty(t, suppressed)
}

func TestRemoveSuppression(t *testing.T) {
	sm := newTestManager(t)
	rule, err := sm.AddCrashSuppression("G1", "5", "r", "tester", nil)
	require.NoError(t, err)

	require.NoError(t, sm.RemoveSuppression(rule.ID))
	assert.Empty(t, sm.ListSuppressions())
	assert.ErrorIs(t, sm.RemoveSuppression(rule.ID), ErrRuleNotFound)
	assert.ErrorIs(t, sm.SetRuleEnabled("SUP-99999999", true), ErrRuleNotFound)
}

func TestAddCrashSuppression_Validation(t *testing.T) {
	sm := newTestManager(t)
	_, err := sm.AddCrashSuppression("", "1", "r", "", nil)
	assert.Error(t, err)

	_, err = sm.AddCrashSuppression("G2", "1", "r", "", nil)
	require.NoError(t, err)
	_, err = sm.AddCrashSuppression("g2", " 1 ", "r", "", nil)
	assert.ErrorIs(t, err, ErrRuleExists)
}

func TestGenerateSuppressionRules(t *testing.T) {
	sm := newTestManager(t)
	findings := Findings(sampleResults())

	added, err := sm.GenerateSuppressionRules(findings, "baseline", false)
	require.NoError(t, err)
	assert.Equal(t, 4, added)

	rules := sm.ListSuppressions()
	require.Len(t, rules, 4)
	assert.Equal(t, "SUP-00000004", rules[3].ID)
	assert.False(t, rules[0].Enabled)

	// Disabled baseline rules do not suppress
	_, suppressed := sm.Apply(sampleResults())
	assert.Empty(t, suppressed)

	added, err = sm.GenerateSuppressionRules(findings, "baseline", true)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.NotNil(t, sm.ListSuppressions()[0].LastSeenAt)
}

func TestSuppressionManager_ConcurrentAddAndApply(t *testing.T) {
	sm := newTestManager(t)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := sm.AddCrashSuppression("G6", fmt.Sprintf("%d", 1000+i), "reviewed", "", nil)
			errs <- err
		}(i)
		go func() {
			defer wg.Done()
			out, _ := sm.Apply(sampleResults())
			assert.Len(t, out, 3)
			sm.ListSuppressions()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	rules := sm.ListSuppressions()
	require.Len(t, rules, n)
	ids := make(map[string]bool)
	for _, r := range rules {
		ids[r.ID] = true
	}
	assert.Len(t, ids, n, "rule ids are unique")

	reloaded := NewSuppressionManager(sm.GetConfigPath())
	assert.Len(t, reloaded.ListSuppressions(), n)
}
