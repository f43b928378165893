// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"strada-check/internal/paths"
	"strada-check/internal/result"

	"gopkg.in/yaml.v3"
)

var (
	ErrRuleExists   = errors.New("suppression rule already exists for this finding")
	ErrRuleNotFound = errors.New("suppression rule not found")
)

// DefaultExpiry is how long a rule stays active when no expiry is given
const DefaultExpiry = 7 * 24 * time.Hour

// SuppressionRule acknowledges a finding. A rule with a hash matches one
// exact detail row; a rule without a hash matches every row of CheckID
// that names CrashID.
type SuppressionRule struct {
	ID         string            `json:"id" yaml:"id"`
	Hash       string            `json:"hash,omitempty" yaml:"hash,omitempty"`
	CheckID    string            `json:"check_id" yaml:"check_id"`
	CrashID    string            `json:"crash_id,omitempty" yaml:"crash_id,omitempty"`
	Reason     string            `json:"reason" yaml:"reason"`
	Enabled    bool              `json:"enabled" yaml:"enabled"`
	CreatedBy  string            `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
	LastSeenAt *time.Time        `json:"last_seen_at,omitempty" yaml:"last_seen_at,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Active reports whether the rule is enabled and not expired at now
func (r SuppressionRule) Active(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	return r.ExpiresAt == nil || now.Before(*r.ExpiresAt)
}

// SuppressionConfig represents the suppression configuration file
type SuppressionConfig struct {
	Version string            `yaml:"version"`
	Rules   []SuppressionRule `yaml:"rules"`
}

// Finding is one detail row of a leaf check result
type Finding struct {
	CheckID   string
	CheckName string
	Columns   []string
	Row       []string
}

// CrashIDs returns the crash ids named in the row's first column. Duplicate
// groups list several ids separated by commas.
func (f Finding) CrashIDs() []string {
	if len(f.Row) == 0 {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(f.Row[0], ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Findings lists every detail row of results, sub-results included
func Findings(results []result.Result) []Finding {
	var out []Finding
	for _, r := range result.Flatten(results) {
		if r.Details == nil {
			continue
		}
		for _, row := range r.Details.Rows {
			out = append(out, Finding{CheckID: r.ID, CheckName: r.Name, Columns: r.Details.Columns, Row: row})
		}
	}
	return out
}

// Suppressed is a finding removed from a report together with its rule
type Suppressed struct {
	CheckID string   `json:"check_id" yaml:"check_id"`
	Columns []string `json:"columns" yaml:"columns"`
	Row     []string `json:"row" yaml:"row"`
	RuleID  string   `json:"rule_id" yaml:"rule_id"`
	Reason  string   `json:"reason" yaml:"reason"`
}

// SuppressionManager handles finding suppressions. It is safe for
// concurrent use; mu guards config and enabled.
type SuppressionManager struct {
	mu         sync.RWMutex
	configPath string
	config     *SuppressionConfig
	enabled    bool
	now        func() time.Time
}

// NewSuppressionManager creates a new suppression manager. A missing or
// unreadable file starts an empty rule set.
func NewSuppressionManager(configPath string) *SuppressionManager {
	if configPath == "" {
		configPath = paths.GetSuppressionsFile()
	}

	manager := &SuppressionManager{
		configPath: configPath,
		enabled:    true,
		now:        time.Now,
	}

	manager.loadConfig()
	return manager
}

func emptyConfig() *SuppressionConfig {
	return &SuppressionConfig{
		Version: "1.0",
		Rules:   []SuppressionRule{},
	}
}

// loadConfig loads the suppression configuration
func (sm *SuppressionManager) loadConfig() {
	data, err := os.ReadFile(filepath.Clean(sm.configPath))
	if err != nil {
		sm.config = emptyConfig()
		return
	}

	var config SuppressionConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		sm.config = emptyConfig()
		return
	}
	if config.Version == "" {
		config.Version = "1.0"
	}
	sm.config = &config
}

// FindingHash creates a stable hash for a finding
func FindingHash(f Finding) string {
	components := append([]string{strings.ToUpper(f.CheckID)}, f.Row...)
	hash := sha256.Sum256([]byte(strings.Join(components, "\x1f")))
	return fmt.Sprintf("%x", hash)
}

func (r SuppressionRule) matches(f Finding, hash string) bool {
	if r.Hash != "" {
		return r.Hash == hash
	}
	if !strings.EqualFold(r.CheckID, f.CheckID) {
		return false
	}
	for _, id := range f.CrashIDs() {
		if id == r.CrashID {
			return true
		}
	}
	return false
}

// IsSuppressed checks if a finding should be suppressed
func (sm *SuppressionManager) IsSuppressed(f Finding) (bool, *SuppressionRule) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.isSuppressed(f)
}

func (sm *SuppressionManager) isSuppressed(f Finding) (bool, *SuppressionRule) {
	if !sm.enabled || sm.config == nil {
		return false, nil
	}

	hash := FindingHash(f)
	now := sm.now()
	for i := range sm.config.Rules {
		rule := sm.config.Rules[i]
		if rule.Active(now) && rule.matches(f, hash) {
			return true, &rule
		}
	}
	return false, nil
}

// Apply removes suppressed detail rows from results, recomputing issue
// counts and statuses bottom-up. The input is not modified.
func (sm *SuppressionManager) Apply(results []result.Result) ([]result.Result, []Suppressed) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]result.Result, len(results))
	var suppressed []Suppressed
	for i, r := range results {
		var s []Suppressed
		out[i], s = sm.apply(r)
		suppressed = append(suppressed, s...)
	}
	return out, suppressed
}

func (sm *SuppressionManager) apply(r result.Result) (result.Result, []Suppressed) {
	if len(r.SubResults) > 0 {
		subs := make([]result.Result, len(r.SubResults))
		var suppressed []Suppressed
		for i, sub := range r.SubResults {
			var s []Suppressed
			subs[i], s = sm.apply(sub)
			suppressed = append(suppressed, s...)
		}
		if len(suppressed) == 0 {
			return r, nil
		}
		r.SubResults = subs
		return r.Recount(), suppressed
	}
	if r.Details == nil {
		return r, nil
	}

	var suppressed []Suppressed
	kept := r.Details.Filter(func(row []string) bool {
		f := Finding{CheckID: r.ID, CheckName: r.Name, Columns: r.Details.Columns, Row: row}
		ok, rule := sm.isSuppressed(f)
		if ok {
			suppressed = append(suppressed, Suppressed{
				CheckID: r.ID,
				Columns: r.Details.Columns,
				Row:     row,
				RuleID:  rule.ID,
				Reason:  rule.Reason,
			})
		}
		return !ok
	})
	if len(suppressed) == 0 {
		return r, nil
	}
	r.Details = kept
	r = r.Recount()
	r.Summary = fmt.Sprintf("%s (%d suppressed)", r.Summary, len(suppressed))
	return r, suppressed
}

func (sm *SuppressionManager) nextID(offset int) string {
	maxID := 0
	for _, existingRule := range sm.config.Rules {
		var num int
		if _, err := fmt.Sscanf(existingRule.ID, "SUP-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}
	return fmt.Sprintf("SUP-%08d", maxID+offset+1)
}

func (sm *SuppressionManager) expiry(expiresAt *time.Time) *time.Time {
	if expiresAt != nil {
		return expiresAt
	}
	t := sm.now().Add(DefaultExpiry)
	return &t
}

// AddSuppression adds a rule for one exact finding
func (sm *SuppressionManager) AddSuppression(f Finding, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	hash := FindingHash(f)
	for _, rule := range sm.config.Rules {
		if rule.Hash == hash {
			return nil, ErrRuleExists
		}
	}

	rule := SuppressionRule{
		ID:        sm.nextID(0),
		Hash:      hash,
		CheckID:   strings.ToUpper(f.CheckID),
		CrashID:   strings.Join(f.CrashIDs(), ", "),
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: sm.now(),
		ExpiresAt: sm.expiry(expiresAt),
		Metadata:  map[string]string{"check_name": f.CheckName},
	}
	sm.config.Rules = append(sm.config.Rules, rule)
	return &rule, sm.saveConfig()
}

// AddCrashSuppression adds a rule matching every finding of checkID that
// names crashID
func (sm *SuppressionManager) AddCrashSuppression(checkID, crashID, reason, createdBy string, expiresAt *time.Time) (*SuppressionRule, error) {
	checkID = strings.ToUpper(strings.TrimSpace(checkID))
	crashID = strings.TrimSpace(crashID)
	if checkID == "" || crashID == "" {
		return nil, fmt.Errorf("check id and crash id are required")
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, rule := range sm.config.Rules {
		if rule.Hash == "" && rule.CheckID == checkID && rule.CrashID == crashID {
			return nil, ErrRuleExists
		}
	}

	rule := SuppressionRule{
		ID:        sm.nextID(0),
		CheckID:   checkID,
		CrashID:   crashID,
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: sm.now(),
		ExpiresAt: sm.expiry(expiresAt),
	}
	sm.config.Rules = append(sm.config.Rules, rule)
	return &rule, sm.saveConfig()
}

// GenerateSuppressionRules creates rules for every finding not yet covered.
// Existing rules get their last-seen time refreshed. Returns the number of
// rules added.
func (sm *SuppressionManager) GenerateSuppressionRules(findings []Finding, reason string, enabled bool) (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	existing := make(map[string]*SuppressionRule)
	for i := range sm.config.Rules {
		if sm.config.Rules[i].Hash != "" {
			existing[sm.config.Rules[i].Hash] = &sm.config.Rules[i]
		}
	}

	now := sm.now()
	added, updated := 0, 0
	var fresh []SuppressionRule
	seen := make(map[string]bool)
	for _, f := range findings {
		hash := FindingHash(f)
		if seen[hash] {
			continue
		}
		seen[hash] = true
		if rule, ok := existing[hash]; ok {
			rule.LastSeenAt = &now
			updated++
			continue
		}
		rule := SuppressionRule{
			ID:         sm.nextID(added),
			Hash:       hash,
			CheckID:    strings.ToUpper(f.CheckID),
			CrashID:    strings.Join(f.CrashIDs(), ", "),
			Reason:     reason,
			Enabled:    enabled,
			CreatedAt:  now,
			LastSeenAt: &now,
			ExpiresAt:  sm.expiry(nil),
			Metadata:   map[string]string{"check_name": f.CheckName},
		}
		fresh = append(fresh, rule)
		added++
	}
	sm.config.Rules = append(sm.config.Rules, fresh...)

	if added > 0 || updated > 0 {
		return added, sm.saveConfig()
	}
	return 0, nil
}

// RemoveSuppression removes a suppression rule by ID
func (sm *SuppressionManager) RemoveSuppression(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, rule := range sm.config.Rules {
		if rule.ID == id {
			sm.config.Rules = append(sm.config.Rules[:i], sm.config.Rules[i+1:]...)
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// SetRuleEnabled enables or disables a rule by ID
func (sm *SuppressionManager) SetRuleEnabled(id string, enabled bool) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i := range sm.config.Rules {
		if sm.config.Rules[i].ID == id {
			sm.config.Rules[i].Enabled = enabled
			return sm.saveConfig()
		}
	}
	return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// ListSuppressions returns all suppression rules
func (sm *SuppressionManager) ListSuppressions() []SuppressionRule {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]SuppressionRule, len(sm.config.Rules))
	copy(out, sm.config.Rules)
	return out
}

// CleanupExpired removes expired suppression rules and returns how many
// were removed
func (sm *SuppressionManager) CleanupExpired() (int, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	now := sm.now()
	originalCount := len(sm.config.Rules)

	activeRules := []SuppressionRule{}
	for _, rule := range sm.config.Rules {
		if rule.ExpiresAt == nil || now.Before(*rule.ExpiresAt) {
			activeRules = append(activeRules, rule)
		}
	}

	sm.config.Rules = activeRules
	removed := originalCount - len(activeRules)
	if removed > 0 {
		return removed, sm.saveConfig()
	}
	return 0, nil
}

// saveConfig saves the suppression configuration to file. Callers hold mu.
func (sm *SuppressionManager) saveConfig() error {
	data, err := yaml.Marshal(sm.config)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression config: %w", err)
	}

	dir := filepath.Dir(sm.configPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write with restrictive permissions
	if err := os.WriteFile(sm.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write suppression config: %w", err)
	}
	return nil
}

// SetEnabled enables or disables the suppression manager
func (sm *SuppressionManager) SetEnabled(enabled bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.enabled = enabled
}

// IsEnabled returns whether the suppression manager is enabled
func (sm *SuppressionManager) IsEnabled() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.enabled
}

// GetConfigPath returns the path to the suppression config file
func (sm *SuppressionManager) GetConfigPath() string {
	return sm.configPath
}
