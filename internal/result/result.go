// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package result holds the value types every verification check and the
// classification verifier hand to report writers.
package result

import "fmt"

// Status is the outcome of a single check
type Status string

const (
	StatusPass    Status = "pass"
	StatusWarning Status = "warning"
	StatusFail    Status = "fail"
)

// Icon returns the single-character marker used in text reports
func (s Status) Icon() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarning:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// severity orders statuses so the worst one wins when aggregating
func (s Status) severity() int {
	switch s {
	case StatusPass:
		return 0
	case StatusWarning:
		return 1
	case StatusFail:
		return 2
	default:
		return -1
	}
}

// Result is the output of one verification check
type Result struct {
	ID         string   `json:"check_id" yaml:"check_id"`
	Name       string   `json:"check_name" yaml:"check_name"`
	Status     Status   `json:"status" yaml:"status"`
	Summary    string   `json:"summary" yaml:"summary"`
	IssueCount int      `json:"issue_count" yaml:"issue_count"`
	Details    *Table   `json:"details,omitempty" yaml:"details,omitempty"`
	SubResults []Result `json:"sub_results,omitempty" yaml:"sub_results,omitempty"`
}

// StatusFromCount maps an issue count to pass (zero) or warning
func StatusFromCount(n int) Status {
	if n == 0 {
		return StatusPass
	}
	return StatusWarning
}

// New builds a leaf result. A nil or empty details table is dropped so that
// passing checks carry no detail section.
func New(id, name, summary string, issues int, details *Table) Result {
	if details != nil && details.Len() == 0 {
		details = nil
	}
	return Result{
		ID:         id,
		Name:       name,
		Status:     StatusFromCount(issues),
		Summary:    summary,
		IssueCount: issues,
		Details:    details,
	}
}

// Failed builds a fail result for checks that could not run
func Failed(id, name, summary string) Result {
	return Result{
		ID:      id,
		Name:    name,
		Status:  StatusFail,
		Summary: summary,
	}
}

// Aggregate builds a parent result whose issue count is the sum of its
// sub-results. The parent status is the worst sub status.
func Aggregate(id, name string, subs []Result) Result {
	total := 0
	status := StatusPass
	for _, sub := range subs {
		total += sub.IssueCount
		if sub.Status.severity() > status.severity() {
			status = sub.Status
		}
	}
	return Result{
		ID:         id,
		Name:       name,
		Status:     status,
		Summary:    fmt.Sprintf("%d total issues across sub-checks", total),
		IssueCount: total,
		SubResults: subs,
	}
}

// Recount recomputes issue counts and status from detail rows, bottom-up.
// Results without details keep their count unless they have sub-results.
func (r Result) Recount() Result {
	if len(r.SubResults) > 0 {
		subs := make([]Result, len(r.SubResults))
		for i, sub := range r.SubResults {
			subs[i] = sub.Recount()
		}
		agg := Aggregate(r.ID, r.Name, subs)
		if r.Status == StatusFail && agg.Status != StatusFail {
			agg.Status = StatusFail
		}
		return agg
	}
	if r.Status == StatusFail || r.Details == nil {
		return r
	}
	r.IssueCount = r.Details.Len()
	r.Status = StatusFromCount(r.IssueCount)
	if r.IssueCount == 0 {
		r.Details = nil
	}
	return r
}

// Flatten returns the results followed by their sub-results, depth first
func Flatten(results []Result) []Result {
	var out []Result
	for _, r := range results {
		out = append(out, r)
		out = append(out, Flatten(r.SubResults)...)
	}
	return out
}

// TotalIssues sums the top-level issue counts
func TotalIssues(results []Result) int {
	total := 0
	for _, r := range results {
		total += r.IssueCount
	}
	return total
}
