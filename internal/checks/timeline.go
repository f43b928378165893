// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package checks

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"strada-check/internal/dataset"
	"strada-check/internal/result"
)

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?)`)

// timeValue reads a time bucket such as "13", "13.0" or "13:00-13:59"
func timeValue(bucket string) (float64, bool) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(bucket), 64); err == nil {
		return f, true
	}
	m := leadingNumber.FindStringSubmatch(bucket)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	return f, err == nil
}

// timeSpread is max minus min over the buckets, or 0 if any is unreadable
func timeSpread(buckets []string) float64 {
	var lo, hi float64
	for i, b := range buckets {
		v, ok := timeValue(b)
		if !ok {
			return 0
		}
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return hi - lo
}

// checkTimeline flags multi-person crashes whose persons disagree on date,
// then those that agree on date but disagree on time bucket
func checkTimeline(in Input) result.Result {
	groups, ids := multiPersonGroups(in.Persons)

	details := result.NewTable(in.Columns.CrashID, "Reason", "Details")

	type timeIssue struct {
		id      string
		buckets []string
		spread  float64
	}
	var timeIssues []timeIssue
	dateMismatches := 0

	for _, id := range ids {
		persons := groups[id]
		years := distinct(column(persons, func(p dataset.Person) string { return p.Year }))
		months := distinct(column(persons, func(p dataset.Person) string { return p.Month }))
		days := distinct(column(persons, func(p dataset.Person) string { return p.Day }))

		if len(years) > 1 || len(months) > 1 || len(days) > 1 {
			dates := distinct(column(persons, func(p dataset.Person) string {
				return fmt.Sprintf("%s-%s-%s", p.Year, p.Month, p.Day)
			}))
			details.Add(id, "Date mismatch", strings.Join(dates, ", "))
			dateMismatches++
			continue
		}

		buckets := distinct(column(persons, func(p dataset.Person) string { return p.TimeBucket }))
		if len(buckets) > 1 {
			timeIssues = append(timeIssues, timeIssue{id: id, buckets: buckets, spread: timeSpread(buckets)})
		}
	}

	sort.SliceStable(timeIssues, func(i, j int) bool {
		return timeIssues[i].spread > timeIssues[j].spread
	})
	for _, ti := range timeIssues {
		details.Add(ti.id, "Time mismatch", strings.Join(ti.buckets, ", "))
	}

	var summary string
	if details.Len() == 0 {
		summary = "All crashes have consistent date and time"
	} else {
		summary = fmt.Sprintf("%d date mismatches, %d time mismatches", dateMismatches, len(timeIssues))
	}
	return result.New("G4", "Crash timeline consistency", summary, details.Len(), details)
}
