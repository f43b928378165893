// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package junit

import (
	"encoding/xml"
	"fmt"
	"strings"

	"strada-check/internal/formatters"
	"strada-check/internal/result"
)

// JUnit XML structures based on the standard JUnit XML schema
type TestSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	Name       string      `xml:"name,attr"`
	Tests      int         `xml:"tests,attr"`
	Failures   int         `xml:"failures,attr"`
	Errors     int         `xml:"errors,attr"`
	Time       string      `xml:"time,attr"`
	TestSuites []TestSuite `xml:"testsuite"`
}

type TestSuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Time      string     `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

type TestCase struct {
	XMLName   xml.Name `xml:"testcase"`
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
	Error     *Failure `xml:"error,omitempty"`
}

type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// maxListedRows caps flagged records written into a failure body
const maxListedRows = 50

// Formatter implements JUnit XML output formatting
type Formatter struct{}

// NewFormatter creates a new JUnit XML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "junit"
}

func (f *Formatter) Description() string {
	return "JUnit XML format for CI/CD integration: one test case per check"
}

func (f *Formatter) FileExtension() string {
	return ".xml"
}

func (f *Formatter) Format(report *formatters.Report, options formatters.FormatterOptions) (string, error) {
	testSuites := TestSuites{
		Name: "strada-check",
		Time: "0.000",
	}

	suite := TestSuite{
		Name: "verification",
		Time: "0.000",
	}
	for _, r := range result.Flatten(report.Results) {
		testCase := f.createTestCase(r, options)
		suite.TestCases = append(suite.TestCases, testCase)
		suite.Tests++
		switch {
		case testCase.Error != nil:
			suite.Errors++
		case testCase.Failure != nil:
			suite.Failures++
		}
	}

	if len(report.Suppressed) > 0 {
		suppressedSuite := TestSuite{
			Name: "suppressed-findings",
			Time: "0.000",
		}
		// Suppressed findings are informational and never fail
		for _, s := range report.Suppressed {
			suppressedSuite.TestCases = append(suppressedSuite.TestCases, TestCase{
				Name:      fmt.Sprintf("%s %s (suppressed by %s)", s.CheckID, strings.Join(s.Row, ", "), s.RuleID),
				ClassName: "suppressed-findings",
				Time:      "0.000",
			})
			suppressedSuite.Tests++
		}
		testSuites.TestSuites = append(testSuites.TestSuites, suppressedSuite)
		testSuites.Tests += suppressedSuite.Tests
	}

	testSuites.TestSuites = append(testSuites.TestSuites, suite)
	testSuites.Tests += suite.Tests
	testSuites.Failures += suite.Failures
	testSuites.Errors += suite.Errors

	xmlData, err := xml.MarshalIndent(testSuites, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JUnit XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

// createTestCase maps a result to a test case. A check that could not run
// is an error; a check with issues is a failure.
func (f *Formatter) createTestCase(r result.Result, options formatters.FormatterOptions) TestCase {
	testCase := TestCase{
		Name:      fmt.Sprintf("%s: %s", r.ID, r.Name),
		ClassName: "verification",
		Time:      "0.000",
	}

	switch {
	case r.Status == result.StatusFail:
		testCase.Error = &Failure{Message: r.Summary, Type: string(r.Status)}
	case r.IssueCount > 0:
		testCase.Failure = &Failure{
			Message: r.Summary,
			Type:    string(r.Status),
			Content: f.failureContent(r, options),
		}
	}
	return testCase
}

func (f *Formatter) failureContent(r result.Result, options formatters.FormatterOptions) string {
	if r.Details.Len() == 0 {
		return fmt.Sprintf("%d issues", r.IssueCount)
	}

	var b strings.Builder
	b.WriteString(strings.Join(r.Details.Columns, ", "))
	for i, row := range r.Details.Rows {
		if !options.Verbose && i == maxListedRows {
			fmt.Fprintf(&b, "\n... %d more", len(r.Details.Rows)-maxListedRows)
			break
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(row, ", "))
	}
	return b.String()
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
