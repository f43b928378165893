// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"strada-check/internal/formatters"
	"strada-check/internal/result"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ruleWidth = 80
	// defaultMaxRows caps flagged records per section when not verbose
	defaultMaxRows = 20
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
			"faint":  color.New(color.Faint),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report with an overview table and detailed sections"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// paint colours s unless colours are off
func (f *Formatter) paint(options formatters.FormatterOptions, name, s string) string {
	if options.NoColor {
		return s
	}
	return f.colors[name].Sprint(s)
}

func (f *Formatter) statusColor(s result.Status) string {
	switch s {
	case result.StatusPass:
		return "green"
	case result.StatusWarning:
		return "yellow"
	default:
		return "red"
	}
}

func (f *Formatter) Format(report *formatters.Report, options formatters.FormatterOptions) (string, error) {
	var b strings.Builder
	p := message.NewPrinter(language.English)
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	b.WriteString(heavy + "\n")
	b.WriteString(f.paint(options, "white", report.HeaderTitle()) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	if report.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", report.RunID)
	}
	b.WriteString(heavy + "\n\n")

	if report.CrashCount > 0 || report.PersonCount > 0 {
		b.WriteString("Dataset summary:\n")
		if report.CrashCount > 0 {
			b.WriteString(p.Sprintf("  Crashes (Olyckor):  %d\n", report.CrashCount))
		}
		if report.PersonCount > 0 {
			b.WriteString(p.Sprintf("  Persons (Personer): %d\n", report.PersonCount))
		}
		b.WriteString("\n")
	}

	if len(report.Results) > 0 {
		b.WriteString(light + "\n")
		b.WriteString(f.paint(options, "white", fmt.Sprintf("%-8s %-10s %8s  %s", "Check", "Status", "Issues", "Description")) + "\n")
		b.WriteString(light + "\n")
		for _, r := range report.Results {
			f.appendOverviewLine(&b, r, "", 8, options)
			for _, sub := range r.SubResults {
				f.appendOverviewLine(&b, sub, "  ", 6, options)
			}
		}
		b.WriteString(light + "\n")

		pass, warning, fail := report.StatusCounts()
		b.WriteString(p.Sprintf("%d checks: %d passed, %d warnings, %d failed, %d issues in total\n",
			len(report.Results), pass, warning, fail, result.TotalIssues(report.Results)))
		if len(report.Suppressed) > 0 {
			b.WriteString(f.paint(options, "faint", p.Sprintf("%d flagged records suppressed", len(report.Suppressed))) + "\n")
		}
		b.WriteString("\n")

		for _, r := range report.Results {
			f.appendSection(&b, r, 0, options)
			for _, sub := range r.SubResults {
				f.appendSection(&b, sub, 2, options)
			}
		}
	}

	if report.Classification != nil {
		f.appendClassification(&b, report.Classification, options)
	}

	if options.Verbose && len(report.Suppressed) > 0 {
		fmt.Fprintf(&b, "\n%s\n", heavy)
		b.WriteString(f.paint(options, "faint", "Suppressed records") + "\n")
		b.WriteString(light + "\n")
		for _, s := range report.Suppressed {
			fmt.Fprintf(&b, "  [%s] %s: %s (%s)\n", s.RuleID, s.CheckID, strings.Join(s.Row, ", "), s.Reason)
		}
	}

	b.WriteString(heavy + "\n")
	b.WriteString("End of Report\n")
	b.WriteString(heavy + "\n")
	return b.String(), nil
}

// appendOverviewLine writes one row of the overview table
func (f *Formatter) appendOverviewLine(b *strings.Builder, r result.Result, indent string, idWidth int, options formatters.FormatterOptions) {
	status := f.paint(options, f.statusColor(r.Status), fmt.Sprintf("%s %-8s", r.Status.Icon(), r.Status))
	fmt.Fprintf(b, "%s%-*s %s %8d  %s\n", indent, idWidth, r.ID, status, r.IssueCount, r.Name)
}

// appendSection writes one check's detailed section
func (f *Formatter) appendSection(b *strings.Builder, r result.Result, indent int, options formatters.FormatterOptions) {
	prefix := strings.Repeat(" ", indent)
	fmt.Fprintf(b, "\n%s\n", strings.Repeat("=", ruleWidth))
	b.WriteString(prefix + f.paint(options, "cyan", fmt.Sprintf("%s: %s", r.ID, r.Name)) + "\n")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", ruleWidth))
	b.WriteString(prefix + f.paint(options, f.statusColor(r.Status), fmt.Sprintf("%s %s", r.Status.Icon(), r.Summary)) + "\n")

	if r.Details.Len() > 0 {
		p := message.NewPrinter(language.English)
		b.WriteString(p.Sprintf("\n%sFlagged records (%d):\n", prefix, r.Details.Len()))
		fmt.Fprintf(b, "%s  %s\n", prefix, strings.Join(r.Details.Columns, ", "))
		fmt.Fprintf(b, "%s  %s\n", prefix, strings.Repeat("-", 60))

		limit := options.MaxRows
		if limit <= 0 {
			limit = defaultMaxRows
		}
		for i, row := range r.Details.Rows {
			if !options.Verbose && i == limit {
				b.WriteString(f.paint(options, "faint", p.Sprintf("%s  ... %d more (use --verbose or a csv report)", prefix, r.Details.Len()-limit)) + "\n")
				break
			}
			fmt.Fprintf(b, "%s  %s\n", prefix, strings.Join(row, ", "))
		}
	}
	b.WriteString("\n")
}

func (f *Formatter) appendClassification(b *strings.Builder, c *formatters.ClassificationSummary, options formatters.FormatterOptions) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(b, "\n%s\n", strings.Repeat("=", ruleWidth))
	b.WriteString(f.paint(options, "cyan", "Micromobility classification") + "\n")
	fmt.Fprintf(b, "%s\n", strings.Repeat("-", ruleWidth))
	b.WriteString(p.Sprintf("Cycling persons: %d (%d in solo crashes, %d in multi-cyclist crashes)\n",
		c.Stats.TotalCycling, c.Stats.SoloCrashes, c.Stats.MultiCrashes))

	b.WriteString("\nType distribution:\n")
	for _, tc := range c.TypeCounts {
		share := 0.0
		if c.Stats.TotalCycling > 0 {
			share = 100 * float64(tc.Count) / float64(c.Stats.TotalCycling)
		}
		b.WriteString(p.Sprintf("  %-24s %8d  %5.1f%%\n", tc.Type, tc.Count, share))
	}

	if len(c.Stats.StepCounts) > 0 {
		b.WriteString("\nDecided at step:\n")
		for _, k := range sortedKeys(c.Stats.StepCounts) {
			b.WriteString(p.Sprintf("  %-26s %8d\n", k, c.Stats.StepCounts[k]))
		}
	}
	if len(c.Stats.GuardCounts) > 0 {
		b.WriteString("\nGuards fired:\n")
		for _, k := range sortedKeys(c.Stats.GuardCounts) {
			b.WriteString(p.Sprintf("  %-26s %8d\n", k, c.Stats.GuardCounts[k]))
		}
	}
	if c.Ambiguities > 0 {
		b.WriteString(f.paint(options, "yellow", p.Sprintf("\n%d persons had more than one keyword category", c.Ambiguities)) + "\n")
	}
	if c.OutputPath != "" {
		fmt.Fprintf(b, "\nAugmented table: %s\n", c.OutputPath)
	}
	b.WriteString("\n")
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
