// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"strada-check/internal/core"
	"strada-check/internal/dataset"
	"strada-check/internal/suppressions"
)

func newSuppressCmd(a *app) *cobra.Command {
	var file string
	manager := func() *suppressions.SuppressionManager {
		return suppressions.NewSuppressionManager(file)
	}

	cmd := &cobra.Command{
		Use:   "suppress",
		Short: "Manage suppression rules for acknowledged findings",
		Long: `Suppression rules hide findings that have been reviewed and accepted.
A rule either matches one exact detail row (by hash) or every finding of a
check that names a crash id. Expired and disabled rules never suppress.`,
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "Path to suppression rules file (default: suppressions.yaml in the config directory)")

	cmd.AddCommand(
		newSuppressListCmd(manager),
		newSuppressAddCmd(manager),
		newSuppressGenerateCmd(a, manager),
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a suppression rule",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := manager().RemoveSuppression(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed suppression rule %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Delete expired suppression rules",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				removed, err := manager().CleanupExpired()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleaned up %d expired suppression rules\n", removed)
				return nil
			},
		},
		newSuppressToggleCmd(manager, true),
		newSuppressToggleCmd(manager, false),
	)
	return cmd
}

func newSuppressListCmd(manager func() *suppressions.SuppressionManager) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suppression rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			rules := manager().ListSuppressions()
			if len(rules) == 0 {
				fmt.Fprintln(w, "No suppression rules found.")
				return nil
			}

			now := time.Now()
			fmt.Fprintf(w, "Found %d suppression rules:\n\n", len(rules))
			for _, rule := range rules {
				state := green.Sprint("active")
				switch {
				case !rule.Enabled:
					state = yellow.Sprint("disabled")
				case !rule.Active(now):
					state = red.Sprint("expired")
				}
				fmt.Fprintf(w, "ID: %s (%s)\n", cyan.Sprint(rule.ID), state)
				fmt.Fprintf(w, "Check: %s\n", rule.CheckID)
				if rule.CrashID != "" {
					fmt.Fprintf(w, "Crash: %s\n", rule.CrashID)
				}
				if rule.Hash != "" {
					fmt.Fprintf(w, "Hash: %s\n", rule.Hash)
				}
				fmt.Fprintf(w, "Reason: %s\n", rule.Reason)
				if rule.CreatedBy != "" {
					fmt.Fprintf(w, "Created By: %s\n", rule.CreatedBy)
				}
				fmt.Fprintf(w, "Created At: %s\n", rule.CreatedAt.Format("2006-01-02 15:04:05"))
				if rule.ExpiresAt != nil {
					fmt.Fprintf(w, "Expires At: %s\n", rule.ExpiresAt.Format("2006-01-02 15:04:05"))
				}
				fmt.Fprintln(w, "---")
			}
			return nil
		},
	}
}

func newSuppressAddCmd(manager func() *suppressions.SuppressionManager) *cobra.Command {
	var (
		checkID   string
		crashID   string
		reason    string
		createdBy string
		days      int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Suppress every finding of a check that names a crash",
		Example: `  strada-check suppress add --check G1 --crash 2019-1234 --reason "duplicate export row" --expires-in-days 90`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reason == "" {
				return fmt.Errorf("--reason is required")
			}
			var expiresAt *time.Time
			if days > 0 {
				t := time.Now().AddDate(0, 0, days)
				expiresAt = &t
			}
			rule, err := manager().AddCrashSuppression(checkID, crashID, reason, createdBy, expiresAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added suppression rule %s for %s crash %s (expires %s)\n",
				rule.ID, rule.CheckID, rule.CrashID, rule.ExpiresAt.Format("2006-01-02"))
			return nil
		},
	}
	cmd.Flags().StringVar(&checkID, "check", "", "Check id, e.g. G1 or G3.1")
	cmd.Flags().StringVar(&crashID, "crash", "", "Crash id (Olycksnummer)")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the finding is acceptable")
	cmd.Flags().StringVar(&createdBy, "created-by", os.Getenv("USER"), "Author recorded on the rule")
	cmd.Flags().IntVar(&days, "expires-in-days", 0, "Days until the rule expires (default: 7)")
	_ = cmd.MarkFlagRequired("check")
	_ = cmd.MarkFlagRequired("crash")
	return cmd
}

func newSuppressGenerateCmd(a *app, manager func() *suppressions.SuppressionManager) *cobra.Command {
	var (
		crashes string
		persons string
		checks  string
		cycling bool
		reason  string
		enable  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a rule for every current finding of a dataset",
		Long: `Runs the checks over the dataset and writes one hash rule per finding.
Generated rules are disabled unless --enable is given, so they can be
reviewed in the rules file before they take effect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := dataset.LoadPair(crashes, persons, a.cfg.Columns)
			if err != nil {
				return err
			}
			res, err := core.Verify(cmd.Context(), ds, core.VerifyConfig{
				Checks:        core.ParseCheckIDs(checks),
				IncludeDomain: cycling,
				Settings:      a.cfg.Checks,
			})
			if err != nil {
				return err
			}

			m := manager()
			added, err := m.GenerateSuppressionRules(suppressions.Findings(res.Results), reason, enable)
			if err != nil {
				return err
			}
			state := "disabled"
			if enable {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d %s suppression rules in %s\n", added, state, m.GetConfigPath())
			return nil
		},
	}
	cmd.Flags().StringVar(&crashes, "crashes", "", "Path to the crashes (Olyckor) table")
	cmd.Flags().StringVar(&persons, "persons", "", "Path to the persons (Personer) table")
	cmd.Flags().StringVar(&checks, "checks", "", "Comma-separated check ids (default: all)")
	cmd.Flags().BoolVar(&cycling, "cycling", false, "Include the cycling checks C1-C3")
	cmd.Flags().StringVar(&reason, "reason", "Baseline of existing findings", "Reason recorded on every rule")
	cmd.Flags().BoolVar(&enable, "enable", false, "Enable the generated rules immediately")
	_ = cmd.MarkFlagRequired("crashes")
	_ = cmd.MarkFlagRequired("persons")
	return cmd
}

func newSuppressToggleCmd(manager func() *suppressions.SuppressionManager, enabled bool) *cobra.Command {
	verb := "disable"
	if enabled {
		verb = "enable"
	}
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a suppression rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager().SetRuleEnabled(args[0], enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Suppression rule %s %sd\n", args[0], verb)
			return nil
		},
	}
}
