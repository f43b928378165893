// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"strada-check/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var database string
	open := func() (*store.Store, error) {
		return store.Open(a.databasePath(database))
	}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded in the SQLite run database",
	}
	cmd.PersistentFlags().StringVar(&database, "sqlite", "", "Run database (default: defaults.database or runs.db in the config directory)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if !fileExists(a.databasePath(database)) {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(w, "%-36s  %-8s  %-19s  %8s  %8s  %7s  %s\n", "ID", "Kind", "Started", "Crashes", "Persons", "Issues", "Source")
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %-8s  %-19s  %8d  %8d  %7d  %s\n",
					cyan.Sprintf("%-36s", r.ID), r.Kind, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.CrashCount, r.PersonCount, r.TotalIssues, r.Source)
			}
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stored results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			results, err := s.Results(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			bold.Fprintf(w, "Run %s\n", args[0])
			for _, r := range results {
				indent := ""
				if r.ParentID != "" {
					indent = "  "
				}
				fmt.Fprintf(w, "  %s%s %s %s (%d)\n", indent, statusIcon(r.Status), cyan.Sprint(r.CheckID), r.Name, r.IssueCount)
			}

			counts, err := s.TypeCounts(ctx, args[0])
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				return nil
			}
			types := make([]string, 0, len(counts))
			for t := range counts {
				types = append(types, t)
			}
			sort.Strings(types)
			fmt.Fprintln(w)
			bold.Fprintln(w, "Micromobility types")
			for _, t := range types {
				fmt.Fprintf(w, "  %-28s %8d\n", t, counts[t])
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its stored results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}
