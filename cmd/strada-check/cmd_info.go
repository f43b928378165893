// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"strada-check/internal/checks"
	"strada-check/internal/version"
)

func newChecksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checks",
		Short: "List the available verification checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cols := a.cfg.Columns.WithDefaults()
			resolve := func(keys []string) string {
				out := make([]string, len(keys))
				for i, k := range keys {
					out[i] = cols.Resolve(k)
				}
				return strings.Join(out, ", ")
			}

			bold.Fprintln(w, "Available checks:")
			for _, def := range checks.Registry() {
				scope := "generic"
				if def.Domain {
					scope = "cycling"
				}
				fmt.Fprintf(w, "  %s %-8s %s\n", cyan.Sprintf("%-4s", def.ID), scope, def.Name)
				if len(def.CrashColumns) > 0 {
					fmt.Fprintf(w, "       crashes: %s\n", resolve(def.CrashColumns))
				}
				if len(def.PersonColumns) > 0 {
					fmt.Fprintf(w, "       persons: %s\n", resolve(def.PersonColumns))
				}
			}
			return nil
		},
	}
}

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles of the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			names := a.cfg.ListProfiles()
			if len(names) == 0 {
				fmt.Fprintln(w, "No profiles configured.")
				return nil
			}
			bold.Fprintln(w, "Available profiles:")
			for _, name := range names {
				p := a.cfg.GetProfile(name)
				fmt.Fprintf(w, "  %s %s\n", cyan.Sprintf("%-12s", name), p.Description)
				fmt.Fprintf(w, "               checks: %s  cycling: %t  format: %s\n", p.Checks, p.Domain, p.Format)
			}
			return nil
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print build information as JSON")
	return cmd
}
