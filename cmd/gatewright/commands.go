// Copyright (C) 2026 Gatewright Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

// Version is stamped by the build.
var Version = "dev"

var (
	logLevel     string
	jsonOutput   bool
	quiet        bool
	openAIAPIKey string

	rootCmd = &cobra.Command{
		Use:   "gatewright",
		Short: "Verify claims about software against observed runtime behavior",
		Long: `Gatewright runs verification gates: it observes a live system's
log stream, drives it with validated actions, and classifies the run
against declared assertions. Verdicts come with the evidence attached.`,
	}

	runCmd = &cobra.Command{
		Use:   "run [spec.yaml]",
		Short: "Run a gate spec and print its report",
		Args:  cobra.ExactArgs(1),
		RunE:  runGate, // Defined in cmd_run.go
	}

	claimCmd = &cobra.Command{
		Use:   "claim [claim.yaml]",
		Short: "Run a declared claim and print its classified verdict",
		Args:  cobra.ExactArgs(1),
		RunE:  runClaim, // Defined in cmd_run.go
	}

	preflightCmd = &cobra.Command{
		Use:   "preflight [spec.yaml]",
		Short: "Check a preflight spec without running the gate",
		Args:  cobra.ExactArgs(1),
		RunE:  runPreflight, // Defined in cmd_run.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the gatewright version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("gatewright " + Version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress stderr logging")
	runCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	claimCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	runCmd.Flags().StringVar(&openAIAPIKey, "openai-api-key", "", "API key for LLM-delegated preflight (defaults to OPENAI_API_KEY)")
	preflightCmd.Flags().StringVar(&openAIAPIKey, "openai-api-key", "", "API key for LLM-delegated preflight (defaults to OPENAI_API_KEY)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(versionCmd)
}
