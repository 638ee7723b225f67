// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// scenarioDoc is the YAML shape used by export and import. It mirrors the
// bridge's JSON wire shape minus the server-assigned identity fields.
type scenarioDoc struct {
	Name    string `yaml:"name" json:"name"`
	Entries []struct {
		Path             string         `yaml:"path" json:"path"`
		Value            any            `yaml:"value" json:"value"`
		Meta             map[string]any `yaml:"meta,omitempty" json:"meta,omitempty"`
		Intercept        bool           `yaml:"intercept,omitempty" json:"intercept,omitempty"`
		AcceptAllSources bool           `yaml:"acceptAllSources,omitempty" json:"acceptAllSources,omitempty"`
	} `yaml:"entries" json:"entries"`
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage and replay named path scenarios",
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := apiCall("GET", "/v1/scenarios", nil, &out); err != nil {
			log.Fatalf("Failed to list scenarios: %v", err)
		}
		printJSON(out)
	},
}

var scenarioShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one stored scenario",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := apiCall("GET", "/v1/scenarios/"+args[0], nil, &out); err != nil {
			log.Fatalf("Failed to show scenario: %v", err)
		}
		printJSON(out)
	},
}

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a stored scenario",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := apiCall("DELETE", "/v1/scenarios/"+args[0], nil, nil); err != nil {
			log.Fatalf("Failed to delete scenario: %v", err)
		}
		fmt.Printf("Deleted scenario %s\n", args[0])
	},
}

var scenarioApplyCmd = &cobra.Command{
	Use:   "apply [name]",
	Short: "Replay a stored scenario into the tree",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := apiCall("POST", "/v1/scenarios/"+args[0]+"/apply", nil, &out); err != nil {
			log.Fatalf("Failed to apply scenario: %v", err)
		}
		fmt.Printf("Applied scenario %s (%v entries)\n", args[0], out["applied"])
	},
}

var scenarioExportCmd = &cobra.Command{
	Use:   "export [name] [file]",
	Short: "Export a stored scenario to a YAML file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var doc scenarioDoc
		if err := apiCall("GET", "/v1/scenarios/"+args[0], nil, &doc); err != nil {
			log.Fatalf("Failed to fetch scenario: %v", err)
		}

		out, err := yaml.Marshal(doc)
		if err != nil {
			log.Fatalf("Failed to encode scenario: %v", err)
		}
		if err := os.WriteFile(args[1], out, 0o644); err != nil {
			log.Fatalf("Failed to write %s: %v", args[1], err)
		}
		fmt.Printf("Exported scenario %s to %s\n", args[0], args[1])
	},
}

var scenarioImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a scenario from a YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read %s: %v", args[0], err)
		}

		var doc scenarioDoc
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			log.Fatalf("Failed to parse %s: %v", args[0], err)
		}
		if doc.Name == "" {
			log.Fatalf("Scenario file %s has no name", args[0])
		}

		if err := apiCall("POST", "/v1/scenarios", doc, nil); err != nil {
			log.Fatalf("Failed to import scenario: %v", err)
		}
		fmt.Printf("Imported scenario %s (%d entries)\n", doc.Name, len(doc.Entries))
	},
}

func init() {
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioShowCmd)
	scenarioCmd.AddCommand(scenarioDeleteCmd)
	scenarioCmd.AddCommand(scenarioApplyCmd)
	scenarioCmd.AddCommand(scenarioExportCmd)
	scenarioCmd.AddCommand(scenarioImportCmd)
}
