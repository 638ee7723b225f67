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

	"github.com/spf13/cobra"
)

var interceptAcceptAll bool

var interceptsCmd = &cobra.Command{
	Use:   "intercepts",
	Short: "Manage write intercepts on tree paths",
}

var interceptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active write intercepts",
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := apiCall("GET", "/v1/intercepts", nil, &out); err != nil {
			log.Fatalf("Failed to list intercepts: %v", err)
		}
		printJSON(out)
	},
}

var interceptsAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Install a write intercept on a path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body := map[string]any{
			"path":             args[0],
			"acceptAllSources": interceptAcceptAll,
		}
		if err := apiCall("POST", "/v1/intercepts", body, nil); err != nil {
			log.Fatalf("Failed to add intercept: %v", err)
		}
		fmt.Printf("Intercepting writes to %s\n", args[0])
	},
}

var interceptsRemoveCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Remove the write intercept on a path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := apiCall("DELETE", "/v1/intercepts/"+args[0], nil, nil); err != nil {
			log.Fatalf("Failed to remove intercept: %v", err)
		}
		fmt.Printf("Stopped intercepting %s\n", args[0])
	},
}

func init() {
	interceptsAddCmd.Flags().BoolVar(&interceptAcceptAll, "accept-all", false,
		"Accept writes from any source, not only the reserved label")

	interceptsCmd.AddCommand(interceptsListCmd)
	interceptsCmd.AddCommand(interceptsAddCmd)
	interceptsCmd.AddCommand(interceptsRemoveCmd)
}
