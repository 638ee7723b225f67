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
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var (
	pathsSearch    string
	pathsUnits     string
	pathsHasValue  bool
	pathsHasMeta   bool
	setSource      string
	createMeta     []string
	createIntercpt bool
	createAcceptAl bool
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Inspect and mutate vessel data tree paths",
}

var pathsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tree paths with their current values",
	Run: func(cmd *cobra.Command, args []string) {
		q := url.Values{}
		if pathsSearch != "" {
			q.Set("search", pathsSearch)
		}
		if pathsUnits != "" {
			q.Set("units", pathsUnits)
		}
		if pathsHasValue {
			q.Set("hasValue", "true")
		}
		if pathsHasMeta {
			q.Set("hasMeta", "true")
		}

		target := "/v1/paths"
		if len(q) > 0 {
			target += "?" + q.Encode()
		}

		var out map[string]any
		if err := apiCall("GET", target, nil, &out); err != nil {
			log.Fatalf("Failed to list paths: %v", err)
		}
		printJSON(out)
	},
}

var pathsGetCmd = &cobra.Command{
	Use:   "get [path]",
	Short: "Show the current snapshot of one path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out map[string]any
		if err := apiCall("GET", "/v1/paths/"+args[0], nil, &out); err != nil {
			log.Fatalf("Failed to get path: %v", err)
		}
		printJSON(out)
	},
}

var pathsSetCmd = &cobra.Command{
	Use:   "set [path] [value]",
	Short: "Inject a new value at a path",
	Long: `Injects a value at an existing path. The value is free text: "true",
"3.14", a JSON document, or any other string taken verbatim.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		body := map[string]any{"value": args[1]}
		if setSource != "" {
			body["source"] = setSource
		}
		if err := apiCall("PUT", "/v1/paths/"+args[0]+"/value", body, nil); err != nil {
			log.Fatalf("Failed to set value: %v", err)
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
	},
}

var pathsCreateCmd = &cobra.Command{
	Use:   "create [path] [value]",
	Short: "Create a synthetic path with an initial value",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		meta := map[string]any{}
		for _, pair := range createMeta {
			key, value, found := strings.Cut(pair, "=")
			if !found {
				log.Fatalf("Invalid --meta entry %q, expected key=value", pair)
			}
			meta[key] = value
		}

		body := map[string]any{
			"path":             args[0],
			"value":            args[1],
			"intercept":        createIntercpt,
			"acceptAllSources": createAcceptAl,
		}
		if len(meta) > 0 {
			body["meta"] = meta
		}

		if err := apiCall("POST", "/v1/paths", body, nil); err != nil {
			log.Fatalf("Failed to create path: %v", err)
		}
		fmt.Printf("Created %s\n", args[0])
	},
}

func init() {
	pathsListCmd.Flags().StringVar(&pathsSearch, "search", "", "Case-insensitive path substring filter")
	pathsListCmd.Flags().StringVar(&pathsUnits, "units", "", "Exact base-unit filter (e.g. ratio, m/s)")
	pathsListCmd.Flags().BoolVar(&pathsHasValue, "has-value", false, "Only paths with a non-null value")
	pathsListCmd.Flags().BoolVar(&pathsHasMeta, "has-meta", false, "Only paths carrying metadata")

	pathsSetCmd.Flags().StringVar(&setSource, "source", "", "Explicit source label instead of the derived one")

	pathsCreateCmd.Flags().StringArrayVar(&createMeta, "meta", nil, "Metadata entry as key=value (repeatable)")
	pathsCreateCmd.Flags().BoolVar(&createIntercpt, "intercept", false, "Also install a write intercept on the path")
	pathsCreateCmd.Flags().BoolVar(&createAcceptAl, "accept-all", false, "Intercept accepts writes from any source")

	pathsCmd.AddCommand(pathsListCmd)
	pathsCmd.AddCommand(pathsGetCmd)
	pathsCmd.AddCommand(pathsSetCmd)
	pathsCmd.AddCommand(pathsCreateCmd)
}
