// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "pelorusctl",
	Short: "A CLI to manage a running Pelorus bridge",
	Long: `pelorusctl talks to the bridge's REST and websocket APIs to inspect
the vessel data tree, inject values, manage write intercepts and replay
scenarios.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:3858", "Bridge base URL")

	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(interceptsCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(watchCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// apiCall performs one JSON request against the bridge and decodes the
// response into out when out is non-nil. Non-2xx responses become errors
// carrying the server's error body.
func apiCall(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		doc, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(doc)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(serverURL, "/")+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable at %s: %w", serverURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}

func printJSON(v any) {
	doc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to render output: %v", err)
	}
	fmt.Println(string(doc))
}
