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
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Stream live value updates to the terminal",
	Long: `Connects to the bridge's websocket stream and prints every update on
the given paths. With no arguments, watches the whole tree ("*").
Press Ctrl-C to stop.`,
	Run: runWatchCommand,
}

type watchUpdate struct {
	Type string `json:"type"`
	Path struct {
		Path      string    `json:"path"`
		Value     any       `json:"value"`
		Timestamp time.Time `json:"timestamp"`
		Source    string    `json:"source"`
	} `json:"path"`
	Message string `json:"message"`
}

func runWatchCommand(cmd *cobra.Command, args []string) {
	paths := args
	if len(paths) == 0 {
		paths = []string{"*"}
	}

	wsURL := strings.Replace(strings.TrimSuffix(serverURL, "/"), "http", "ws", 1) + "/v1/stream"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}
	defer ws.Close()

	if err := ws.WriteJSON(map[string]any{"type": "subscribe", "paths": paths}); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", strings.Join(paths, ", "))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = ws.Close()
		os.Exit(0)
	}()

	for {
		var msg watchUpdate
		if err := ws.ReadJSON(&msg); err != nil {
			log.Fatalf("Stream closed: %v", err)
		}

		switch msg.Type {
		case "update":
			fmt.Printf("%s  %-45s %v  [%s]\n",
				msg.Path.Timestamp.Format(time.RFC3339), msg.Path.Path,
				msg.Path.Value, msg.Path.Source)
		case "error":
			fmt.Fprintf(os.Stderr, "stream error: %s\n", msg.Message)
		}
	}
}
