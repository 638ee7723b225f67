// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatree implements the vessel data tree runtime: a hierarchical
// dot-path keyed store of sensor values, a change-event bus publishing every
// mutation as a delta, and a PUT-action host that routes external writes to
// registered handlers.
//
// The tree holds live state only. Nothing in this package persists to disk;
// a restart starts from an empty tree.
package datatree

import "time"

// LeafValue is the current state of a single tree leaf.
type LeafValue struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// PathValue is one path/value pair carried by a delta.
type PathValue struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Delta is a timestamped, source-labeled update to one or more paths,
// addressed to a vessel context.
type Delta struct {
	Context   string      `json:"context"`
	Source    string      `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
	Values    []PathValue `json:"values"`
}

// Change is a single applied tree mutation as seen by bus subscribers.
type Change struct {
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// ActionResult reports the outcome of a PUT action to its invoker.
type ActionResult struct {
	State      string `json:"state"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
}

// PUT action states.
const (
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
)

// Completed returns a successful ActionResult.
func Completed() ActionResult {
	return ActionResult{State: StateCompleted, StatusCode: 200}
}

// Failed returns a failed ActionResult with the given status and message.
func Failed(statusCode int, message string) ActionResult {
	return ActionResult{State: StateFailed, StatusCode: statusCode, Message: message}
}
