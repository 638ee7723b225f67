// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package whatif implements the value-injection subsystem: a registry of
// synthetic paths, a source-labeled value injector feeding the change bus,
// a write-intercept registry claiming PUT authority over selected paths,
// and a hub fanning live changes out to stream observers.
//
// Everything here is process-scoped and ephemeral; injected values never
// survive a restart. The only durable state is the scenario store.
package whatif

import "time"

// PathSnapshot is a read-only projection of one tree path, computed on
// demand from the data tree plus registry metadata. It is never persisted.
type PathSnapshot struct {
	Path      string         `json:"path"`
	Value     any            `json:"value"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Filter narrows Registry.List output. Filters compose by intersection and
// the zero value matches everything.
type Filter struct {
	// Search keeps paths containing this substring, case-insensitively.
	Search string

	// HasValue drops snapshots whose value is null.
	HasValue bool

	// HasMeta drops snapshots without metadata.
	HasMeta bool

	// Units keeps snapshots whose meta.units equals this string exactly.
	Units string
}
