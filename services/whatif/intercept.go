// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// WriteIntercept describes one active write interception.
type WriteIntercept struct {
	Path             string    `json:"path"`
	RegisteredAt     time.Time `json:"registeredAt"`
	AcceptAllSources bool      `json:"acceptAllSources"`
}

type interceptEntry struct {
	info       WriteIntercept
	deregister func()
}

// InterceptRegistry manages per-path write interceptors with the PUT host.
//
// State machine per path: unregistered -> registered -> unregistered. At
// most one interceptor exists per path at any time; a second registration
// is silently refused rather than replacing the first.
type InterceptRegistry struct {
	mu            sync.Mutex
	host          *datatree.PutHost
	injector      *Injector
	vesselContext string
	entries       map[string]*interceptEntry
}

// NewInterceptRegistry creates an InterceptRegistry installing handlers on
// host, scoped to the injector's vessel context.
func NewInterceptRegistry(host *datatree.PutHost, injector *Injector) *InterceptRegistry {
	return &InterceptRegistry{
		host:          host,
		injector:      injector,
		vesselContext: injector.VesselContext(),
		entries:       make(map[string]*interceptEntry),
	}
}

// Register installs a write interceptor for path.
//
// Already-registered paths are a logged no-op, leaving the original
// registration untouched. Unless acceptAllSources is set, the installed
// handler only accepts writes labeled with the reserved suffix. Accepted
// writes are delegated to the injector using the invocation's own path,
// tolerating host-side path aliasing.
func (ir *InterceptRegistry) Register(ctx context.Context, path string, acceptAllSources bool) error {
	if path == "" {
		return fmt.Errorf("whatif: intercept registration requires a path")
	}

	ir.mu.Lock()
	defer ir.mu.Unlock()

	if _, exists := ir.entries[path]; exists {
		slog.Info("write intercept already registered, keeping existing handler", "path", path)
		return nil
	}

	sourceFilter := SourceSuffix
	if acceptAllSources {
		sourceFilter = ""
	}

	deregister, err := ir.host.Register(ir.vesselContext, path, sourceFilter, ir.putHandler())
	if err != nil {
		return fmt.Errorf("whatif: install write intercept for %s: %w", path, err)
	}

	ir.entries[path] = &interceptEntry{
		info: WriteIntercept{
			Path:             path,
			RegisteredAt:     time.Now().UTC(),
			AcceptAllSources: acceptAllSources,
		},
		deregister: deregister,
	}
	slog.Info("write intercept registered", "path", path, "acceptAllSources", acceptAllSources)
	return nil
}

// putHandler builds the action handler installed for every interception.
// It injects using the invocation's path, not the registration path, so
// host-side path aliasing still lands on the right leaf.
func (ir *InterceptRegistry) putHandler() datatree.ActionHandler {
	injector := ir.injector
	return func(ctx context.Context, vesselContext, invocationPath string, value any) datatree.ActionResult {
		if err := injector.Inject(ctx, invocationPath, value, ""); err != nil {
			return datatree.Failed(500, err.Error())
		}
		return datatree.Completed()
	}
}

// Unregister removes the interceptor for path, returning false if nothing
// was registered.
func (ir *InterceptRegistry) Unregister(path string) bool {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	entry, ok := ir.entries[path]
	if !ok {
		return false
	}
	entry.deregister()
	delete(ir.entries, path)
	slog.Info("write intercept unregistered", "path", path)
	return true
}

// Has reports whether path currently has an interceptor.
func (ir *InterceptRegistry) Has(path string) bool {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	_, ok := ir.entries[path]
	return ok
}

// Get returns the interceptor record for path, if any.
func (ir *InterceptRegistry) Get(path string) (WriteIntercept, bool) {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	entry, ok := ir.entries[path]
	if !ok {
		return WriteIntercept{}, false
	}
	return entry.info, true
}

// List returns all active interceptors sorted by path.
func (ir *InterceptRegistry) List() []WriteIntercept {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	out := make([]WriteIntercept, 0, len(ir.entries))
	for _, entry := range ir.entries {
		out = append(out, entry.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// TeardownAll unregisters every interceptor. Called once at subsystem
// shutdown; safe with zero registrations.
func (ir *InterceptRegistry) TeardownAll() {
	ir.mu.Lock()
	defer ir.mu.Unlock()

	for path, entry := range ir.entries {
		entry.deregister()
		delete(ir.entries, path)
	}
	slog.Info("all write intercepts torn down")
}
