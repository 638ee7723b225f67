// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// Registry owns the set of paths this subsystem has created and their
// synthesized metadata, and is the single read path for all callers.
type Registry struct {
	mu          sync.RWMutex
	store       *datatree.Store
	injector    *Injector
	created     map[string]map[string]any
	fallbackURL string
	httpClient  *http.Client
}

// NewRegistry creates a Registry over store, delegating initial value
// propagation to injector. fallbackURL is the well-known vessel-data
// endpoint used for full-tree reads when no store is attached; it may be
// empty when a store is always present.
func NewRegistry(store *datatree.Store, injector *Injector, fallbackURL string) *Registry {
	return &Registry{
		store:       store,
		injector:    injector,
		created:     make(map[string]map[string]any),
		fallbackURL: strings.TrimSuffix(fallbackURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Create registers path as created by this subsystem, stores its metadata
// for later merge, and delegates the initial value to the injector.
//
// Bookkeeping cannot fail. The returned error reports the downstream
// injection outcome for observability only; the path is registered either
// way and callers must not surface it as a create failure.
func (r *Registry) Create(ctx context.Context, path string, value any, meta map[string]any) error {
	r.mu.Lock()
	var copied map[string]any
	if len(meta) > 0 {
		copied = make(map[string]any, len(meta))
		for k, v := range meta {
			copied[k] = v
		}
	}
	r.created[path] = copied
	r.mu.Unlock()

	// Tree-provided metadata keys stay in place; registry keys override.
	if len(copied) > 0 && r.store != nil {
		r.store.MergeMeta(path, copied)
	}

	if err := r.injector.Inject(ctx, path, value, ""); err != nil {
		slog.Warn("initial value injection failed", "path", path, "error", err)
		return err
	}
	return nil
}

// IsCreated reports whether path was created by this subsystem.
func (r *Registry) IsCreated(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.created[path]
	return ok
}

// ListCreated returns all paths created by this subsystem, sorted.
func (r *Registry) ListCreated() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.created))
	for path := range r.created {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// CreatedMeta returns the registry-owned metadata for a created path, or
// nil if the path was not created here or carries no metadata.
func (r *Registry) CreatedMeta(path string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta := r.created[path]
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// Read returns the current snapshot of path, merging tree-provided metadata
// with registry metadata (registry wins on key conflicts). The second
// return is false when the tree has no entry for path.
func (r *Registry) Read(path string) (PathSnapshot, bool) {
	if r.store == nil {
		return PathSnapshot{}, false
	}
	leaf, ok := r.store.Get(path)
	if !ok {
		return PathSnapshot{}, false
	}

	merged := map[string]any{}
	if treeMeta, ok := r.store.GetMeta(path); ok {
		for k, v := range treeMeta {
			merged[k] = v
		}
	}
	r.mu.RLock()
	for k, v := range r.created[path] {
		merged[k] = v
	}
	r.mu.RUnlock()
	if len(merged) == 0 {
		merged = nil
	}

	return PathSnapshot{
		Path:      path,
		Value:     leaf.Value,
		Timestamp: leaf.Timestamp,
		Source:    leaf.Source,
		Meta:      merged,
	}, true
}

// List flattens the full tree into snapshots, applies the filter, and
// returns the result sorted lexicographically by path. Identical tree and
// filter always yield identical ordered output.
func (r *Registry) List(f Filter) ([]PathSnapshot, error) {
	full, err := r.fullTree()
	if err != nil {
		return nil, err
	}

	snaps := FlattenTree(full)

	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		snaps = keep(snaps, func(s PathSnapshot) bool {
			return strings.Contains(strings.ToLower(s.Path), needle)
		})
	}
	if f.HasValue {
		snaps = keep(snaps, func(s PathSnapshot) bool { return s.Value != nil })
	}
	if f.HasMeta {
		snaps = keep(snaps, func(s PathSnapshot) bool { return len(s.Meta) > 0 })
	}
	if f.Units != "" {
		snaps = keep(snaps, func(s PathSnapshot) bool {
			units, _ := s.Meta["units"].(string)
			return units == f.Units
		})
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Path < snaps[j].Path })
	return snaps, nil
}

func keep(snaps []PathSnapshot, pred func(PathSnapshot) bool) []PathSnapshot {
	out := snaps[:0]
	for _, s := range snaps {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// fullTree returns the nested snapshot, preferring the attached store and
// falling back to an HTTP fetch of the vessel-data endpoint.
func (r *Registry) fullTree() (map[string]any, error) {
	if r.store != nil {
		return r.store.Full(), nil
	}
	if r.fallbackURL == "" {
		return nil, fmt.Errorf("whatif: no tree snapshot source available")
	}

	resp, err := r.httpClient.Get(r.fallbackURL)
	if err != nil {
		return nil, fmt.Errorf("whatif: fallback tree fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whatif: fallback tree fetch returned %d", resp.StatusCode)
	}

	var full map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&full); err != nil {
		return nil, fmt.Errorf("whatif: decode fallback tree: %w", err)
	}
	return full, nil
}
