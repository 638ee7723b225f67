// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatree

import (
	"strings"
	"sync"
	"time"
)

// Store is the in-memory vessel data tree.
//
// Leaves are keyed by dot-separated path. Metadata lives at the conventional
// "<path>.meta" sub-entry and is kept separate from leaf values. All methods
// are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	self   string
	leaves map[string]LeafValue
	meta   map[string]map[string]any
}

// NewStore creates an empty Store identified by the given self context
// (e.g. "vessels.self").
func NewStore(self string) *Store {
	return &Store{
		self:   self,
		leaves: make(map[string]LeafValue),
		meta:   make(map[string]map[string]any),
	}
}

// Self returns the store's own vessel context identifier.
func (s *Store) Self() string {
	return s.self
}

// Get returns the current leaf state for path, reporting whether the tree
// has an entry for it.
func (s *Store) Get(path string) (LeafValue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	leaf, ok := s.leaves[path]
	return leaf, ok
}

// GetMeta returns the tree-provided metadata stored at "<path>.meta", or
// false if none exists.
func (s *Store) GetMeta(path string) (map[string]any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meta[path]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
}

// SetMeta stores metadata at "<path>.meta", replacing any previous entry.
func (s *Store) SetMeta(path string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]any, len(meta))
	for k, v := range meta {
		m[k] = v
	}
	s.meta[path] = m
}

// MergeMeta merges meta into the entry at "<path>.meta", overriding existing
// keys and leaving the rest untouched.
func (s *Store) MergeMeta(path string, meta map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[path]
	if !ok {
		m = make(map[string]any, len(meta))
		s.meta[path] = m
	}
	for k, v := range meta {
		m[k] = v
	}
}

// Apply writes every path/value pair of the delta into the tree, stamping
// each leaf with the delta's timestamp and source label. A zero timestamp
// is replaced with the current time.
func (s *Store) Apply(d Delta) []Change {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make([]Change, 0, len(d.Values))
	for _, pv := range d.Values {
		if pv.Path == "" {
			continue
		}
		s.leaves[pv.Path] = LeafValue{Value: pv.Value, Timestamp: ts, Source: d.Source}
		changes = append(changes, Change{Path: pv.Path, Value: pv.Value, Timestamp: ts, Source: d.Source})
	}
	return changes
}

// Full returns a nested snapshot of the entire tree in wire shape: every
// leaf is an object holding "value", "timestamp" (RFC 3339) and "$source",
// with metadata attached under "meta". The top level carries the "self" and
// "version" framing keys.
func (s *Store) Full() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root := map[string]any{
		"self":    s.self,
		"version": "1.0.0",
	}

	for path, leaf := range s.leaves {
		node := leafNode(root, path)
		node["value"] = leaf.Value
		node["timestamp"] = leaf.Timestamp.Format(time.RFC3339Nano)
		node["$source"] = leaf.Source
		if m, ok := s.meta[path]; ok {
			meta := make(map[string]any, len(m))
			for k, v := range m {
				meta[k] = v
			}
			node["meta"] = meta
		}
	}

	return root
}

// leafNode walks (creating as needed) the nested maps down to the node for
// path. Existing non-map entries along the way are replaced; the tree wire
// shape always nests leaves inside objects.
func leafNode(root map[string]any, path string) map[string]any {
	node := root
	for _, segment := range strings.Split(path, ".") {
		child, ok := node[segment].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[segment] = child
		}
		node = child
	}
	return node
}
