// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import "time"

// flattenSkipKeys are structural and non-data keys of the tree wire shape.
// They are never recursed into and never become path segments.
var flattenSkipKeys = map[string]struct{}{
	"meta":      {},
	"timestamp": {},
	"$source":   {},
	"source":    {},
	"values":    {},
	"self":      {},
	"version":   {},
}

// FlattenTree walks a nested tree snapshot and flattens it into one
// PathSnapshot per leaf. A leaf is any nested object containing a "value"
// key; all other object-valued keys are recursed into. Output order is
// unspecified (callers sort).
func FlattenTree(root map[string]any) []PathSnapshot {
	var out []PathSnapshot
	flattenInto("", root, &out)
	return out
}

func flattenInto(prefix string, node map[string]any, out *[]PathSnapshot) {
	for key, raw := range node {
		if _, skip := flattenSkipKeys[key]; skip {
			continue
		}
		child, ok := raw.(map[string]any)
		if !ok {
			// Bare scalars outside a value object are framing noise
			continue
		}

		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if value, isLeaf := child["value"]; isLeaf {
			*out = append(*out, PathSnapshot{
				Path:      path,
				Value:     value,
				Timestamp: coerceTimestamp(child["timestamp"]),
				Source:    coerceSource(child),
				Meta:      coerceMeta(child["meta"]),
			})
		}

		// A leaf can still carry nested branches alongside its value
		flattenInto(path, child, out)
	}
}

func coerceTimestamp(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// coerceSource prefers the wire key "$source", falling back to "source".
func coerceSource(node map[string]any) string {
	if s, ok := node["$source"].(string); ok {
		return s
	}
	if s, ok := node["source"].(string); ok {
		return s
	}
	return ""
}

func coerceMeta(raw any) map[string]any {
	if m, ok := raw.(map[string]any); ok && len(m) > 0 {
		return m
	}
	return nil
}
