// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the wire structures of the bridge API.
package datatypes

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CreatePathRequest creates a synthetic path in the tree.
//
// Value is free text: "true", "3.14", a JSON object or array, or any other
// string taken verbatim. See CoerceValue for the interpretation order.
type CreatePathRequest struct {
	Path      string         `json:"path" binding:"required"`
	Value     string         `json:"value"`
	Meta      map[string]any `json:"meta,omitempty"`
	Intercept bool           `json:"intercept,omitempty"`
	// AcceptAllSources widens the intercept beyond the reserved source
	// label. Only meaningful with Intercept set.
	AcceptAllSources bool `json:"acceptAllSources,omitempty"`
}

// SetValueRequest overwrites the value at an existing path. Source, when
// set, is used verbatim as the delta's source label instead of the derived
// one.
type SetValueRequest struct {
	Value  string `json:"value"`
	Source string `json:"source,omitempty"`
}

// RegisterInterceptRequest installs a write interceptor.
type RegisterInterceptRequest struct {
	Path             string `json:"path" binding:"required"`
	AcceptAllSources bool   `json:"acceptAllSources,omitempty"`
}

// PutRequest is an inbound write action in the host's wire shape.
type PutRequest struct {
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
}

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CoerceValue interprets free-text input as a typed value: the boolean
// literals, then a number, then a JSON document, and finally the raw
// string itself. Surrounding whitespace only influences interpretation,
// never the returned string.
func CoerceValue(raw string) any {
	trimmed := strings.TrimSpace(raw)

	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "\"") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}

	return raw
}
