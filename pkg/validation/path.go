// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-provided identifiers.
//
// This package contains validators for inputs that end up as keys in the
// vessel data tree or as URL segments. Using these validators keeps malformed
// or hostile identifiers out of the tree and out of downstream lookups.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentPattern matches a single dot-path segment.
// A segment is either alphanumeric starting with a letter (navigation,
// tanks, currentLevel) or purely numeric (zone indices like 0, 1, 2).
var segmentPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*|[0-9]+)$`)

// ValidatePath validates a dot-separated data tree path.
//
// Valid paths:
//   - one or more dot-separated segments
//   - each segment alphanumeric starting with a letter, or purely numeric
//   - case-sensitive, no whitespace, no empty segments
//
// Returns an error describing the first offending segment.
//
// Example:
//
//	if err := validation.ValidatePath(req.Path); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	for _, segment := range strings.Split(path, ".") {
		if !segmentPattern.MatchString(segment) {
			return fmt.Errorf("invalid path segment %q in %q (segments must be alphanumeric starting with a letter, or purely numeric)", segment, path)
		}
	}

	return nil
}

// SanitizePath trims surrounding whitespace and validates the result.
// Returns the cleaned path if valid, or an error if invalid.
func SanitizePath(path string) (string, error) {
	cleaned := strings.TrimSpace(path)
	if err := ValidatePath(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}
