// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"fmt"
	"regexp"
)

// sourcePattern matches a complete dot-separated source label.
// Each segment allows letters, digits, hyphens and colons (bus device
// names like "n2k-01" and instance tags like "can0:15"), max 64
// characters per segment.
var sourcePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9:\-]{0,63}(\.[A-Za-z0-9][A-Za-z0-9:\-]{0,63})*$`)

// ValidateSource validates a client-provided source label before it is
// written into the tree.
//
// Valid labels:
//   - one or more dot-separated segments
//   - each segment 1-64 characters of letters, digits, hyphens or colons,
//     starting with a letter or digit
//
// Returns an error describing what is wrong with the label.
//
// Example:
//
//	if err := validation.ValidateSource(req.Source); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateSource(source string) error {
	if source == "" {
		return fmt.Errorf("source label cannot be empty")
	}
	if len(source) > 256 {
		return fmt.Errorf("source label too long (%d characters, max 256)", len(source))
	}
	if !sourcePattern.MatchString(source) {
		return fmt.Errorf("invalid source label %q (dot-separated segments of letters, digits, hyphens or colons)", source)
	}
	return nil
}
