// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"
)

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantErr bool
	}{
		{"plain device", "n2k-01", false},
		{"suffixed label", "n2k-01.whatif-helper", false},
		{"instance tag", "can0:15", false},
		{"dotted chain", "can0.engine.0", false},
		{"single letter", "a", false},
		{"empty", "", true},
		{"leading dot", ".n2k-01", true},
		{"trailing dot", "n2k-01.", true},
		{"double dot", "n2k..01", true},
		{"whitespace", "n2k 01", true},
		{"leading hyphen segment", "-bad", true},
		{"shell metacharacters", "src;rm", true},
		{"overlong", strings.Repeat("a", 257), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSource(tc.source)
			if tc.wantErr && err == nil {
				t.Errorf("ValidateSource(%q) = nil, want error", tc.source)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("ValidateSource(%q) = %v, want nil", tc.source, err)
			}
		})
	}
}
