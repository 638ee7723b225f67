// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the bridge service configuration from the
// environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the bridge service. Every
// field has a working default so the service starts with an empty
// environment: in-memory scenario storage, no read-back, no tracing.
type Config struct {
	// Port the HTTP server listens on.
	Port string `env:"BRIDGE_PORT" envDefault:"3858"`

	// SelfID is the vessel context all injections target.
	SelfID string `env:"BRIDGE_SELF_ID" envDefault:"vessels.self"`

	// DataDir holds the scenario database. Empty means in-memory.
	DataDir string `env:"BRIDGE_DATA_DIR"`

	// ReadbackURL enables post-injection read-back verification against a
	// REST endpoint serving single-path reads. Empty disables read-back.
	ReadbackURL string `env:"BRIDGE_READBACK_URL"`

	// TreeURL is a full-tree snapshot endpoint used as the listing fallback
	// when no in-process store is attached. It serves a different contract
	// than ReadbackURL (one nested document, not per-path reads). Empty
	// disables the fallback.
	TreeURL string `env:"BRIDGE_TREE_URL"`

	// LogDir enables JSON file logging alongside stderr. Empty disables it.
	LogDir string `env:"BRIDGE_LOG_DIR"`

	// OTLPEndpoint enables trace export. Empty disables tracing.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load parses the configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
