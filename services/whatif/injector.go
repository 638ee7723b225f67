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
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// SourceSuffix is the reserved source label marking values injected by this
// subsystem. It is appended to the overwritten value's source exactly once,
// however many times a path is re-injected.
const SourceSuffix = "whatif-helper"

// DefaultReadbackDelay is how long after an injection the diagnostic
// read-back fires when one is configured.
const DefaultReadbackDelay = 2 * time.Second

// InjectorConfig configures an Injector.
type InjectorConfig struct {
	// VesselContext addresses every injected delta (e.g. "vessels.self").
	VesselContext string

	// ReadbackURL, when set, enables a best-effort delayed HTTP read-back
	// of each injected path against the tree's REST surface. Purely
	// diagnostic: failures are logged and never surfaced.
	ReadbackURL string

	// ReadbackDelay overrides DefaultReadbackDelay.
	ReadbackDelay time.Duration
}

// Injector turns (path, value, optional source) requests into source-labeled
// deltas on the change bus.
type Injector struct {
	store         *datatree.Store
	bus           *datatree.Bus
	vesselContext string
	readbackURL   string
	readbackDelay time.Duration
	httpClient    *http.Client
}

// NewInjector creates an Injector publishing to bus and deriving source
// labels from store.
func NewInjector(store *datatree.Store, bus *datatree.Bus, cfg InjectorConfig) *Injector {
	delay := cfg.ReadbackDelay
	if delay <= 0 {
		delay = DefaultReadbackDelay
	}
	vctx := cfg.VesselContext
	if vctx == "" {
		vctx = "vessels.self"
	}
	return &Injector{
		store:         store,
		bus:           bus,
		vesselContext: vctx,
		readbackURL:   strings.TrimSuffix(cfg.ReadbackURL, "/"),
		readbackDelay: delay,
		httpClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

// VesselContext returns the context every injected delta is addressed to.
func (i *Injector) VesselContext() string {
	return i.vesselContext
}

// DeriveSourceLabel computes the label for an injected value overwriting a
// value whose current source is current.
//
// Any trailing occurrences of the reserved suffix are stripped first, so
// re-injecting over an already-injected value never stacks the suffix:
//
//	""                       -> "whatif-helper"
//	"n2k-01"                 -> "n2k-01.whatif-helper"
//	"n2k-01.whatif-helper"   -> "n2k-01.whatif-helper"
//	"whatif-helper"          -> "whatif-helper"
func DeriveSourceLabel(current string) string {
	base := current
	for strings.HasSuffix(base, "."+SourceSuffix) {
		base = strings.TrimSuffix(base, "."+SourceSuffix)
	}
	if base == "" || base == SourceSuffix {
		return SourceSuffix
	}
	return base + "." + SourceSuffix
}

// Inject submits a single-path delta to the change bus.
//
// explicitSource is used verbatim when non-empty; otherwise the label is
// derived from the path's current source via DeriveSourceLabel. The call
// returns once the bus has accepted the delta, not once observers have
// seen it.
func (i *Injector) Inject(ctx context.Context, path string, value any, explicitSource string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("whatif: inject requires a path")
	}

	source := explicitSource
	if source == "" {
		current := ""
		if leaf, ok := i.store.Get(path); ok {
			current = leaf.Source
		}
		source = DeriveSourceLabel(current)
	}

	delta := datatree.Delta{
		Context:   i.vesselContext,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Values:    []datatree.PathValue{{Path: path, Value: value}},
	}
	if err := i.bus.Publish(delta); err != nil {
		return fmt.Errorf("whatif: publish delta for %s: %w", path, err)
	}

	slog.Debug("injected value", "path", path, "source", source)

	if i.readbackURL != "" {
		// Detached and not cancelable; the result is diagnostic only.
		time.AfterFunc(i.readbackDelay, func() { i.readback(path) })
	}
	return nil
}

// readback fetches the injected path from the tree's REST surface and logs
// what came back. Failures are inert.
func (i *Injector) readback(path string) {
	url := i.readbackURL + "/" + strings.ReplaceAll(path, ".", "/")
	resp, err := i.httpClient.Get(url)
	if err != nil {
		slog.Debug("read-back fetch failed", "path", path, "error", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		slog.Debug("read-back read failed", "path", path, "error", err)
		return
	}
	slog.Debug("read-back", "path", path, "status", resp.StatusCode, "body", string(body))
}
