// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers_test

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusMarine/PelorusSim/services/bridge/datatypes"
	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

func TestCreatePathThenGet(t *testing.T) {
	rig := newTestRig(t)

	w := rig.do(t, http.MethodPost, "/v1/paths", datatypes.CreatePathRequest{
		Path:  "tanks.fuel.virtual.currentLevel",
		Value: "0.75",
		Meta:  map[string]any{"units": "ratio"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = rig.do(t, http.MethodGet, "/v1/paths/tanks.fuel.virtual.currentLevel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, 0.75, body["value"])
	assert.Equal(t, "whatif-helper", body["source"])
}

func TestCreatePathRejectsBadPath(t *testing.T) {
	rig := newTestRig(t)

	w := rig.do(t, http.MethodPost, "/v1/paths", datatypes.CreatePathRequest{
		Path:  "tanks..fuel",
		Value: "1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = rig.do(t, http.MethodPost, "/v1/paths", map[string]any{"value": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "path is required")
}

func TestCreatePathWithIntercept(t *testing.T) {
	rig := newTestRig(t)

	w := rig.do(t, http.MethodPost, "/v1/paths", datatypes.CreatePathRequest{
		Path:      "navigation.speedOverGround",
		Value:     "0",
		Intercept: true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, rig.intercepts.Has("navigation.speedOverGround"))
	assert.True(t, rig.host.Has("vessels.self", "navigation.speedOverGround"))
}

func TestGetPathNotFound(t *testing.T) {
	rig := newTestRig(t)
	w := rig.do(t, http.MethodGet, "/v1/paths/no.such.path", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPathsWithFilters(t *testing.T) {
	rig := newTestRig(t)
	rig.store.Apply(datatree.Delta{
		Source: "n2k-01",
		Values: []datatree.PathValue{
			{Path: "tanks.fuel.0.currentLevel", Value: 0.5},
			{Path: "navigation.speedOverGround", Value: 4.2},
		},
	})
	rig.store.SetMeta("tanks.fuel.0.currentLevel", map[string]any{"units": "ratio"})

	w := rig.do(t, http.MethodGet, "/v1/paths?search=tanks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["count"])

	w = rig.do(t, http.MethodGet, "/v1/paths?units=ratio", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decodeBody(t, w)["count"])

	w = rig.do(t, http.MethodGet, "/v1/paths", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decodeBody(t, w)["count"])
}

func TestSetPathValueDerivesSource(t *testing.T) {
	rig := newTestRig(t)
	rig.store.Apply(datatree.Delta{
		Source: "n2k-01",
		Values: []datatree.PathValue{{Path: "environment.depth.belowKeel", Value: 12.0}},
	})

	w := rig.do(t, http.MethodPut, "/v1/paths/environment.depth.belowKeel/value",
		datatypes.SetValueRequest{Value: "0.4"})
	require.Equal(t, http.StatusOK, w.Code)

	leaf, ok := rig.store.Get("environment.depth.belowKeel")
	require.True(t, ok)
	assert.Equal(t, 0.4, leaf.Value)
	assert.Equal(t, "n2k-01.whatif-helper", leaf.Source)
}

func TestSetPathValueExplicitSource(t *testing.T) {
	rig := newTestRig(t)

	w := rig.do(t, http.MethodPut, "/v1/paths/a.b/value",
		datatypes.SetValueRequest{Value: "true", Source: "simulator"})
	require.Equal(t, http.StatusOK, w.Code)

	leaf, ok := rig.store.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, true, leaf.Value)
	assert.Equal(t, "simulator", leaf.Source)
}

func TestSetPathValueRejectsBadSource(t *testing.T) {
	rig := newTestRig(t)

	w := rig.do(t, http.MethodPut, "/v1/paths/a.b/value",
		datatypes.SetValueRequest{Value: "1", Source: "bad source!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePathReportsInjectionFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.bus.Close()

	before := testutil.ToFloat64(testMetrics.InjectionsTotal.WithLabelValues("error"))
	w := rig.do(t, http.MethodPost, "/v1/paths", datatypes.CreatePathRequest{
		Path:  "a.b",
		Value: "1",
	})
	require.Equal(t, http.StatusCreated, w.Code, "bookkeeping succeeds even when injection fails")
	assert.True(t, rig.registry.IsCreated("a.b"))
	assert.Equal(t, before+1,
		testutil.ToFloat64(testMetrics.InjectionsTotal.WithLabelValues("error")))
}

func TestSetPathValueFailsOnClosedBus(t *testing.T) {
	rig := newTestRig(t)
	rig.bus.Close()

	w := rig.do(t, http.MethodPut, "/v1/paths/a.b/value",
		datatypes.SetValueRequest{Value: "1"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
