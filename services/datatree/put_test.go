// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(ctx context.Context, vesselContext, path string, value any) ActionResult {
	return Completed()
}

func TestPutHostRegisterAndPut(t *testing.T) {
	host := NewPutHost()

	var gotPath string
	var gotValue any
	deregister, err := host.Register("vessels.self", "tanks.fuel.0.currentLevel", "",
		func(ctx context.Context, vesselContext, path string, value any) ActionResult {
			gotPath = path
			gotValue = value
			return Completed()
		})
	require.NoError(t, err)
	defer deregister()

	result := host.Put(context.Background(), "vessels.self", "tanks.fuel.0.currentLevel", 0.5, "helm")
	assert.Equal(t, StateCompleted, result.State)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "tanks.fuel.0.currentLevel", gotPath)
	assert.Equal(t, 0.5, gotValue)
}

func TestPutHostDuplicateRegistration(t *testing.T) {
	host := NewPutHost()

	deregister, err := host.Register("vessels.self", "a.b", "", okHandler)
	require.NoError(t, err)
	defer deregister()

	_, err = host.Register("vessels.self", "a.b", "", okHandler)
	assert.Error(t, err)

	// Same path under a different context is a distinct registration
	dereg2, err := host.Register("vessels.other", "a.b", "", okHandler)
	require.NoError(t, err)
	dereg2()
}

func TestPutHostSourceFilter(t *testing.T) {
	host := NewPutHost()

	deregister, err := host.Register("vessels.self", "a.b", "whatif-helper", okHandler)
	require.NoError(t, err)
	defer deregister()

	accepted := host.Put(context.Background(), "vessels.self", "a.b", 1, "whatif-helper")
	assert.Equal(t, StateCompleted, accepted.State)

	rejected := host.Put(context.Background(), "vessels.self", "a.b", 1, "n2k-01")
	assert.Equal(t, StateFailed, rejected.State)
	assert.Equal(t, 405, rejected.StatusCode)
}

func TestPutHostNoHandler(t *testing.T) {
	host := NewPutHost()
	result := host.Put(context.Background(), "vessels.self", "no.handler", 1, "any")
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 405, result.StatusCode)
}

func TestPutHostDeregisterIdempotent(t *testing.T) {
	host := NewPutHost()

	deregister, err := host.Register("vessels.self", "a.b", "", okHandler)
	require.NoError(t, err)

	assert.True(t, host.Has("vessels.self", "a.b"))
	deregister()
	deregister() // second call is a no-op
	assert.False(t, host.Has("vessels.self", "a.b"))

	// Path is registrable again after deregistration
	dereg2, err := host.Register("vessels.self", "a.b", "", okHandler)
	require.NoError(t, err)
	dereg2()
}

func TestPutHostHandlerPanicIsContained(t *testing.T) {
	host := NewPutHost()

	deregister, err := host.Register("vessels.self", "a.b", "",
		func(ctx context.Context, vesselContext, path string, value any) ActionResult {
			panic("boom")
		})
	require.NoError(t, err)
	defer deregister()

	result := host.Put(context.Background(), "vessels.self", "a.b", 1, "any")
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, 500, result.StatusCode)
	assert.Contains(t, result.Message, "boom")
}
