// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

func newTestIntercepts(t *testing.T) (*datatree.Store, *datatree.PutHost, *InterceptRegistry) {
	t.Helper()
	store, _, injector := newTestRig(t)
	host := datatree.NewPutHost()
	return store, host, NewInterceptRegistry(host, injector)
}

func TestRegisterInstallsHandler(t *testing.T) {
	store, host, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "tanks.fuel.0.currentLevel", false))
	assert.True(t, intercepts.Has("tanks.fuel.0.currentLevel"))
	assert.True(t, host.Has("vessels.self", "tanks.fuel.0.currentLevel"))

	// A PUT labeled with the reserved suffix flows through to the tree
	result := host.Put(ctx, "vessels.self", "tanks.fuel.0.currentLevel", 0.42, SourceSuffix)
	assert.Equal(t, datatree.StateCompleted, result.State)
	assert.Equal(t, 200, result.StatusCode)

	leaf, ok := store.Get("tanks.fuel.0.currentLevel")
	require.True(t, ok)
	assert.Equal(t, 0.42, leaf.Value)
}

func TestRegisterFiltersForeignSources(t *testing.T) {
	store, host, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "a.b", false))

	result := host.Put(ctx, "vessels.self", "a.b", 1, "n2k-01")
	assert.Equal(t, datatree.StateFailed, result.State)
	_, ok := store.Get("a.b")
	assert.False(t, ok)
}

func TestRegisterAcceptAllSources(t *testing.T) {
	store, host, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "a.b", true))

	result := host.Put(ctx, "vessels.self", "a.b", 7, "n2k-01")
	assert.Equal(t, datatree.StateCompleted, result.State)
	leaf, ok := store.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, 7, leaf.Value)
}

func TestRegisterAtMostOnePerPath(t *testing.T) {
	_, _, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "a.b", false))
	first, ok := intercepts.Get("a.b")
	require.True(t, ok)

	// Second registration is a silent no-op, not an error and not a
	// replacement.
	require.NoError(t, intercepts.Register(ctx, "a.b", true))
	second, ok := intercepts.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, first.RegisteredAt, second.RegisteredAt)
	assert.False(t, second.AcceptAllSources, "original registration must survive")

	assert.Len(t, intercepts.List(), 1)
}

func TestInterceptUsesInvocationPath(t *testing.T) {
	// The host may alias the registration path; the injected path must be
	// the invocation's, not the registration's.
	store, _, injector := newTestRig(t)
	host := datatree.NewPutHost()
	intercepts := NewInterceptRegistry(host, injector)

	handler := intercepts.putHandler()
	result := handler(context.Background(), "vessels.self", "a.b.aliased", 1)
	require.Equal(t, datatree.StateCompleted, result.State)

	leaf, ok := store.Get("a.b.aliased")
	require.True(t, ok)
	assert.Equal(t, 1, leaf.Value)
}

func TestInterceptReportsInjectorFailure(t *testing.T) {
	_, bus, injector := newTestRig(t)
	host := datatree.NewPutHost()
	intercepts := NewInterceptRegistry(host, injector)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "a.b", true))
	bus.Close()

	result := host.Put(ctx, "vessels.self", "a.b", 1, "any")
	assert.Equal(t, datatree.StateFailed, result.State)
	assert.Equal(t, 500, result.StatusCode)
	assert.NotEmpty(t, result.Message)
}

func TestUnregisterUnknownPath(t *testing.T) {
	_, _, intercepts := newTestIntercepts(t)
	assert.False(t, intercepts.Unregister("no.such.path"))
	assert.Empty(t, intercepts.List())
}

func TestUnregisterRemovesHandler(t *testing.T) {
	_, host, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	require.NoError(t, intercepts.Register(ctx, "a.b", false))
	assert.True(t, intercepts.Unregister("a.b"))
	assert.False(t, intercepts.Has("a.b"))
	assert.False(t, host.Has("vessels.self", "a.b"))

	// Registration works again after unregistration
	require.NoError(t, intercepts.Register(ctx, "a.b", false))
	assert.True(t, intercepts.Has("a.b"))
}

func TestListIsSortedByPath(t *testing.T) {
	_, _, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	for _, path := range []string{"c.d", "a.b", "b.c"} {
		require.NoError(t, intercepts.Register(ctx, path, false))
	}

	list := intercepts.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a.b", list[0].Path)
	assert.Equal(t, "b.c", list[1].Path)
	assert.Equal(t, "c.d", list[2].Path)
}

func TestTeardownAll(t *testing.T) {
	_, host, intercepts := newTestIntercepts(t)
	ctx := context.Background()

	// Safe with zero registrations
	intercepts.TeardownAll()

	require.NoError(t, intercepts.Register(ctx, "a.b", false))
	require.NoError(t, intercepts.Register(ctx, "c.d", false))

	intercepts.TeardownAll()
	assert.Empty(t, intercepts.List())
	assert.False(t, host.Has("vessels.self", "a.b"))
	assert.False(t, host.Has("vessels.self", "c.d"))
}
