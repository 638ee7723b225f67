// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// fakeConn records everything written to it.
type fakeConn struct {
	mu       sync.Mutex
	messages []any
	failing  bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("connection not writable")
	}
	c.messages = append(c.messages, v)
	return nil
}

func (c *fakeConn) all() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *fakeConn) updates() []updateMessage {
	var out []updateMessage
	for _, m := range c.all() {
		if u, ok := m.(updateMessage); ok {
			out = append(out, u)
		}
	}
	return out
}

func (c *fakeConn) fulls() []fullMessage {
	var out []fullMessage
	for _, m := range c.all() {
		if f, ok := m.(fullMessage); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) errors() []errorMessage {
	var out []errorMessage
	for _, m := range c.all() {
		if e, ok := m.(errorMessage); ok {
			out = append(out, e)
		}
	}
	return out
}

// Deliveries drain through the observer's writer goroutine, so presence
// assertions wait for the queue to flush. Absence assertions need no wait:
// a message never enqueued can never arrive.
func (c *fakeConn) waitUpdates(t *testing.T, n int) []updateMessage {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.updates()) >= n },
		time.Second, 5*time.Millisecond)
	return c.updates()
}

func (c *fakeConn) waitFulls(t *testing.T, n int) []fullMessage {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.fulls()) >= n },
		time.Second, 5*time.Millisecond)
	return c.fulls()
}

func (c *fakeConn) waitErrors(t *testing.T, n int) []errorMessage {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.errors()) >= n },
		time.Second, 5*time.Millisecond)
	return c.errors()
}

func newTestHub(t *testing.T) (*datatree.Store, *Registry, *Hub) {
	t.Helper()
	store, _, registry := newTestRegistry(t)
	return store, registry, NewHub(registry, nil)
}

func subscribe(t *testing.T, hub *Hub, obs *Observer, paths ...string) {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"type": "subscribe", "paths": paths})
	require.NoError(t, err)
	hub.HandleMessage(obs, msg)
}

func TestAttachSendsEmptyFull(t *testing.T) {
	_, _, hub := newTestHub(t)
	conn := &fakeConn{}

	obs := hub.Attach(conn)
	require.NotEmpty(t, obs.ID)
	assert.Equal(t, 1, hub.ObserverCount())

	fulls := conn.waitFulls(t, 1)
	require.Len(t, fulls, 1)
	assert.Equal(t, "full", fulls[0].Type)
	assert.NotNil(t, fulls[0].Paths)
	assert.Empty(t, fulls[0].Paths)
}

func TestSubscribeFanOutExactPath(t *testing.T) {
	_, _, hub := newTestHub(t)

	connA := &fakeConn{}
	obsA := hub.Attach(connA)
	subscribe(t, hub, obsA, "a.b")

	connOther := &fakeConn{}
	obsOther := hub.Attach(connOther)
	subscribe(t, hub, obsOther, "x.y")

	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1, Timestamp: time.Now(), Source: "test"})
	hub.Broadcast(datatree.Change{Path: "a.c", Value: 2, Timestamp: time.Now(), Source: "test"})

	updates := connA.waitUpdates(t, 1)
	require.Len(t, updates, 1)
	assert.Equal(t, "a.b", updates[0].Path.Path)
	assert.Equal(t, 1, updates[0].Path.Value)

	assert.Empty(t, connOther.updates())
}

func TestWildcardReceivesEverything(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, Wildcard)

	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})
	hub.Broadcast(datatree.Change{Path: "x.y.z", Value: 2})

	assert.Len(t, conn.waitUpdates(t, 2), 2)
}

func TestUnsubscribeAllStopsDelivery(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, Wildcard, "a.b")

	hub.HandleMessage(obs, []byte(`{"type":"unsubscribeAll"}`))
	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})

	assert.Empty(t, conn.updates())
	assert.Empty(t, obs.Subscriptions())
}

func TestUnsubscribeSinglePath(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, "a.b", "c.d")

	hub.HandleMessage(obs, []byte(`{"type":"unsubscribe","path":"a.b"}`))

	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})
	hub.Broadcast(datatree.Change{Path: "c.d", Value: 2})

	updates := conn.waitUpdates(t, 1)
	require.Len(t, updates, 1)
	assert.Equal(t, "c.d", updates[0].Path.Path)
}

func TestSnapshotOnSubscribe(t *testing.T) {
	_, registry, hub := newTestHub(t)
	registry.Create(context.Background(), "x.y", 0.5, map[string]any{"units": "ratio"})

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, "x.y")

	fulls := conn.waitFulls(t, 2)
	require.Len(t, fulls, 2, "connect ack plus subscribe snapshot")
	snap := fulls[1]
	require.Len(t, snap.Paths, 1)
	assert.Equal(t, "x.y", snap.Paths[0].Path)
	assert.Equal(t, 0.5, snap.Paths[0].Value)
}

func TestSnapshotOmitsNotFound(t *testing.T) {
	_, registry, hub := newTestHub(t)
	registry.Create(context.Background(), "x.y", 1, nil)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, "x.y", "no.such.path")

	fulls := conn.waitFulls(t, 2)
	require.Len(t, fulls, 2)
	require.Len(t, fulls[1].Paths, 1)
	assert.Equal(t, "x.y", fulls[1].Paths[0].Path)
}

func TestWildcardSnapshotCoversTree(t *testing.T) {
	store, _, hub := newTestHub(t)
	store.Apply(datatree.Delta{
		Source: "n2k-01",
		Values: []datatree.PathValue{
			{Path: "a.b", Value: 1},
			{Path: "c.d", Value: 2},
		},
	})

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, Wildcard)

	fulls := conn.waitFulls(t, 2)
	require.Len(t, fulls, 2)
	assert.Len(t, fulls[1].Paths, 2)
}

func TestMalformedMessageKeepsConnectionOpen(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)

	hub.HandleMessage(obs, []byte(`{not json`))
	require.Len(t, conn.waitErrors(t, 1), 1)

	hub.HandleMessage(obs, []byte(`{"type":"warp"}`))
	require.Len(t, conn.waitErrors(t, 2), 2)

	hub.HandleMessage(obs, []byte(`{"type":"subscribe"}`))
	require.Len(t, conn.waitErrors(t, 3), 3, "subscribe without paths is rejected")

	// The observer still works afterwards
	subscribe(t, hub, obs, "a.b")
	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})
	assert.Len(t, conn.waitUpdates(t, 1), 1)
}

func TestBroadcastSkipsUnwritableObserver(t *testing.T) {
	_, _, hub := newTestHub(t)

	healthy := &fakeConn{}
	obsHealthy := hub.Attach(healthy)
	subscribe(t, hub, obsHealthy, Wildcard)

	broken := &fakeConn{failing: true}
	obsBroken := hub.Attach(broken)
	obsBroken.mu.Lock()
	obsBroken.subs[Wildcard] = struct{}{}
	obsBroken.mu.Unlock()

	// The broken connection must not affect the healthy one
	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})
	assert.Len(t, healthy.waitUpdates(t, 1), 1)
}

// stalledConn blocks inside WriteJSON until released, standing in for a
// peer that has stopped reading.
type stalledConn struct {
	release chan struct{}
}

func (c *stalledConn) WriteJSON(v any) error {
	<-c.release
	return nil
}

func TestStalledObserverDoesNotBlockBroadcast(t *testing.T) {
	_, _, hub := newTestHub(t)

	stalled := &stalledConn{release: make(chan struct{})}
	t.Cleanup(func() { close(stalled.release) })
	obsStalled := hub.Attach(stalled)
	subscribe(t, hub, obsStalled, Wildcard)

	healthy := &fakeConn{}
	obsHealthy := hub.Attach(healthy)
	subscribe(t, hub, obsHealthy, Wildcard)

	done := make(chan struct{})
	go func() {
		for i := 0; i < observerSendBuffer+8; i++ {
			hub.Broadcast(datatree.Change{Path: "a.b", Value: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a stalled observer")
	}
	// The healthy observer keeps receiving while the stalled one is stuck.
	healthy.waitUpdates(t, 1)
}

func TestDetachStopsDelivery(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, Wildcard)

	hub.Detach(obs.ID)
	hub.Detach(obs.ID) // idempotent
	assert.Equal(t, 0, hub.ObserverCount())

	before := len(conn.updates())
	hub.Broadcast(datatree.Change{Path: "a.b", Value: 1})
	assert.Len(t, conn.updates(), before)
}

func TestBroadcastIgnoresEmptyPath(t *testing.T) {
	_, _, hub := newTestHub(t)

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, Wildcard)

	hub.Broadcast(datatree.Change{Path: "", Value: 1})
	assert.Empty(t, conn.updates())
}

func TestRunConsumesFeedUntilClosed(t *testing.T) {
	store, _, hub := newTestHub(t)
	bus := datatree.NewBus(store)
	feed, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		hub.Run(feed)
		close(done)
	}()

	conn := &fakeConn{}
	obs := hub.Attach(conn)
	subscribe(t, hub, obs, "a.b")

	require.NoError(t, bus.Publish(datatree.Delta{
		Source: "test",
		Values: []datatree.PathValue{{Path: "a.b", Value: 42}},
	}))

	require.Eventually(t, func() bool {
		return len(conn.updates()) == 1
	}, time.Second, 10*time.Millisecond)

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after feed close")
	}
}
