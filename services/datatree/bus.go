// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatree

import (
	"errors"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this misses changes rather than blocking
// publishers.
const subscriberBuffer = 256

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("datatree: bus is closed")

// Bus is the change-event bus for a Store.
//
// Publish applies a delta to the store and fans out the resulting changes
// to every subscriber, so subscribers always observe post-apply state.
// Deltas published for the same path are delivered in publish order;
// ordering across different paths is not guaranteed once a subscriber has
// started dropping.
type Bus struct {
	mu     sync.Mutex
	store  *Store
	subs   map[int]chan Change
	nextID int
	closed bool
}

// NewBus creates a Bus applying deltas to store.
func NewBus(store *Store) *Bus {
	return &Bus{
		store: store,
		subs:  make(map[int]chan Change),
	}
}

// Publish applies the delta to the store and delivers each resulting change
// to all subscribers. Delivery to a full subscriber channel is dropped, not
// retried; a slow consumer misses changes instead of stalling the tree.
func (b *Bus) Publish(d Delta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	changes := b.store.Apply(d)
	for _, change := range changes {
		for id, sub := range b.subs {
			select {
			case sub <- change:
			default:
				slog.Debug("bus subscriber behind, dropping change",
					"subscriber", id, "path", change.Path)
			}
		}
	}
	return nil
}

// Subscribe returns a feed of every applied change and a function that
// cancels the subscription. The feed channel is closed on cancel and on
// bus Close.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Change, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close shuts the bus down. Pending subscriptions are closed and further
// publishes fail with ErrBusClosed. Safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub)
	}
}
