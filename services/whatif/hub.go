// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package whatif

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// Wildcard subscribes an observer to every path.
const Wildcard = "*"

// Stream message types.
const (
	msgSubscribe      = "subscribe"
	msgUnsubscribe    = "unsubscribe"
	msgUnsubscribeAll = "unsubscribeAll"
	msgFull           = "full"
	msgUpdate         = "update"
	msgError          = "error"
)

// ObserverConn is the write side of an observer's connection. The hub
// serializes all writes to a connection through the observer's single
// writer goroutine, so WriteJSON is never called concurrently.
type ObserverConn interface {
	WriteJSON(v any) error
}

// observerSendBuffer bounds the per-observer outbound queue. An observer
// whose queue is full misses deliveries instead of stalling the hub.
const observerSendBuffer = 64

// HubStats receives observer lifecycle and delivery counts. Implemented by
// the service's observability layer; a nil HubStats disables counting.
type HubStats interface {
	ObserverAttached()
	ObserverDetached()
	UpdateDelivered()
	DeliveryDropped()
}

// Observer is one connected stream client. Its subscription set is owned
// exclusively by the observer's own control messages. Outbound messages
// pass through a bounded queue drained by the observer's writer goroutine.
type Observer struct {
	ID   string
	conn ObserverConn

	mu     sync.Mutex
	subs   map[string]struct{}
	closed bool
	send   chan any
}

// enqueue offers v to the observer's outbound queue without blocking,
// reporting false when the queue is full or the observer is detached.
func (o *Observer) enqueue(v any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	select {
	case o.send <- v:
		return true
	default:
		return false
	}
}

func (o *Observer) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	close(o.send)
}

// writeLoop drains the outbound queue onto the connection until the
// observer is detached. Write errors are logged; the transport's read loop
// owns disconnect detection.
func (o *Observer) writeLoop() {
	for v := range o.send {
		if err := o.conn.WriteJSON(v); err != nil {
			slog.Debug("stream write failed", "observer_id", o.ID, "error", err)
		}
	}
}

func (o *Observer) subscribedTo(path string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[Wildcard]; ok {
		return true
	}
	_, ok := o.subs[path]
	return ok
}

// Subscriptions returns a copy of the observer's current subscription set.
func (o *Observer) Subscriptions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.subs))
	for path := range o.subs {
		out = append(out, path)
	}
	return out
}

type inboundMessage struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths,omitempty"`
	Path  string   `json:"path,omitempty"`
}

type fullMessage struct {
	Type  string         `json:"type"`
	Paths []PathSnapshot `json:"paths"`
}

type updateMessage struct {
	Type string       `json:"type"`
	Path PathSnapshot `json:"path"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Hub fans live tree changes out to connected observers with per-observer
// path filtering, and answers subscription control messages with current
// snapshots.
type Hub struct {
	mu        sync.RWMutex
	observers map[string]*Observer
	registry  *Registry
	stats     HubStats
}

// NewHub creates a Hub reading snapshots from registry. stats may be nil.
func NewHub(registry *Registry, stats HubStats) *Hub {
	return &Hub{
		observers: make(map[string]*Observer),
		registry:  registry,
		stats:     stats,
	}
}

// Attach registers a new observer over conn and sends the connection
// acknowledgment (an empty full snapshot).
func (h *Hub) Attach(conn ObserverConn) *Observer {
	obs := &Observer{
		ID:   uuid.New().String(),
		conn: conn,
		subs: make(map[string]struct{}),
		send: make(chan any, observerSendBuffer),
	}
	go obs.writeLoop()

	h.mu.Lock()
	h.observers[obs.ID] = obs
	h.mu.Unlock()

	if h.stats != nil {
		h.stats.ObserverAttached()
	}
	slog.Info("observer connected", "observer_id", obs.ID)

	h.reply(obs, fullMessage{Type: msgFull, Paths: []PathSnapshot{}})
	return obs
}

// Detach removes the observer and its subscription set. No further
// deliveries are attempted. Safe to call for an already-detached observer.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	obs, existed := h.observers[id]
	delete(h.observers, id)
	h.mu.Unlock()

	if !existed {
		return
	}
	obs.close()
	if h.stats != nil {
		h.stats.ObserverDetached()
	}
	slog.Info("observer disconnected", "observer_id", id)
}

// ObserverCount returns the number of connected observers.
func (h *Hub) ObserverCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.observers)
}

// HandleMessage processes one inbound control message from obs. Malformed
// input and unknown types produce an error reply; the connection stays
// usable.
func (h *Hub) HandleMessage(obs *Observer, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.reply(obs, errorMessage{Type: msgError, Message: "malformed message: " + err.Error()})
		return
	}

	switch msg.Type {
	case msgSubscribe:
		paths := requestedPaths(msg)
		if len(paths) == 0 {
			h.reply(obs, errorMessage{Type: msgError, Message: "subscribe requires paths"})
			return
		}
		obs.mu.Lock()
		for _, path := range paths {
			obs.subs[path] = struct{}{}
		}
		obs.mu.Unlock()
		h.sendSnapshot(obs)

	case msgUnsubscribe:
		paths := requestedPaths(msg)
		obs.mu.Lock()
		for _, path := range paths {
			delete(obs.subs, path)
		}
		obs.mu.Unlock()

	case msgUnsubscribeAll:
		obs.mu.Lock()
		obs.subs = make(map[string]struct{})
		obs.mu.Unlock()

	default:
		h.reply(obs, errorMessage{Type: msgError, Message: "unknown message type: " + msg.Type})
	}
}

func requestedPaths(msg inboundMessage) []string {
	paths := make([]string, 0, len(msg.Paths)+1)
	for _, p := range msg.Paths {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if msg.Path != "" {
		paths = append(paths, msg.Path)
	}
	return paths
}

// sendSnapshot delivers one full message covering the observer's entire
// current subscription set. Wildcard means the whole tree; explicit paths
// are read individually with not-found entries omitted.
func (h *Hub) sendSnapshot(obs *Observer) {
	snaps := []PathSnapshot{}

	if obs.subscribedTo(Wildcard) {
		all, err := h.registry.List(Filter{})
		if err != nil {
			slog.Warn("full tree snapshot failed", "observer_id", obs.ID, "error", err)
		} else {
			snaps = all
		}
	} else {
		for _, path := range obs.Subscriptions() {
			if snap, ok := h.registry.Read(path); ok {
				snaps = append(snaps, snap)
			}
		}
	}

	h.reply(obs, fullMessage{Type: msgFull, Paths: snaps})
}

func (h *Hub) reply(obs *Observer, v any) {
	if !obs.enqueue(v) {
		slog.Debug("stream reply dropped", "observer_id", obs.ID)
	}
}

// Broadcast delivers one tree change to every observer subscribed to its
// exact path or the wildcard. An observer that cannot accept the message
// right now (queue full, detached) misses it; nothing is retried and the
// broadcast never blocks on a slow connection.
func (h *Hub) Broadcast(change datatree.Change) {
	if change.Path == "" {
		return
	}

	snap := PathSnapshot{
		Path:      change.Path,
		Value:     change.Value,
		Timestamp: change.Timestamp,
		Source:    change.Source,
	}
	msg := updateMessage{Type: msgUpdate, Path: snap}

	h.mu.RLock()
	observers := make([]*Observer, 0, len(h.observers))
	for _, obs := range h.observers {
		observers = append(observers, obs)
	}
	h.mu.RUnlock()

	for _, obs := range observers {
		if !obs.subscribedTo(change.Path) {
			continue
		}
		if !obs.enqueue(msg) {
			if h.stats != nil {
				h.stats.DeliveryDropped()
			}
			slog.Debug("update delivery skipped", "observer_id", obs.ID, "path", change.Path)
			continue
		}
		if h.stats != nil {
			h.stats.UpdateDelivered()
		}
	}
}

// Run consumes the change feed until it is closed, broadcasting every
// change. Intended to run in its own goroutine for the life of the bus.
func (h *Hub) Run(feed <-chan datatree.Change) {
	for change := range feed {
		h.Broadcast(change)
	}
}
