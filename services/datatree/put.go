// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatree

import (
	"context"
	"fmt"
	"sync"
)

// ActionHandler is a registered PUT handler. It receives the vessel context
// and path of the invocation (which may differ from the registration path
// when the host aliases paths) and returns the outcome synchronously.
type ActionHandler func(ctx context.Context, vesselContext, path string, value any) ActionResult

type putRegistration struct {
	sourceFilter string
	handler      ActionHandler
}

// PutHost routes external PUT requests to registered action handlers.
//
// At most one handler can be registered per (context, path) pair. A
// registration may carry a source filter; PUTs from other sources are
// rejected without invoking the handler.
type PutHost struct {
	mu       sync.RWMutex
	handlers map[string]putRegistration
}

// NewPutHost creates an empty PutHost.
func NewPutHost() *PutHost {
	return &PutHost{
		handlers: make(map[string]putRegistration),
	}
}

func putKey(vesselContext, path string) string {
	return vesselContext + "\x00" + path
}

// Register installs handler for (vesselContext, path). sourceFilter limits
// which source labels may invoke the handler; empty accepts all sources.
//
// Returns a deregistration capability that removes the handler (idempotent),
// or an error if a handler is already installed for the pair.
func (h *PutHost) Register(vesselContext, path, sourceFilter string, handler ActionHandler) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("datatree: nil action handler for %s", path)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := putKey(vesselContext, path)
	if _, exists := h.handlers[key]; exists {
		return nil, fmt.Errorf("datatree: action handler already registered for %s on %s", path, vesselContext)
	}
	h.handlers[key] = putRegistration{sourceFilter: sourceFilter, handler: handler}

	var once sync.Once
	deregister := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.handlers, key)
		})
	}
	return deregister, nil
}

// Has reports whether a handler is installed for (vesselContext, path).
func (h *PutHost) Has(vesselContext, path string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.handlers[putKey(vesselContext, path)]
	return ok
}

// Put routes a write to the handler registered for (vesselContext, path).
//
// No handler, or a source rejected by the registration's filter, yields
// FAILED/405 without invoking anything. Otherwise the handler's own result
// is returned; a panicking handler is reported as FAILED/500 rather than
// crashing the host.
func (h *PutHost) Put(ctx context.Context, vesselContext, path string, value any, source string) (result ActionResult) {
	h.mu.RLock()
	reg, ok := h.handlers[putKey(vesselContext, path)]
	h.mu.RUnlock()

	if !ok {
		return Failed(405, fmt.Sprintf("no action handler registered for %s", path))
	}
	if reg.sourceFilter != "" && reg.sourceFilter != source {
		return Failed(405, fmt.Sprintf("source %q not accepted for %s", source, path))
	}

	defer func() {
		if r := recover(); r != nil {
			result = Failed(500, fmt.Sprintf("action handler panic: %v", r))
		}
	}()
	return reg.handler(ctx, vesselContext, path, value)
}
