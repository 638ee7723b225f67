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
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// scenarioPrefix namespaces scenario documents in the database.
const scenarioPrefix = "scenario/"

// ScenarioEntry is one path configuration inside a scenario.
type ScenarioEntry struct {
	Path             string         `json:"path"`
	Value            any            `json:"value"`
	Meta             map[string]any `json:"meta,omitempty"`
	Intercept        bool           `json:"intercept,omitempty"`
	AcceptAllSources bool           `json:"acceptAllSources,omitempty"`
}

// Scenario is a named, persisted bundle of path configurations replayable
// in one operation. Scenarios are the only durable state of the subsystem;
// the values they inject remain as ephemeral as any other injection.
type Scenario struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	Entries   []ScenarioEntry `json:"entries"`
}

// OpenScenarioDB opens the scenario database at dir, or in memory when dir
// is empty. BadgerDB's internal logging is routed to slog at debug level.
func OpenScenarioDB(dir string) (*badger.DB, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("whatif: open scenario db: %w", err)
	}
	return db, nil
}

// badgerLogger routes BadgerDB's chatty internal logging to slog debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	slog.Error("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (badgerLogger) Warningf(format string, args ...any) {
	slog.Warn("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (badgerLogger) Infof(format string, args ...any) {
	slog.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}
func (badgerLogger) Debugf(format string, args ...any) {
	slog.Debug("badger: " + strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// ScenarioStore persists scenarios as JSON documents and replays them
// through the path registry and intercept registry.
type ScenarioStore struct {
	db         *badger.DB
	registry   *Registry
	intercepts *InterceptRegistry
}

// NewScenarioStore creates a ScenarioStore over db. The db is owned by the
// caller, which closes it at shutdown.
func NewScenarioStore(db *badger.DB, registry *Registry, intercepts *InterceptRegistry) *ScenarioStore {
	return &ScenarioStore{db: db, registry: registry, intercepts: intercepts}
}

func scenarioKey(name string) []byte {
	return []byte(scenarioPrefix + name)
}

// Save persists the scenario under its name, replacing any previous
// version. A missing ID and CreatedAt are filled in.
func (ss *ScenarioStore) Save(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("whatif: scenario requires a name")
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("whatif: marshal scenario %q: %w", s.Name, err)
	}

	err = ss.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scenarioKey(s.Name), doc)
	})
	if err != nil {
		return fmt.Errorf("whatif: save scenario %q: %w", s.Name, err)
	}
	slog.Info("scenario saved", "name", s.Name, "entries", len(s.Entries))
	return nil
}

// Get returns the scenario stored under name, reporting false when none
// exists.
func (ss *ScenarioStore) Get(name string) (Scenario, bool, error) {
	var s Scenario
	found := false

	err := ss.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scenarioKey(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		doc, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(doc, &s); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return Scenario{}, false, fmt.Errorf("whatif: load scenario %q: %w", name, err)
	}
	return s, found, nil
}

// List returns all stored scenario names, sorted.
func (ss *ScenarioStore) List() ([]string, error) {
	var names []string

	err := ss.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(scenarioPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			names = append(names, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("whatif: list scenarios: %w", err)
	}

	sort.Strings(names)
	return names, nil
}

// Delete removes the scenario stored under name, returning false when none
// existed.
func (ss *ScenarioStore) Delete(name string) (bool, error) {
	existed := false

	err := ss.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(scenarioKey(name)); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		existed = true
		return txn.Delete(scenarioKey(name))
	})
	if err != nil {
		return false, fmt.Errorf("whatif: delete scenario %q: %w", name, err)
	}
	return existed, nil
}

// Apply replays every entry of the named scenario through the path
// registry, enabling write interception where flagged. Returns the number
// of entries applied. Intercept installation failures are logged and do
// not abort the replay.
func (ss *ScenarioStore) Apply(ctx context.Context, name string) (int, error) {
	s, found, err := ss.Get(name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("whatif: scenario %q not found", name)
	}

	applied := 0
	for _, entry := range s.Entries {
		if entry.Path == "" {
			continue
		}
		ss.registry.Create(ctx, entry.Path, entry.Value, entry.Meta)
		if entry.Intercept {
			if err := ss.intercepts.Register(ctx, entry.Path, entry.AcceptAllSources); err != nil {
				slog.Warn("scenario intercept installation failed", "scenario", name, "path", entry.Path, "error", err)
			}
		}
		applied++
	}

	slog.Info("scenario applied", "name", name, "entries", applied)
	return applied, nil
}
