// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the bridge.
//
// # Description
//
// Counters and gauges covering the bridge's moving parts:
//   - Value injections (by result)
//   - Write intercept invocations and the active intercept count
//   - Stream observers and update delivery
//
// # Integration
//
// Metrics are exposed on /metrics. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "pelorus"

const bridgeSubsystem = "bridge"

// BridgeMetrics holds all Prometheus metrics for the bridge service.
// Initialize once at startup via NewBridgeMetrics.
type BridgeMetrics struct {
	// InjectionsTotal counts value injections by result (ok, error).
	InjectionsTotal *prometheus.CounterVec

	// InterceptInvocationsTotal counts write-intercept invocations by
	// result (completed, failed).
	InterceptInvocationsTotal *prometheus.CounterVec

	// ActiveIntercepts tracks the number of installed write intercepts.
	ActiveIntercepts prometheus.Gauge

	// ConnectedObservers tracks currently connected stream observers.
	ConnectedObservers prometheus.Gauge

	// UpdatesDeliveredTotal counts updates delivered to observers.
	UpdatesDeliveredTotal prometheus.Counter

	// DeliveriesDroppedTotal counts deliveries skipped on unwritable
	// connections.
	DeliveriesDroppedTotal prometheus.Counter

	// ScenariosAppliedTotal counts scenario replays.
	ScenariosAppliedTotal prometheus.Counter
}

// NewBridgeMetrics creates and registers all bridge metrics on the default
// registry. Call exactly once per process.
func NewBridgeMetrics() *BridgeMetrics {
	return &BridgeMetrics{
		InjectionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "injections_total",
			Help:      "Value injections by result.",
		}, []string{"result"}),

		InterceptInvocationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "intercept_invocations_total",
			Help:      "Write intercept invocations by result.",
		}, []string{"result"}),

		ActiveIntercepts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "active_intercepts",
			Help:      "Currently installed write intercepts.",
		}),

		ConnectedObservers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "connected_observers",
			Help:      "Currently connected stream observers.",
		}),

		UpdatesDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "updates_delivered_total",
			Help:      "Live updates delivered to stream observers.",
		}),

		DeliveriesDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "deliveries_dropped_total",
			Help:      "Live update deliveries skipped on unwritable connections.",
		}),

		ScenariosAppliedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: bridgeSubsystem,
			Name:      "scenarios_applied_total",
			Help:      "Scenario replays.",
		}),
	}
}

// ObserverAttached implements the stream hub's stats seam.
func (m *BridgeMetrics) ObserverAttached() { m.ConnectedObservers.Inc() }

// ObserverDetached implements the stream hub's stats seam.
func (m *BridgeMetrics) ObserverDetached() { m.ConnectedObservers.Dec() }

// UpdateDelivered implements the stream hub's stats seam.
func (m *BridgeMetrics) UpdateDelivered() { m.UpdatesDeliveredTotal.Inc() }

// DeliveryDropped implements the stream hub's stats seam.
func (m *BridgeMetrics) DeliveryDropped() { m.DeliveriesDroppedTotal.Inc() }
