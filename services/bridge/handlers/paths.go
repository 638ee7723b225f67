// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PelorusMarine/PelorusSim/pkg/validation"
	"github.com/PelorusMarine/PelorusSim/services/bridge/datatypes"
	"github.com/PelorusMarine/PelorusSim/services/bridge/observability"
	"github.com/PelorusMarine/PelorusSim/services/whatif"
)

// ListPaths returns the flattened tree filtered by the query parameters
// search, hasValue, hasMeta and units.
func ListPaths(registry *whatif.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := whatif.Filter{
			Search:   c.Query("search"),
			HasValue: c.Query("hasValue") == "true",
			HasMeta:  c.Query("hasMeta") == "true",
			Units:    c.Query("units"),
		}

		snaps, err := registry.List(filter)
		if err != nil {
			slog.Error("path listing failed", "error", err)
			c.JSON(http.StatusBadGateway, datatypes.ErrorResponse{Error: "tree snapshot unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"paths": snaps, "count": len(snaps)})
	}
}

// CreatePath creates a synthetic path with an initial value and optional
// metadata, and optionally installs a write interceptor on it.
func CreatePath(registry *whatif.Registry, intercepts *whatif.InterceptRegistry,
	metrics *observability.BridgeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		var req datatypes.CreatePathRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		path, err := validation.SanitizePath(req.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		// A failed initial injection is advisory: the path is registered
		// either way, only the metric label reflects the outcome.
		if err := registry.Create(c.Request.Context(), path, datatypes.CoerceValue(req.Value), req.Meta); err != nil {
			metrics.InjectionsTotal.WithLabelValues("error").Inc()
		} else {
			metrics.InjectionsTotal.WithLabelValues("ok").Inc()
		}

		if req.Intercept {
			if err := intercepts.Register(c.Request.Context(), path, req.AcceptAllSources); err != nil {
				slog.Warn("intercept installation failed during path creation", "path", path, "error", err)
			} else {
				metrics.ActiveIntercepts.Set(float64(len(intercepts.List())))
			}
		}

		c.JSON(http.StatusCreated, gin.H{"path": path, "intercept": req.Intercept})
	}
}

// GetPath returns the current snapshot of one path.
func GetPath(registry *whatif.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Param("path")
		snap, ok := registry.Read(path)
		if !ok {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "path not found: " + path})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// SetPathValue injects a new value at a path, deriving the source label
// unless the request carries an explicit one.
func SetPathValue(injector *whatif.Injector, metrics *observability.BridgeMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Param("path")
		var req datatypes.SetValueRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		if req.Source != "" {
			if err := validation.ValidateSource(req.Source); err != nil {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
				return
			}
		}

		err := injector.Inject(c.Request.Context(), path, datatypes.CoerceValue(req.Value), req.Source)
		if err != nil {
			metrics.InjectionsTotal.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		metrics.InjectionsTotal.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, gin.H{"path": path})
	}
}
