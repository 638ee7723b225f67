// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PelorusMarine/PelorusSim/pkg/validation"
	"github.com/PelorusMarine/PelorusSim/services/bridge/datatypes"
	"github.com/PelorusMarine/PelorusSim/services/bridge/observability"
	"github.com/PelorusMarine/PelorusSim/services/whatif"
)

// ListIntercepts returns every active write interceptor.
func ListIntercepts(intercepts *whatif.InterceptRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := intercepts.List()
		c.JSON(http.StatusOK, gin.H{"intercepts": list, "count": len(list)})
	}
}

// RegisterIntercept installs a write interceptor on a path. Registering an
// already-intercepted path succeeds without changing the existing
// interceptor.
func RegisterIntercept(intercepts *whatif.InterceptRegistry,
	metrics *observability.BridgeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		var req datatypes.RegisterInterceptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		path, err := validation.SanitizePath(req.Path)
		if err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		if err := intercepts.Register(c.Request.Context(), path, req.AcceptAllSources); err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		metrics.ActiveIntercepts.Set(float64(len(intercepts.List())))

		info, _ := intercepts.Get(path)
		c.JSON(http.StatusCreated, info)
	}
}

// UnregisterIntercept removes the interceptor on a path.
func UnregisterIntercept(intercepts *whatif.InterceptRegistry,
	metrics *observability.BridgeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		path := c.Param("path")
		if !intercepts.Unregister(path) {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "no intercept on path: " + path})
			return
		}
		metrics.ActiveIntercepts.Set(float64(len(intercepts.List())))
		c.JSON(http.StatusOK, gin.H{"path": path})
	}
}
