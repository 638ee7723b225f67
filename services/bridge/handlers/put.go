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

	"github.com/PelorusMarine/PelorusSim/services/bridge/datatypes"
	"github.com/PelorusMarine/PelorusSim/services/bridge/observability"
	"github.com/PelorusMarine/PelorusSim/services/datatree"
)

// HandlePut routes an inbound write action to the PUT host. The response
// body is the host's ActionResult; the HTTP status follows its StatusCode.
func HandlePut(host *datatree.PutHost, vesselContext string,
	metrics *observability.BridgeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		path := c.Param("path")
		var req datatypes.PutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}

		result := host.Put(c.Request.Context(), vesselContext, path, req.Value, req.Source)
		if result.State == datatree.StateCompleted {
			metrics.InterceptInvocationsTotal.WithLabelValues("completed").Inc()
		} else {
			metrics.InterceptInvocationsTotal.WithLabelValues("failed").Inc()
		}

		status := result.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, result)
	}
}
