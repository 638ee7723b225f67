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
	"github.com/PelorusMarine/PelorusSim/services/whatif"
)

// ListScenarios returns the names of all stored scenarios.
func ListScenarios(scenarios *whatif.ScenarioStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		names, err := scenarios.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if names == nil {
			names = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"scenarios": names, "count": len(names)})
	}
}

// SaveScenario stores a scenario under its name, replacing any previous
// version.
func SaveScenario(scenarios *whatif.ScenarioStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var s whatif.Scenario
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
		if err := scenarios.Save(&s); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

// GetScenario returns one stored scenario.
func GetScenario(scenarios *whatif.ScenarioStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		s, found, err := scenarios.Get(name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "scenario not found: " + name})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// DeleteScenario removes one stored scenario.
func DeleteScenario(scenarios *whatif.ScenarioStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		existed, err := scenarios.Delete(name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		if !existed {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "scenario not found: " + name})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": name})
	}
}

// ApplyScenario replays every entry of a stored scenario into the tree.
func ApplyScenario(scenarios *whatif.ScenarioStore,
	metrics *observability.BridgeMetrics) gin.HandlerFunc {

	return func(c *gin.Context) {
		name := c.Param("name")
		applied, err := scenarios.Apply(c.Request.Context(), name)
		if err != nil {
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: err.Error()})
			return
		}
		metrics.ScenariosAppliedTotal.Inc()
		c.JSON(http.StatusOK, gin.H{"name": name, "applied": applied})
	}
}
