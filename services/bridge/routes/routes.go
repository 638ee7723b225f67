// Copyright (C) 2026 Pelorus Marine (hello@pelorusmarine.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PelorusMarine/PelorusSim/services/bridge/handlers"
	"github.com/PelorusMarine/PelorusSim/services/bridge/observability"
	"github.com/PelorusMarine/PelorusSim/services/datatree"
	"github.com/PelorusMarine/PelorusSim/services/whatif"
)

// Deps carries everything the route handlers need.
type Deps struct {
	Registry      *whatif.Registry
	Injector      *whatif.Injector
	Intercepts    *whatif.InterceptRegistry
	Scenarios     *whatif.ScenarioStore
	Hub           *whatif.Hub
	Host          *datatree.PutHost
	VesselContext string
	Metrics       *observability.BridgeMetrics
}

// SetupRoutes wires all bridge endpoints onto router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	{
		paths := v1.Group("/paths")
		{
			paths.GET("", handlers.ListPaths(deps.Registry))
			paths.POST("", handlers.CreatePath(deps.Registry, deps.Intercepts, deps.Metrics))
			paths.GET("/:path", handlers.GetPath(deps.Registry))
			paths.PUT("/:path/value", handlers.SetPathValue(deps.Injector, deps.Metrics))
		}

		intercepts := v1.Group("/intercepts")
		{
			intercepts.GET("", handlers.ListIntercepts(deps.Intercepts))
			intercepts.POST("", handlers.RegisterIntercept(deps.Intercepts, deps.Metrics))
			intercepts.DELETE("/:path", handlers.UnregisterIntercept(deps.Intercepts, deps.Metrics))
		}

		v1.PUT("/put/:path", handlers.HandlePut(deps.Host, deps.VesselContext, deps.Metrics))

		scenarios := v1.Group("/scenarios")
		{
			scenarios.GET("", handlers.ListScenarios(deps.Scenarios))
			scenarios.POST("", handlers.SaveScenario(deps.Scenarios))
			scenarios.GET("/:name", handlers.GetScenario(deps.Scenarios))
			scenarios.DELETE("/:name", handlers.DeleteScenario(deps.Scenarios))
			scenarios.POST("/:name/apply", handlers.ApplyScenario(deps.Scenarios, deps.Metrics))
		}

		v1.GET("/stream", handlers.HandleStream(deps.Hub))
	}
}
