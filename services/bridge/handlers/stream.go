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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/PelorusMarine/PelorusSim/services/whatif"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// streamWriteTimeout bounds a single write to a stream client. A peer that
// stops reading fails the write instead of wedging its writer goroutine.
const streamWriteTimeout = 10 * time.Second

// wsConn adapts a gorilla connection to the hub's write seam. The hub
// calls WriteJSON from a single goroutine per connection.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

// HandleStream upgrades the request to a websocket and runs the observer's
// read loop. Every inbound text message is a hub control message; the hub
// answers bad input on the connection itself, so the loop only ends when
// the client goes away.
func HandleStream(hub *whatif.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		obs := hub.Attach(&wsConn{ws: ws})
		defer hub.Detach(obs.ID)

		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				slog.Debug("stream client disconnected", "observer_id", obs.ID, "error", err)
				return
			}
			hub.HandleMessage(obs, raw)
		}
	}
}
