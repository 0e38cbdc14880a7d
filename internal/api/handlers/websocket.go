package handlers

import (
	"relay-gateway/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *gateway.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *gateway.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: gateway.NewUpgrader(allowedOrigins),
	}
}

// HandleWebSocket upgrades the request and hands the connection to the
// gateway. The connection gets its identity at upgrade time; no user
// identification is required or performed.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	gateway.ServeWS(h.hub, h.upgrader, c.Writer, c.Request)
}
