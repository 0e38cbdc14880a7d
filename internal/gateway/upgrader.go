package gateway

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader builds the websocket upgrader with an origin allow-list.
// Localhost variations are always accepted so local development works without
// extra configuration.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Non-browser clients send no Origin header
			if origin == "" {
				return true
			}

			for _, allowed := range allowedOrigins {
				if origin == allowed {
					return true
				}
			}

			if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
				return true
			}

			return false
		},
	}
}
