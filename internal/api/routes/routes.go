package routes

import (
	"relay-gateway/internal/api/handlers"
	"relay-gateway/internal/api/middleware"
	"relay-gateway/internal/config"
	"relay-gateway/internal/gateway"
	"relay-gateway/internal/services"

	"github.com/gin-gonic/gin"
)

type Router struct {
	engine      *gin.Engine
	hub         *gateway.Hub
	wsHandler   *handlers.WSHandler
	rateLimitMW *middleware.RateLimitMiddleware
	cfg         *config.Config
}

// NewRouter wires the gin engine. redisService may be nil, in which case the
// websocket endpoint runs without a connection rate limit.
func NewRouter(hub *gateway.Hub, redisService *services.RedisService, cfg *config.Config) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Origins))
	engine.Use(middleware.LogApi())

	var rateLimitMW *middleware.RateLimitMiddleware
	if redisService != nil {
		rateLimitMW = middleware.NewRateLimitMiddleware(redisService)
	}

	return &Router{
		engine:      engine,
		hub:         hub,
		wsHandler:   handlers.NewWSHandler(hub, cfg.Origins),
		rateLimitMW: rateLimitMW,
		cfg:         cfg,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/", func(c *gin.Context) {
		c.String(200, "Hello, World!")
	})

	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"clients": r.hub.ClientCount(),
			"rooms":   r.hub.RoomCount(),
		})
	})

	wsHandlers := []gin.HandlerFunc{}
	if r.rateLimitMW != nil {
		wsHandlers = append(wsHandlers,
			r.rateLimitMW.RateLimitIP(r.cfg.RateLimit.Requests, r.cfg.RateLimit.Window))
	}
	wsHandlers = append(wsHandlers, r.wsHandler.HandleWebSocket)

	r.engine.GET("/ws", wsHandlers...)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
