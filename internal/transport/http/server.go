package http

import (
	"context"
	stdhttp "net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/alexrdz/retro-flow/internal/config"
	"github.com/alexrdz/retro-flow/internal/core"
	"github.com/alexrdz/retro-flow/internal/presence"
	"github.com/alexrdz/retro-flow/internal/store"
)

// Hub is the part of core.Hub the transport layer depends on.
type Hub interface {
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
	Presence(ctx context.Context, session string) (presence.Snapshot, error)
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by endpoints without a resource to show.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness with the server time.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewServer builds the HTTP server with REST, websocket and metrics routes.
func NewServer(hub Hub, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	registerValidation()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsHandler := NewWSHandler(hub, WSOptions{
		OriginPatterns:       originHosts(cfg.AllowedOrigins),
		PingInterval:         cfg.PingInterval,
		PingTimeout:          cfg.PingTimeout,
		MaxMessageBytes:      cfg.MaxMessageBytes,
		MaxMessagesPerMinute: cfg.MaxMessagesPerMinute,
	}, logger)
	router.GET("/ws", gin.WrapH(wsHandler))

	sessionHandlers := NewSessionHandlers(st, hub, logger)
	cardHandlers := NewCardHandlers(st, logger)
	actionItemHandlers := NewActionItemHandlers(st, logger)

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(stdhttp.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
		})

		api.POST("/sessions", sessionHandlers.CreateSession)
		api.GET("/sessions", sessionHandlers.ListSessions)
		api.GET("/sessions/:id", sessionHandlers.GetSession)
		api.DELETE("/sessions/:id", sessionHandlers.DeleteSession)
		api.GET("/sessions/:id/presence", sessionHandlers.GetPresence)

		api.POST("/cards", cardHandlers.CreateCard)
		api.GET("/cards", cardHandlers.ListCards)
		api.PUT("/cards/:id", cardHandlers.UpdateCard)
		api.DELETE("/cards/:id", cardHandlers.DeleteCard)

		api.POST("/action-items", actionItemHandlers.CreateActionItem)
		api.GET("/action-items", actionItemHandlers.ListActionItems)
		api.PUT("/action-items/:id", actionItemHandlers.UpdateActionItem)
		api.DELETE("/action-items/:id", actionItemHandlers.DeleteActionItem)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodPut, stdhttp.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// originHosts turns allowed origins into websocket host patterns.
// A wildcard origin disables the check.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin == "*" {
			return nil
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			hosts = append(hosts, origin)
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
