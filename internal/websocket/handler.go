package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/internal/middleware"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	core     Core
	limiter  Limiter
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHandler creates a new WebSocket handler. An empty allowedOrigins list
// accepts any origin.
func NewHandler(hub *Hub, core Core, limiter Limiter, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:     hub,
		core:    core,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					// non-browser clients
					return true
				}
				return middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// HandleWebSocket handles WebSocket upgrade requests. Identity is established
// afterwards with an identify event.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := NewClient(h.hub, h.core, h.limiter, conn, h.logger)

	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	if err := h.core.Connect(client.sessionID); err != nil {
		h.hub.Unregister(client)
		conn.Close()
		return
	}

	// Start client pumps
	go client.WritePump()
	go client.ReadPump()
}
