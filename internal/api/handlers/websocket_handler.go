package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/websocket"
)

// HandleWebSocket handles GET /v1/ws. The identity comes from the token query
// parameter, resolved by the auth middleware before the upgrade.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	id := identity(c)

	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, id.ID, string(id.Role), h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
