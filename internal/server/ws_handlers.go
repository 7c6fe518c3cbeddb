package server

import (
	"fmt"
	"strconv"
	"time"

	"yatube/internal/models"
	"yatube/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	wsTicketPrefix = "ws:ticket:"
	wsTicketTTL    = 30 * time.Second
)

// IssueWSTicket mints a short-lived single-use ticket for opening the
// notification socket. Browsers cannot set an Authorization header on a
// WebSocket handshake, so the token is exchanged for a ticket here.
// @Summary Issue a WebSocket ticket
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ws/ticket [get]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if !s.cache.Available() {
		return respondError(c, models.NewInternalError("notifications unavailable", nil))
	}

	ticket := uuid.NewString()
	key := wsTicketPrefix + ticket
	err := s.cache.Client().Set(c.UserContext(), key, fmt.Sprintf("%d", userID(c)), wsTicketTTL).Err()
	if err != nil {
		return respondError(c, models.NewInternalError("failed to issue ticket", err))
	}
	return c.JSON(fiber.Map{"ticket": ticket})
}

func (s *Server) registerWebSocket() {
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		ticket := c.Query("ticket")
		if ticket == "" || !s.cache.Available() {
			return respondError(c, models.NewUnauthorizedError("missing ticket", nil))
		}

		// GETDEL makes the ticket single-use.
		raw, err := s.cache.Client().GetDel(c.UserContext(), wsTicketPrefix+ticket).Result()
		if err != nil {
			return respondError(c, models.NewUnauthorizedError("invalid or expired ticket", err))
		}
		uid, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return respondError(c, models.NewUnauthorizedError("invalid ticket", err))
		}

		c.Locals("wsUserID", uint(uid))
		return c.Next()
	})

	s.app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		uid, _ := conn.Locals("wsUserID").(uint)
		client := notifications.NewClient(s.hub, conn, uid)
		if err := s.hub.Register(client); err != nil {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
			conn.Close()
			return
		}
		go client.WritePump()
		client.ReadPump()
	}))
}
