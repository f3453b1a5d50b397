package server

import (
	"log/slog"

	"feedql/internal/auth"
	"feedql/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketUpgrade rejects plain HTTP requests to the feed endpoint.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// WebSocketFeedHandler streams post events to the connected client. Anonymous
// subscribers are accepted; the feed carries no private data.
func (s *Server) WebSocketFeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		var userID uint
		if id, ok := conn.Locals(middleware.IdentityLocal).(auth.Identity); ok {
			userID = id.UserID()
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("feed subscription rejected",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("feed subscriber connected",
			slog.Uint64("user_id", uint64(userID)),
			slog.Int("subscribers", s.hub.Count()),
		)

		go client.WritePump()
		client.ReadPump()
	})
}
