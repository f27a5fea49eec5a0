package server

import (
	"Daybook_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// scheduleSocketHandler upgrades the connection and keeps it registered until
// the client goes away. The socket is push-only; reads just detect the close.
func (s *Server) scheduleSocketHandler(c echo.Context) error {
	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return echo.ErrUnauthorized
	}

	ws, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}

	s.hub.Register(userID, ws)
	defer s.hub.Unregister(userID, ws)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}
