package websocket

import (
	"github.com/labstack/echo/v4"
)

// Handler upgrades GET /ws and blocks until the client disconnects.
func (s *Server) Handler(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, s.handleFrame)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()
	<-client.Context().Done()

	return nil
}
