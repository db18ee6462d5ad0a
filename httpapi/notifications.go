package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleListNotifications(c echo.Context) error {
	userID, _ := currentUser(c)
	notices, err := s.notices.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toNotificationResponses(notices))
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	userID, _ := currentUser(c)
	if err := s.notices.MarkRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "read"})
}
