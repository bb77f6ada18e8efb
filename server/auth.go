package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/existflow/ironhabit/internal/logger"
)

type authResponse struct {
	UID   string `json:"uid"`
	Token string `json:"token"`
}

// handleAnonymousSignIn creates a new anonymous user and returns its
// bearer token. There are no credentials to check.
func (s *Server) handleAnonymousSignIn(c echo.Context) error {
	session, err := s.store.CreateAnonymousUser(c.Request().Context())
	if err != nil {
		logger.Error("Anonymous sign-in failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	logger.Info("Anonymous user created", logger.F("uid", session.UserID))

	return c.JSON(http.StatusOK, authResponse{
		UID:   session.UserID,
		Token: session.Token,
	})
}

// handleMe returns the identity bound to the bearer token
func (s *Server) handleMe(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"uid": userID(c)})
}
