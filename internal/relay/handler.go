package relay

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Handler serves Fetch over HTTP.
func (w *Worker) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := w.Fetch(c.Request().Context(), c.Request().URL.Path)
		if errors.Is(err, ErrNotCached) {
			return c.String(http.StatusServiceUnavailable, "offline")
		}
		if err != nil {
			return err
		}

		contentType := resp.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(resp.Body)
		}
		return c.Blob(resp.Status, contentType, resp.Body)
	}
}

// NewEcho returns an echo instance that serves every GET through the relay.
func NewEcho(w *Worker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.GET("/*", w.Handler())
	return e
}
