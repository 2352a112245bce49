package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casecracker/casecracker/internal/progress"
)

// RegisterRoutes sets up all application routes: the health check and the
// progress API. This is the single place where routes are aggregated.
func (a *App) RegisterRoutes(h *progress.Handler) {
	e := a.Echo

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Progress API: register, login, history, save-session, friends.
	progress.RegisterRoutes(e, h)
}
