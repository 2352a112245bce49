package progress

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/casecracker/casecracker/internal/middleware"
)

// RegisterRoutes sets up the progress API routes on the given Echo instance.
//
// Register and login are rate-limited per IP to slow down brute-force and
// credential stuffing. History requires the identity header; save-session
// additionally accepts the ?user= query fallback for sendBeacon. The
// friends leaderboard is public.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	api := e.Group("/api")

	api.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	api.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))

	api.GET("/history", h.History, RequireUsername(false))
	api.POST("/save-session", h.SaveSession, RequireUsername(true))

	api.GET("/friends", h.Friends)
}
