package progress

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casecracker/casecracker/internal/apperror"
)

// Handler handles HTTP requests for the progress API. Handlers are thin:
// they bind the request, call the service, and shape the JSON response.
// No business logic lives here.
type Handler struct {
	service ProgressService
}

// NewHandler creates a new progress handler with the given service.
func NewHandler(service ProgressService) *Handler {
	return &Handler{service: service}
}

// Register creates a new account (POST /api/register).
func (h *Handler) Register(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewInvalidInput("Username and password required")
	}

	user, err := h.service.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"username": user.Username,
	})
}

// Login authenticates an existing account (POST /api/login).
func (h *Handler) Login(c echo.Context) error {
	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewInvalidInput("Username and password required")
	}

	user, err := h.service.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"username": user.Username,
	})
}

// History returns the caller's session history (GET /api/history).
func (h *Handler) History(c echo.Context) error {
	username := GetUsername(c)

	sessions, err := h.service.Sessions(c.Request().Context(), username)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

// SaveSession upserts one quiz session (POST /api/save-session).
//
// The body is decoded by hand instead of through c.Bind: sendBeacon posts
// arrive as text/plain, which Echo's binder refuses. An unparseable body is
// treated as an empty payload and fails the sessionId check downstream,
// which keeps fire-and-forget submissions from silently corrupting state.
func (h *Handler) SaveSession(c echo.Context) error {
	username := GetUsername(c)

	var session SessionRecord
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperror.NewInvalidInput("Session ID required")
	}
	if len(body) > 0 {
		_ = json.Unmarshal(body, &session)
	}

	if err := h.service.SaveSession(c.Request().Context(), username, session); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
	})
}

// Friends returns the leaderboard of all users (GET /api/friends).
// Deliberately unauthenticated; everyone sees the same list.
func (h *Handler) Friends(c echo.Context) error {
	friends, err := h.service.Friends(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"friends": friends,
	})
}
