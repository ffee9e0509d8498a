package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/internal/repositories"
)

// PushTokenHandler handles device push token registration
type PushTokenHandler struct {
	pushTokenRepository repositories.PushTokenRepository
}

// NewPushTokenHandler creates a new PushTokenHandler
func NewPushTokenHandler(pushTokenRepo repositories.PushTokenRepository) *PushTokenHandler {
	return &PushTokenHandler{pushTokenRepository: pushTokenRepo}
}

// RegisterPushTokenRoutes registers push token routes
func (h *PushTokenHandler) RegisterPushTokenRoutes(g *echo.Group) {
	g.PUT("/push-token", h.RegisterToken)
	g.DELETE("/push-token", h.RemoveToken)
}

// RegisterToken registers or replaces the caller's device push token
func (h *PushTokenHandler) RegisterToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.RegisterPushTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.pushTokenRepository.Upsert(c.Request().Context(), currentUserID, req.Token); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"registered": true}})
}

// RemoveToken removes the caller's device push token (e.g. on logout). The
// user keeps receiving in-app notifications.
func (h *PushTokenHandler) RemoveToken(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.pushTokenRepository.DeleteByUserID(c.Request().Context(), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"removed": true}})
}
