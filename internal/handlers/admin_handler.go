package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/fanout"
	"go.uber.org/zap"
)

// BroadcastRequest is the admin broadcast payload. An empty target means
// every active user.
type BroadcastRequest struct {
	TargetUserID uint   `json:"target_user_id,omitempty"`
	Title        string `json:"title" validate:"required,min=3,max=150"`
	Body         string `json:"body" validate:"omitempty,max=2000"`
}

// AdminHandler handles admin-only HTTP requests. Routes are gated by the
// RequireAdmin middleware; there is no privileged user ID anywhere.
type AdminHandler struct {
	fanoutService *fanout.Service
	logger        *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(fanoutService *fanout.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{fanoutService: fanoutService, logger: logger}
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.POST("/broadcasts", h.Broadcast)
}

// Broadcast sends a system notification to one user or to every active user.
func (h *AdminHandler) Broadcast(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	trigger := fanout.Trigger{
		Kind:         fanout.KindBroadcast,
		ActorID:      currentUserID,
		TargetUserID: req.TargetUserID,
		Title:        req.Title,
		Body:         req.Body,
		SourceRef:    uuid.NewString(),
	}

	// Single-target broadcasts run inline; system-wide ones go through the
	// queue so the admin request does not wait on a full-audience fan-out.
	if req.TargetUserID != 0 {
		if err := h.fanoutService.Notify(c.Request().Context(), trigger); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	} else {
		if err := h.fanoutService.Enqueue(c.Request().Context(), trigger); err != nil {
			h.logger.Error("failed to enqueue broadcast fan-out",
				zap.String("source_ref", trigger.SourceRef),
				zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(http.StatusAccepted, echo.Map{"success": true, "data": echo.Map{"source_ref": trigger.SourceRef}})
}
