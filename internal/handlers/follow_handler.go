package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/fanout"
	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/internal/repositories"
	"go.uber.org/zap"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	fanoutService    *fanout.Service
	logger           *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, fanoutService *fanout.Service, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		fanoutService:    fanoutService,
		logger:           logger,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if currentUserID == uint(targetID) {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	ctx := c.Request().Context()

	// Check if already following
	isFollowing, err := h.followRepository.IsFollowing(ctx, currentUserID, uint(targetID))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if isFollowing {
		return echo.NewHTTPError(http.StatusConflict, "Already following this user")
	}

	follow := &models.Follow{
		FollowerID:  currentUserID,
		FollowingID: uint(targetID),
	}

	if err := h.followRepository.CreateFollow(ctx, follow); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Notify the followed user. The follow is committed; fan-out failure must
	// not fail this request. The source reference is stable per follow pair,
	// so a re-follow after unfollow reuses the same notification row.
	body := "Someone started following you"
	if actor, err := h.userRepository.GetUserByID(ctx, currentUserID); err == nil {
		body = actor.Name + " started following you"
	} else {
		h.logger.Warn("failed to load follower profile for notification",
			zap.Uint("follower_id", currentUserID),
			zap.Error(err))
	}
	trigger := fanout.Trigger{
		Kind:         fanout.KindFollow,
		ActorID:      currentUserID,
		TargetUserID: uint(targetID),
		Title:        "New follower",
		Body:         body,
		Data:         map[string]interface{}{"follower_id": currentUserID},
		SourceRef:    fmt.Sprintf("follow:%d:%d", currentUserID, targetID),
	}
	if err := h.fanoutService.Enqueue(ctx, trigger); err != nil {
		h.logger.Error("failed to enqueue follow fan-out",
			zap.Uint("follower_id", currentUserID),
			zap.Uint64("target_id", targetID),
			zap.Error(err))
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if err := h.followRepository.DeleteFollow(c.Request().Context(), currentUserID, uint(targetID)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}
