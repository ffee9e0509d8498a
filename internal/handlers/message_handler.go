package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/fanout"
	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/internal/repositories"
	"go.uber.org/zap"
)

// ConversationHandler handles chat conversation and message HTTP requests
type ConversationHandler struct {
	conversationRepository repositories.ConversationRepository
	userRepository         repositories.UserRepository
	fanoutService          *fanout.Service
	logger                 *zap.Logger
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversationRepo repositories.ConversationRepository, userRepo repositories.UserRepository, fanoutService *fanout.Service, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationRepository: conversationRepo,
		userRepository:         userRepo,
		fanoutService:          fanoutService,
		logger:                 logger,
	}
}

// RegisterConversationRoutes registers conversation-related routes
func (h *ConversationHandler) RegisterConversationRoutes(g *echo.Group) {
	g.POST("/conversations", h.CreateConversation)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
}

// CreateConversation creates a conversation containing the caller and the
// requested members
func (h *ConversationHandler) CreateConversation(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	members := req.MemberIDs
	hasSelf := false
	for _, id := range members {
		if id == currentUserID {
			hasSelf = true
			break
		}
	}
	if !hasSelf {
		members = append(members, currentUserID)
	}

	conversation := &models.Conversation{
		Name:      req.Name,
		IsGroup:   len(members) > 2,
		MemberIDs: members,
	}

	if err := h.conversationRepository.CreateConversation(c.Request().Context(), conversation); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"conversation": conversation}})
}

// ListConversations returns the caller's conversations
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	conversations, err := h.conversationRepository.ListByMember(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"conversations": conversations}})
}

// ListMessages returns the newest messages of a conversation
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	conversationID := c.Param("id")

	conversation, err := h.conversationRepository.GetConversationByID(ctx, conversationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
	}
	if !isMember(conversation, currentUserID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not a member of this conversation")
	}

	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 50
	}

	messages, err := h.conversationRepository.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"messages": messages}})
}

// SendMessage appends a message and fans out a notification to the other
// conversation members
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	conversationID := c.Param("id")

	conversation, err := h.conversationRepository.GetConversationByID(ctx, conversationID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
	}
	if !isMember(conversation, currentUserID) {
		return echo.NewHTTPError(http.StatusForbidden, "Not a member of this conversation")
	}

	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       currentUserID,
		Body:           req.Body,
	}
	if err := h.conversationRepository.AppendMessage(ctx, message); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The message is committed; fan-out failure must not fail this request.
	// The message's own ID keys the notification rows, one per other member.
	title := "New message"
	if actor, err := h.userRepository.GetUserByID(ctx, currentUserID); err == nil {
		title = actor.Name
	}
	trigger := fanout.Trigger{
		Kind:           fanout.KindMessage,
		ActorID:        currentUserID,
		ConversationID: conversationID,
		Title:          title,
		Body:           req.Body,
		Data:           map[string]interface{}{"conversation_id": conversationID},
		SourceRef:      message.ID.Hex(),
	}
	if err := h.fanoutService.Enqueue(ctx, trigger); err != nil {
		h.logger.Error("failed to enqueue message fan-out",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": echo.Map{"message": message}})
}

func isMember(conversation *models.Conversation, userID uint) bool {
	for _, id := range conversation.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
