package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/semtim/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationRepository defines the interface for conversation and message operations
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	ListByMember(ctx context.Context, userID uint) ([]models.Conversation, error)
	AppendMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int64) ([]models.Message, error)
	MemberIDs(ctx context.Context, conversationID string) ([]uint, error)
}

// MongoConversationRepository implements ConversationRepository for MongoDB
type MongoConversationRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
}

// NewMongoConversationRepository creates a new MongoConversationRepository
func NewMongoConversationRepository(db *mongo.Database) *MongoConversationRepository {
	return &MongoConversationRepository{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
	}
}

func (r *MongoConversationRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	conversation.ID = primitive.NewObjectID()
	conversation.CreatedAt = time.Now()
	_, err := r.conversations.InsertOne(ctx, conversation)
	return err
}

func (r *MongoConversationRepository) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", err)
	}

	var conversation models.Conversation
	err = r.conversations.FindOne(ctx, bson.M{"_id": objID}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("conversation not found")
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *MongoConversationRepository) ListByMember(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.conversations.Find(ctx, bson.M{"member_ids": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// MemberIDs returns the membership of a conversation; this is the audience
// resolver's read path for message triggers.
func (r *MongoConversationRepository) MemberIDs(ctx context.Context, conversationID string) ([]uint, error) {
	conversation, err := r.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conversation.MemberIDs, nil
}

func (r *MongoConversationRepository) AppendMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	_, err := r.messages.InsertOne(ctx, message)
	return err
}

func (r *MongoConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int64) ([]models.Message, error) {
	objID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation ID format: %w", err)
	}

	var messages []models.Message
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.messages.Find(ctx, bson.M{"conversation_id": objID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}
