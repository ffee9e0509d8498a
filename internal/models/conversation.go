package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation represents a chat room (MongoDB). Membership is the only part
// the notification core reads: a message fans out to the other members.
type Conversation struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name,omitempty" bson:"name,omitempty"`
	IsGroup   bool               `json:"is_group" bson:"is_group"`
	MemberIDs []uint             `json:"member_ids" bson:"member_ids"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// Message represents one chat message inside a conversation (MongoDB).
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	SenderID       uint               `json:"sender_id" bson:"sender_id"`
	Body           string             `json:"body" bson:"body"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

type CreateConversationRequest struct {
	Name      string `json:"name" validate:"omitempty,max=100"`
	MemberIDs []uint `json:"member_ids" validate:"required,min=1,dive,required"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}
