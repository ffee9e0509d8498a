package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User roles stored in the role column and carried in JWT claims.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Email       string    `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all users
	Password    string    `json:"-"`                        // Store hashed password, ignore for JSON serialization
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"` // NULL for local signups; set only via Firebase linking
	Role        string    `json:"role" gorm:"size:20;default:user"`
	IsActive    bool      `json:"is_active" gorm:"default:true;index"`
	City        string    `json:"city" gorm:"size:100;index"`
	District    string    `json:"district" gorm:"size:100;index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	City     string `json:"city" validate:"required,min=2,max=100"`
	District string `json:"district" validate:"omitempty,max=100"`
}

type UpdateUserRequest struct {
	Name     string `json:"name,omitempty" validate:"omitempty,min=2,max=50"`
	City     string `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	District string `json:"district,omitempty" validate:"omitempty,max=100"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
