// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// Providers
const (
	ProviderLocal    = "local"
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// ActorRef records who created, updated, or deleted a record.
type ActorRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Email string             `bson:"email" json:"email"`
}

// User is an account on the platform.
//
// Soft-deleted users (IsDeleted) are invisible to everything but the trash
// views. RefreshToken holds the single live refresh token, if any.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password,omitempty" json:"-"`
	Name     string             `bson:"name" json:"name"`
	Slug     string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Bio      string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar   string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Age      int                `bson:"age,omitempty" json:"age,omitempty"`
	Gender   string             `bson:"gender,omitempty" json:"gender,omitempty"`
	Birthday *time.Time         `bson:"birthday,omitempty" json:"birthday,omitempty"`
	Role     string             `bson:"role" json:"role"`         // admin | moderator | user
	Provider string             `bson:"provider" json:"provider"` // local | google | facebook

	RefreshToken     string     `bson:"refresh_token,omitempty" json:"-"`
	ResetToken       string     `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	CreatedBy *ActorRef `bson:"created_by,omitempty" json:"created_by,omitempty"`
	UpdatedBy *ActorRef `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
	DeletedBy *ActorRef `bson:"deleted_by,omitempty" json:"deleted_by,omitempty"`

	IsDeleted bool       `bson:"is_deleted" json:"-"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// IsValidProvider reports whether provider is one of the known providers.
func IsValidProvider(provider string) bool {
	switch provider {
	case ProviderLocal, ProviderGoogle, ProviderFacebook:
		return true
	}
	return false
}
