// internal/domain/models/image.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Image maps a public slug to a file held by the Telegram Bot API.
type Image struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Slug      string             `bson:"slug" json:"slug"`
	FileID    string             `bson:"file_id" json:"file_id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
