// internal/app/store/users/tokens.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SetRefreshToken overwrites the stored refresh token. An empty token clears it.
func (s *Store) SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error {
	update := bson.M{"$set": bson.M{"refresh_token": token}}
	if token == "" {
		update = bson.M{"$unset": bson.M{"refresh_token": ""}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken replaces old with next only if old is still the stored
// value on an active user. A lost race returns ErrTokenMismatch.
func (s *Store) RotateRefreshToken(ctx context.Context, id primitive.ObjectID, old, next string) error {
	if old == "" {
		return ErrTokenMismatch
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "refresh_token": old, "is_deleted": active},
		bson.M{"$set": bson.M{"refresh_token": next}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// FindByRefreshToken loads the active user currently holding token.
func (s *Store) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"refresh_token": token, "is_deleted": active})
}

// SetResetToken stores a password-reset token and its expiry on the user.
func (s *Store) SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reset_token":        token,
		"reset_token_expiry": expiry.UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByResetToken loads the active user holding token with an expiry after now.
func (s *Store) FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{
		"reset_token":        token,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
		"is_deleted":         active,
	})
}

// ResetPassword stores a new password hash and clears the reset token so it
// cannot be reused. The update only matches while token is still the stored,
// unexpired reset token, so concurrent uses of one token have a single
// winner; the others get ErrTokenMismatch. The live refresh token is dropped
// as well.
func (s *Store) ResetPassword(ctx context.Context, id primitive.ObjectID, token, hash string, now time.Time) error {
	if token == "" {
		return ErrTokenMismatch
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":                id,
			"reset_token":        token,
			"reset_token_expiry": bson.M{"$gt": now.UTC()},
			"is_deleted":         active,
		},
		bson.M{
			"$set":   bson.M{"password": hash, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"reset_token": "", "reset_token_expiry": "", "refresh_token": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTokenMismatch
	}
	return nil
}

// ClearExpiredResetTokens removes reset tokens whose expiry is at or before now.
func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"reset_token_expiry": bson.M{"$lte": now.UTC()}},
		bson.M{"$unset": bson.M{"reset_token": "", "reset_token_expiry": ""}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
