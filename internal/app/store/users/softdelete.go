// internal/app/store/users/softdelete.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Soft-delete lifecycle:
//
//	active --SoftDelete--> deleted --HardDelete--> gone
//	   ^                      |
//	   +-------Restore--------+
//
// SoftDelete only touches active users and HardDelete only touches deleted
// ones; both fail with ErrNotEligible when nothing qualifies. Restore matches
// on id alone, so restoring an active user is a successful no-op.

// SoftDelete marks one active user deleted and drops their refresh token.
func (s *Store) SoftDelete(ctx context.Context, id primitive.ObjectID, by *models.ActorRef) error {
	n, err := s.softDelete(ctx, bson.M{"_id": id}, by)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotEligible
	}
	return nil
}

// SoftDeleteMany marks every active user in ids deleted and returns how many
// were affected.
func (s *Store) SoftDeleteMany(ctx context.Context, ids []primitive.ObjectID, by *models.ActorRef) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNotEligible
	}
	n, err := s.softDelete(ctx, bson.M{"_id": bson.M{"$in": ids}}, by)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotEligible
	}
	return n, nil
}

func (s *Store) softDelete(ctx context.Context, filter bson.M, by *models.ActorRef) (int64, error) {
	filter["is_deleted"] = active
	now := time.Now().UTC()
	set := bson.M{
		"is_deleted": true,
		"deleted_at": now,
		"updated_at": now,
	}
	if by != nil {
		set["deleted_by"] = by
	}
	res, err := s.c.UpdateMany(ctx, filter, bson.M{
		"$set":   set,
		"$unset": bson.M{"refresh_token": ""},
	})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Restore clears the deleted flag on id whatever its current state. Returns
// ErrNotFound only when no user has that id.
func (s *Store) Restore(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.restore(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreMany clears the deleted flag on every user in ids and returns the
// number matched.
func (s *Store) RestoreMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.restore(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) restore(ctx context.Context, filter bson.M) (int64, error) {
	res, err := s.c.UpdateMany(ctx, filter, bson.M{
		"$set":   bson.M{"is_deleted": false, "updated_at": time.Now().UTC()},
		"$unset": bson.M{"deleted_at": "", "deleted_by": ""},
	})
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// HardDelete physically removes one user that is already soft-deleted.
func (s *Store) HardDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "is_deleted": true})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotEligible
	}
	return nil
}

// HardDeleteMany physically removes the soft-deleted users among ids and
// returns how many were removed. Active ids are left untouched.
func (s *Store) HardDeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrNotEligible
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}, "is_deleted": true})
	if err != nil {
		return 0, err
	}
	if res.DeletedCount == 0 {
		return 0, ErrNotEligible
	}
	return res.DeletedCount, nil
}
