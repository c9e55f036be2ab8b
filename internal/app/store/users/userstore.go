// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the users collection name.
const Collection = "users"

var (
	// ErrNotFound is returned when no matching user exists in the requested state.
	ErrNotFound = errors.New("user not found")
	// ErrNotEligible is returned when a lifecycle change has no qualifying targets.
	ErrNotEligible = errors.New("no eligible users")
	// ErrDuplicateEmail is returned when the email already belongs to another user.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrTokenMismatch is returned when a refresh rotation or password reset
	// loses its compare-and-swap on the stored token.
	ErrTokenMismatch = errors.New("stored token does not match")

	errBadRole     = errors.New(`role must be "admin"|"moderator"|"user"`)
	errBadProvider = errors.New(`provider must be "local"|"google"|"facebook"`)
	errNoEmail     = errors.New("email is required")
)

// active is the explicit soft-delete condition every normal query carries.
var active = bson.M{"$ne": true}

// publicProjection strips credentials from documents returned to callers
// that render users.
var publicProjection = bson.M{
	"password":           0,
	"refresh_token":      0,
	"reset_token":        0,
	"reset_token_expiry": 0,
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// GetByID loads a user by ObjectID regardless of soft-delete state.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// FindActiveByID loads a user that is not soft-deleted.
func (s *Store) FindActiveByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id, "is_deleted": active})
}

// FindDeletedByID loads a user from the trash, with credentials stripped.
func (s *Store) FindDeletedByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id, "is_deleted": true}, options.FindOne().SetProjection(publicProjection))
}

// FindByEmail looks up a user by normalized email in any state. Callers
// decide what a soft-deleted match means.
func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalize.Email(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"email": email})
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	return false, err
}

// Create inserts a new user after normalizing and validating fields.
// Role defaults to "user" and provider to "local".
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u, err := prepareNew(u, time.Now().UTC())
	if err != nil {
		return models.User{}, err
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

func prepareNew(u models.User, now time.Time) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.Name = normalize.Name(u.Name)
	if u.Email == "" {
		return models.User{}, errNoEmail
	}
	if u.Slug == "" && u.Name != "" {
		u.Slug = normalize.Slug(u.Name)
	}
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	if u.Provider == "" {
		u.Provider = models.ProviderLocal
	}
	if !models.IsValidProvider(u.Provider) {
		return models.User{}, errBadProvider
	}
	u.IsDeleted = false
	u.DeletedAt = nil
	u.DeletedBy = nil
	u.RefreshToken = ""
	u.CreatedAt = now
	u.UpdatedAt = now
	return u, nil
}

// Update holds the mutable profile fields. Nil pointers are left unchanged.
type Update struct {
	Name     *string
	Email    *string
	Avatar   *string
	Bio      *string
	Gender   *string
	Age      *int
	Role     *string
	Birthday *time.Time
}

// Update applies upd to an active user. Returns ErrNotFound when the user is
// missing or soft-deleted, and ErrDuplicateEmail on an email collision.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update, by *models.ActorRef) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if by != nil {
		set["updated_by"] = by
	}
	if upd.Name != nil {
		name := normalize.Name(*upd.Name)
		set["name"] = name
		set["slug"] = normalize.Slug(name)
	}
	if upd.Email != nil {
		email := normalize.Email(*upd.Email)
		if email == "" {
			return errNoEmail
		}
		set["email"] = email
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}
	if upd.Age != nil {
		set["age"] = *upd.Age
	}
	if upd.Birthday != nil {
		set["birthday"] = *upd.Birthday
	}
	if upd.Role != nil {
		role := normalize.Role(*upd.Role)
		if !models.IsValidRole(role) {
			return errBadRole
		}
		set["role"] = role
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "is_deleted": active}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRole sets the role of an active user. Used by the admin bootstrap.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter, opts...).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
