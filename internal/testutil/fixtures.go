// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active local user with the given role and a
// bcrypt hash of plain. An empty plain leaves the password unset.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role, plain string) models.User {
	f.t.Helper()

	hash := ""
	if plain != "" {
		var err error
		if hash, err = password.Hash(plain); err != nil {
			f.t.Fatalf("hash password: %v", err)
		}
	}
	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Email:     normalize.Email(email),
		Password:  hash,
		Name:      name,
		Slug:      normalize.Slug(name),
		Role:      role,
		Provider:  models.ProviderLocal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateDeletedUser inserts a user that is already in the trash.
func (f *Fixtures) CreateDeletedUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, name, email, models.RoleUser, "")
	now := time.Now().UTC()
	_, err := f.db.Collection("users").UpdateByID(ctx, u.ID, map[string]any{
		"$set": map[string]any{"is_deleted": true, "deleted_at": now},
	})
	if err != nil {
		f.t.Fatalf("failed to soft-delete test user: %v", err)
	}
	u.IsDeleted = true
	u.DeletedAt = &now
	return u
}

// CreateImage inserts an image record.
func (f *Fixtures) CreateImage(ctx context.Context, slug, fileID string) models.Image {
	f.t.Helper()

	img := models.Image{
		ID:        primitive.NewObjectID(),
		Slug:      slug,
		FileID:    fileID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("images").InsertOne(ctx, img); err != nil {
		f.t.Fatalf("failed to create test image: %v", err)
	}
	return img
}
