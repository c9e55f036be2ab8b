// internal/app/store/images/imagestore.go
package imagestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/contenthub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the images collection name.
const Collection = "images"

var (
	// ErrNotFound is returned when no image has the requested slug.
	ErrNotFound = errors.New("image not found")
	// ErrDuplicateSlug is returned when the slug is already taken.
	ErrDuplicateSlug = errors.New("slug already exists")
	// ErrNoSlugs is returned by bulk operations given nothing to act on.
	ErrNoSlugs = errors.New("no slugs provided")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create stores one slug → file id mapping.
func (s *Store) Create(ctx context.Context, slug, fileID string) (models.Image, error) {
	img := models.Image{
		ID:        primitive.NewObjectID(),
		Slug:      strings.TrimSpace(slug),
		FileID:    fileID,
		CreatedAt: time.Now().UTC(),
	}
	if img.Slug == "" || img.FileID == "" {
		return models.Image{}, errors.New("slug and file id are required")
	}
	if _, err := s.c.InsertOne(ctx, img); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Image{}, ErrDuplicateSlug
		}
		return models.Image{}, err
	}
	return img, nil
}

// InsertResult reports what a bulk insert stored and what it skipped.
type InsertResult struct {
	Images     []models.Image `json:"images"`
	Duplicates []string       `json:"duplicates,omitempty"`
}

// InsertMany stores every mapping it can. Entries missing a slug or file id
// are ignored; slugs already taken are reported as duplicates.
func (s *Store) InsertMany(ctx context.Context, imgs []models.Image) (InsertResult, error) {
	now := time.Now().UTC()
	docs := make([]any, 0, len(imgs))
	pending := make([]models.Image, 0, len(imgs))
	for _, img := range imgs {
		img.Slug = strings.TrimSpace(img.Slug)
		if img.Slug == "" || img.FileID == "" {
			continue
		}
		img.ID = primitive.NewObjectID()
		img.CreatedAt = now
		docs = append(docs, img)
		pending = append(pending, img)
	}
	if len(docs) == 0 {
		return InsertResult{}, ErrNoSlugs
	}

	var res InsertResult
	_, err := s.c.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	failed := map[int]bool{}
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) {
			return InsertResult{}, err
		}
		for _, we := range bwe.WriteErrors {
			if we.Code != 11000 && we.Code != 11001 {
				return InsertResult{}, err
			}
			failed[we.Index] = true
		}
	}
	for i, img := range pending {
		if failed[i] {
			res.Duplicates = append(res.Duplicates, img.Slug)
			continue
		}
		res.Images = append(res.Images, img)
	}
	return res, nil
}

// FindBySlug loads an image by slug.
func (s *Store) FindBySlug(ctx context.Context, slug string) (*models.Image, error) {
	var img models.Image
	if err := s.c.FindOne(ctx, bson.M{"slug": slug}).Decode(&img); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// DeleteBySlug removes one image and returns it.
func (s *Store) DeleteBySlug(ctx context.Context, slug string) (*models.Image, error) {
	var img models.Image
	if err := s.c.FindOneAndDelete(ctx, bson.M{"slug": slug}).Decode(&img); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

// DeleteMany removes every image among slugs and returns the slugs that
// existed. Fails with ErrNotFound when none did.
func (s *Store) DeleteMany(ctx context.Context, slugs []string) ([]string, int64, error) {
	if len(slugs) == 0 {
		return nil, 0, ErrNoSlugs
	}
	filter := bson.M{"slug": bson.M{"$in": slugs}}

	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"slug": 1}))
	if err != nil {
		return nil, 0, err
	}
	var found []models.Image
	if err := cur.All(ctx, &found); err != nil {
		return nil, 0, err
	}
	if len(found) == 0 {
		return nil, 0, ErrNotFound
	}

	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]string, 0, len(found))
	for _, img := range found {
		out = append(out, img.Slug)
	}
	return out, res.DeletedCount, nil
}
