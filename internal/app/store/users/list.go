// internal/app/store/users/list.go
package userstore

import (
	"context"
	"regexp"
	"strings"

	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the page size used when the caller does not ask for one.
const DefaultLimit = 10

// MaxLimit caps the page size a caller may request.
const MaxLimit = 100

// MaxPage caps the page number so the skip offset stays well inside int64.
const MaxPage = 1_000_000

// sortable lists the fields a caller may sort on.
var sortable = map[string]bool{
	"name":       true,
	"email":      true,
	"age":        true,
	"role":       true,
	"provider":   true,
	"created_at": true,
	"updated_at": true,
	"deleted_at": true,
}

// ListQuery describes a filtered, sorted page of users.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string // substring of name or email, case-insensitive
	Role      string
	Provider  string
	Gender    string
	Sort      string // e.g. "-created_at" or "name"
	ExcludeID *primitive.ObjectID
}

// Meta describes the page that was returned.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int64 `json:"totalPages"`
	TotalItems int64 `json:"totalItems"`
}

// Page is one page of users plus its meta block.
type Page struct {
	Meta   Meta          `json:"meta"`
	Result []models.User `json:"result"`
}

// List returns a page of active users.
func (s *Store) List(ctx context.Context, q ListQuery) (Page, error) {
	filter := q.filter()
	filter["is_deleted"] = active
	return s.list(ctx, filter, q, "created_at")
}

// ListDeleted returns a page of soft-deleted users.
func (s *Store) ListDeleted(ctx context.Context, q ListQuery) (Page, error) {
	filter := q.filter()
	filter["is_deleted"] = true
	return s.list(ctx, filter, q, "deleted_at")
}

func (s *Store) list(ctx context.Context, filter bson.M, q ListQuery, defaultSort string) (Page, error) {
	page, limit := q.bounds()

	total, err := s.c.CountDocuments(ctx, filter)
	if err != nil {
		return Page{}, err
	}

	opts := options.Find().
		SetProjection(publicProjection).
		SetSort(parseSort(q.Sort, defaultSort)).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	users := make([]models.User, 0, limit)
	if err := cur.All(ctx, &users); err != nil {
		return Page{}, err
	}

	return Page{
		Meta: Meta{
			Page:       page,
			Limit:      limit,
			TotalPages: (total + int64(limit) - 1) / int64(limit),
			TotalItems: total,
		},
		Result: users,
	}, nil
}

func (q ListQuery) bounds() (page, limit int) {
	page, limit = q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func (q ListQuery) filter() bson.M {
	f := bson.M{}
	if s := strings.TrimSpace(q.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		f["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
		}
	}
	if r := normalize.Role(q.Role); r != "" {
		f["role"] = r
	}
	if p := strings.ToLower(strings.TrimSpace(q.Provider)); p != "" {
		f["provider"] = p
	}
	if g := strings.TrimSpace(q.Gender); g != "" {
		f["gender"] = g
	}
	if q.ExcludeID != nil {
		f["_id"] = bson.M{"$ne": *q.ExcludeID}
	}
	return f
}

// parseSort turns "-field,other" into a Mongo sort document. Unknown fields
// are ignored; an empty result falls back to def descending.
func parseSort(raw, def string) bson.D {
	var d bson.D
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		dir := 1
		if strings.HasPrefix(part, "-") {
			dir = -1
			part = part[1:]
		}
		if sortable[part] {
			d = append(d, bson.E{Key: part, Value: dir})
		}
	}
	if len(d) == 0 {
		d = bson.D{{Key: def, Value: -1}}
	}
	return append(d, bson.E{Key: "_id", Value: -1})
}
