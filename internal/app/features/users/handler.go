// internal/app/features/users/handler.go
package users

import (
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves user administration and the signed-in user's profile.
type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler creates a users Handler.
func NewHandler(users *userstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, AuditLog: audit, Log: logger}
}

// idsRequest is the body of every bulk endpoint.
type idsRequest struct {
	IDs []string `json:"ids"`
}

// bulkResult reports how many users a bulk action touched.
type bulkResult struct {
	Affected int64 `json:"affected"`
}

// userFields is the editable profile payload shared by create and update.
// Pointers distinguish "absent" from "set to empty".
type userFields struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Gender   *string `json:"gender"`
	Age      *int    `json:"age"`
	Role     *string `json:"role"`
	Birthday *string `json:"birthday"`
}

// toUpdate validates and sanitizes f. Names lose all markup; bios keep safe
// formatting only.
func (f userFields) toUpdate() (userstore.Update, []string, error) {
	var (
		upd     userstore.Update
		changed []string
	)
	if f.Name != nil {
		name := normalize.Name(htmlsanitize.StripTags(*f.Name))
		if name == "" {
			return upd, nil, apperr.BadRequest("name must not be empty")
		}
		upd.Name = &name
		changed = append(changed, "name")
	}
	if f.Email != nil {
		email := normalize.Email(*f.Email)
		if !validEmail(email) {
			return upd, nil, apperr.BadRequest("email is invalid")
		}
		upd.Email = &email
		changed = append(changed, "email")
	}
	if f.Avatar != nil {
		avatar := strings.TrimSpace(*f.Avatar)
		upd.Avatar = &avatar
		changed = append(changed, "avatar")
	}
	if f.Bio != nil {
		bio := htmlsanitize.Sanitize(*f.Bio)
		upd.Bio = &bio
		changed = append(changed, "bio")
	}
	if f.Gender != nil {
		gender := htmlsanitize.StripTags(*f.Gender)
		upd.Gender = &gender
		changed = append(changed, "gender")
	}
	if f.Age != nil {
		if *f.Age < 0 {
			return upd, nil, apperr.BadRequest("age must not be negative")
		}
		upd.Age = f.Age
		changed = append(changed, "age")
	}
	if f.Role != nil {
		role := normalize.Role(*f.Role)
		if !models.IsValidRole(role) {
			return upd, nil, apperr.BadRequest(`role must be "admin", "moderator" or "user"`)
		}
		upd.Role = &role
		changed = append(changed, "role")
	}
	if f.Birthday != nil {
		bd, err := parseBirthday(*f.Birthday)
		if err != nil {
			return upd, nil, err
		}
		if bd != nil {
			upd.Birthday = bd
			changed = append(changed, "birthday")
		}
	}
	return upd, changed, nil
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// parseBirthday accepts RFC 3339 or a bare YYYY-MM-DD date.
func parseBirthday(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.BadRequest("birthday must be a date (YYYY-MM-DD)")
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return oid, nil
}

// parseIDs validates a bulk id list. Every id must be a valid ObjectID.
func parseIDs(raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, apperr.BadRequest("No ids provided")
	}
	out := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
		if err != nil {
			return nil, apperr.New(apperr.KindInvalidID, "One or more ids are invalid")
		}
		out = append(out, oid)
	}
	return out, nil
}

// listQuery reads paging, sorting and filters from the query string.
func listQuery(r *http.Request) userstore.ListQuery {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(query.Get(r, key))
		return n
	}
	return userstore.ListQuery{
		Page:     atoi("page"),
		Limit:    atoi("limit"),
		Search:   query.Search(r, "search"),
		Role:     query.Get(r, "role"),
		Provider: query.Get(r, "provider"),
		Gender:   query.Get(r, "gender"),
		Sort:     query.Get(r, "sort"),
	}
}

// excludeSelf keeps the caller out of their own admin listing.
func excludeSelf(r *http.Request, q *userstore.ListQuery) {
	if u, ok := auth.CurrentUser(r); ok {
		if oid, err := primitive.ObjectIDFromHex(u.ID); err == nil {
			q.ExcludeID = &oid
		}
	}
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// lockedIfMissing maps a store miss on an active-user operation to
// DeletedOrBanned: a missing and a trashed account look the same to callers.
func lockedIfMissing(err error) error {
	if errors.Is(err, userstore.ErrNotFound) || errors.Is(err, userstore.ErrNotEligible) {
		return apperr.ErrDeletedOrBanned
	}
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return apperr.ErrEmailAlreadyExists
	}
	return err
}
