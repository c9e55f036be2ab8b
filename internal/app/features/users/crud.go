// internal/app/features/users/crud.go
package users

import (
	"context"
	"errors"
	"net/http"
	"time"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/authz"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/dalemusser/contenthub/internal/domain/models"
)

type createRequest struct {
	userFields
	Password string `json:"password"`
	Provider string `json:"provider"`
}

type createResponse struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"created_at"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /users                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if req.Name == nil || req.Email == nil || req.Password == "" {
		respond.Error(w, h.Log, apperr.BadRequest("name, email and password are required"))
		return
	}
	upd, _, err := req.userFields.toUpdate()
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	provider := models.ProviderLocal
	if req.Provider != "" {
		if !models.IsValidProvider(req.Provider) {
			respond.Error(w, h.Log, apperr.BadRequest(`provider must be "local", "google" or "facebook"`))
			return
		}
		provider = req.Provider
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	u := models.User{
		Email:     *upd.Email,
		Password:  hash,
		Name:      *upd.Name,
		Provider:  provider,
		CreatedBy: authz.Actor(r),
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.Gender != nil {
		u.Gender = *upd.Gender
	}
	if upd.Age != nil {
		u.Age = *upd.Age
	}
	u.Birthday = upd.Birthday

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	created, err := h.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			err = apperr.ErrEmailAlreadyExists
		}
		respond.Error(w, h.Log, err)
		return
	}
	respond.Created(w, "User created", createResponse{ID: created.ID.Hex(), CreatedAt: created.CreatedAt})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := listQuery(r)
	excludeSelf(r, &q)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.List(ctx, q)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, "Users loaded", page)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/detail/{id}                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.FindActiveByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, lockedIfMissing(err))
		return
	}
	respond.OK(w, "User loaded", u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /users/update/{id}                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var req userFields
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	upd, changed, err := req.toUpdate()
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Update(ctx, id, upd, authz.Actor(r)); err != nil {
		respond.Error(w, h.Log, lockedIfMissing(err))
		return
	}
	h.AuditLog.UserUpdated(r.Context(), r, actorID(r), id.Hex(), changed)
	respond.OK(w, "User updated", map[string]any{"_id": id.Hex(), "updated": changed})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /users/delete/{id}  (soft)                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.SoftDelete(ctx, id, authz.Actor(r)); err != nil {
		respond.Error(w, h.Log, lockedIfMissing(err))
		return
	}
	h.AuditLog.UsersSoftDeleted(r.Context(), r, actorID(r), []string{id.Hex()}, 1)
	respond.OK(w, "User deleted", bulkResult{Affected: 1})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /users/delete-multi  (soft)                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Users.SoftDeleteMany(ctx, ids, authz.Actor(r))
	if err != nil {
		if errors.Is(err, userstore.ErrNotEligible) {
			err = apperr.ErrNotEligible
		}
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.UsersSoftDeleted(r.Context(), r, actorID(r), hexes(ids), n)
	respond.OK(w, "Users deleted", bulkResult{Affected: n})
}
