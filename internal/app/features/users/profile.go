// internal/app/features/users/profile.go
package users

import (
	"context"
	"net/http"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/authz"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func currentID(r *http.Request) (primitive.ObjectID, error) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, apperr.ErrUnauthorized
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return oid, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/profile                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, err := currentID(r)
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
	respond.OK(w, "Profile loaded", u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /users/profile                                                         |
| Users may edit their own profile but never their role.                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := currentID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var req userFields
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	req.Role = nil

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
	u, err := h.Users.FindActiveByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, lockedIfMissing(err))
		return
	}
	h.AuditLog.UserUpdated(r.Context(), r, id.Hex(), id.Hex(), changed)
	respond.OK(w, "Profile updated", u)
}
