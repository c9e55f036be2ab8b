// internal/app/features/users/trash.go
package users

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
)

// trashErr maps store sentinels for operations on the trash.
func trashErr(err error) error {
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		return apperr.New(apperr.KindNotFound, "User not found")
	case errors.Is(err, userstore.ErrNotEligible):
		return apperr.ErrNotEligible
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/trash                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleTrash(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.ListDeleted(ctx, listQuery(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, "Deleted users loaded", page)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /users/trash/{id}                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleTrashDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.FindDeletedByID(ctx, id)
	if err != nil {
		respond.Error(w, h.Log, trashErr(err))
		return
	}
	respond.OK(w, "Deleted user loaded", u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /users/trash/delete/{id}  (hard)                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleHardDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.HardDelete(ctx, id); err != nil {
		respond.Error(w, h.Log, trashErr(err))
		return
	}
	h.AuditLog.UsersHardDeleted(r.Context(), r, actorID(r), []string{id.Hex()}, 1)
	respond.OK(w, "User permanently deleted", bulkResult{Affected: 1})
}

/*─────────────────────────────────────────────────────────────────────────────*
| DELETE /users/trash/delete-multi  (hard)                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleHardDeleteMany(w http.ResponseWriter, r *http.Request) {
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

	n, err := h.Users.HardDeleteMany(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, trashErr(err))
		return
	}
	h.AuditLog.UsersHardDeleted(r.Context(), r, actorID(r), hexes(ids), n)
	respond.OK(w, "Users permanently deleted", bulkResult{Affected: n})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /users/restore/{id}                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Users.Restore(ctx, id); err != nil {
		respond.Error(w, h.Log, trashErr(err))
		return
	}
	h.AuditLog.UsersRestored(r.Context(), r, actorID(r), []string{id.Hex()}, 1)
	respond.OK(w, "User restored", bulkResult{Affected: 1})
}

/*─────────────────────────────────────────────────────────────────────────────*
| PATCH /users/restore-multi                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRestoreMany(w http.ResponseWriter, r *http.Request) {
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

	n, err := h.Users.RestoreMany(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.UsersRestored(r.Context(), r, actorID(r), hexes(ids), n)
	respond.OK(w, "Users restored", bulkResult{Affected: n})
}
