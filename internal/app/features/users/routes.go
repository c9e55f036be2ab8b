// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts user administration. Profile endpoints are open to any
// signed-in user; everything else is admin-only.
func Routes(h *Handler, sm *auth.Authenticator) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/profile", h.HandleProfile)
		pr.Patch("/profile", h.HandleUpdateProfile)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(sm.RequireRole(models.RoleAdmin))

		ar.Post("/", h.HandleCreate)
		ar.Get("/", h.HandleList)
		ar.Get("/detail/{id}", h.HandleDetail)
		ar.Patch("/update/{id}", h.HandleUpdate)
		ar.Delete("/delete/{id}", h.HandleDelete)
		ar.Delete("/delete-multi", h.HandleDeleteMany)

		ar.Get("/trash", h.HandleTrash)
		ar.Get("/trash/{id}", h.HandleTrashDetail)
		ar.Delete("/trash/delete/{id}", h.HandleHardDelete)
		ar.Delete("/trash/delete-multi", h.HandleHardDeleteMany)
		ar.Patch("/restore/{id}", h.HandleRestore)
		ar.Patch("/restore-multi", h.HandleRestoreMany)

		ar.Get("/export", h.HandleExport)
		ar.Post("/import", h.HandleImport)
		ar.Get("/template", h.HandleTemplate)
	})

	return r
}
