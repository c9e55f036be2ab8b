// internal/app/features/images/routes.go
package images

import (
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves images publicly and guards deletion behind sign-in.
func Routes(h *Handler, sm *auth.Authenticator) chi.Router {
	r := chi.NewRouter()
	r.Get("/{type}/{slug}", h.HandleServe)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Delete("/{slug}", h.HandleDelete)
		pr.Delete("/", h.HandleDeleteMany)
	})
	return r
}
