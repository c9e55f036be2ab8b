// internal/app/features/authfacebook/routes.go
package authfacebook

import "github.com/go-chi/chi/v5"

// Routes returns the public router for Facebook OAuth endpoints.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeLogin)
	r.Get("/callback", h.ServeCallback)
	return r
}
