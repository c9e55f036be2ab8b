// internal/app/features/auth/routes.go
package auth

import (
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the credential endpoints. Logout and account need a signed-in
// caller; the rest are public.
func Routes(h *Handler, sm *auth.Authenticator) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.HandleLogin)
	r.Post("/register", h.HandleRegister)
	r.Get("/refresh", h.HandleRefresh)
	r.Post("/forgot-password", h.HandleForgotPassword)
	r.Post("/reset-password", h.HandleResetPassword)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/account", h.HandleAccount)
	})

	return r
}
