// internal/app/features/upload/routes.go
package upload

import (
	"net/http"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Routes mounts the upload endpoints for signed-in users, throttled per IP.
func Routes(h *Handler, sm *auth.Authenticator) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Use(httprate.Limit(h.RatePerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respond.Error(w, h.Log, apperr.ErrTooManyRequests)
		}),
	))

	r.Post("/upload", h.HandleUpload)
	r.Post("/upload-multiple", h.HandleUploadMultiple)
	return r
}
