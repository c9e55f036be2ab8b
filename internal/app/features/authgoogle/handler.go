// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/contenthub/internal/app/system/oauthflow"
	"github.com/dalemusser/contenthub/internal/app/system/social"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// UserinfoURL is Google's OpenID Connect userinfo endpoint.
const UserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Handler handles Google OAuth authentication.
type Handler struct {
	Log *zap.Logger

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://api.example.com/api/v1/auth/google/callback"
	UserinfoURL  string

	flow *oauthflow.Flow
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(deps oauthflow.Deps, clientID, clientSecret, callbackURL string) *Handler {
	h := &Handler{
		Log:          deps.Log,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		UserinfoURL:  UserinfoURL,
	}
	h.flow = oauthflow.New(models.ProviderGoogle, h.oauth2Config(), h.fetchProfile, deps)
	return h
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.flow.Configured()
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	h.flow.ServeLogin(w, r)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, reads the profile, and signs the user in.                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	h.flow.ServeCallback(w, r)
}

// fetchProfile retrieves the signed-in user's Google profile.
func (h *Handler) fetchProfile(ctx context.Context, client *http.Client) (social.Identity, error) {
	var p social.GoogleProfile
	if err := oauthflow.GetJSON(ctx, client, h.UserinfoURL, &p); err != nil {
		return social.Identity{}, fmt.Errorf("google userinfo: %w", err)
	}
	return social.FromGoogle(p), nil
}
