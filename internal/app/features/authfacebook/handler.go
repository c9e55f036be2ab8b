// internal/app/features/authfacebook/handler.go
package authfacebook

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dalemusser/contenthub/internal/app/system/oauthflow"
	"github.com/dalemusser/contenthub/internal/app/system/social"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// ProfileURL is the Graph API endpoint for the signed-in user.
const ProfileURL = "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture.type(large)"

// Handler handles Facebook OAuth authentication.
type Handler struct {
	Log *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string
	ProfileURL   string

	flow *oauthflow.Flow
}

// NewHandler creates a new Facebook OAuth handler.
func NewHandler(deps oauthflow.Deps, clientID, clientSecret, callbackURL string) *Handler {
	h := &Handler{
		Log:          deps.Log,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		ProfileURL:   ProfileURL,
	}
	h.flow = oauthflow.New(models.ProviderFacebook, h.oauth2Config(), h.fetchProfile, deps)
	return h
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes:       []string{"email", "public_profile"},
		Endpoint:     facebook.Endpoint,
	}
}

// IsConfigured returns true if Facebook OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.flow.Configured()
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/facebook                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	h.flow.ServeLogin(w, r)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/facebook/callback                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	h.flow.ServeCallback(w, r)
}

func (h *Handler) fetchProfile(ctx context.Context, client *http.Client) (social.Identity, error) {
	var p social.FacebookProfile
	if err := oauthflow.GetJSON(ctx, client, h.ProfileURL, &p); err != nil {
		return social.Identity{}, fmt.Errorf("facebook profile: %w", err)
	}
	return social.FromFacebook(p), nil
}
