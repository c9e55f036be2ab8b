// internal/app/system/oauthflow/oauthflow.go
package oauthflow

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/session"
	"github.com/dalemusser/contenthub/internal/app/system/social"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// StateTTL bounds how long a user may sit on the provider's consent screen.
const StateTTL = 10 * time.Minute

// StateStore persists single-use OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state, provider, returnURL string, expiresAt time.Time) error
	Validate(ctx context.Context, state, provider string) (returnURL string, valid bool, err error)
}

// SocialLoginer finds or creates the account behind a social identity and
// issues a token pair. *session.Manager satisfies it.
type SocialLoginer interface {
	SocialLogin(ctx context.Context, id social.Identity, provider string) (*session.Result, error)
}

// RefreshCookie stores the refresh token on the response.
type RefreshCookie interface {
	Set(w http.ResponseWriter, token string) error
}

// ProfileFetcher reads the provider profile using an authorized client.
type ProfileFetcher func(ctx context.Context, client *http.Client) (social.Identity, error)

// Flow runs the authorization-code dance shared by every social provider.
type Flow struct {
	Provider string
	Config   *oauth2.Config
	Fetch    ProfileFetcher
	States   StateStore
	Sessions SocialLoginer
	Cookie   RefreshCookie
	Audit    *auditlog.Logger
	Log      *zap.Logger

	// SuccessURL receives the access token appended verbatim.
	SuccessURL string
	// FailureURL receives an error query parameter.
	FailureURL string

	now func() time.Time
}

// Deps carries the collaborators every provider shares.
type Deps struct {
	States     StateStore
	Sessions   SocialLoginer
	Cookie     RefreshCookie
	Audit      *auditlog.Logger
	SuccessURL string
	FailureURL string
	Log        *zap.Logger
}

// New builds a Flow for provider.
func New(provider string, cfg *oauth2.Config, fetch ProfileFetcher, d Deps) *Flow {
	return &Flow{
		Provider:   provider,
		Config:     cfg,
		Fetch:      fetch,
		States:     d.States,
		Sessions:   d.Sessions,
		Cookie:     d.Cookie,
		Audit:      d.Audit,
		Log:        d.Log,
		SuccessURL: d.SuccessURL,
		FailureURL: d.FailureURL,
	}
}

func (f *Flow) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now().UTC()
}

// Configured reports whether client credentials are present.
func (f *Flow) Configured() bool {
	return f.Config != nil && f.Config.ClientID != "" && f.Config.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login: redirect to the provider's consent screen                            |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeLogin saves a fresh state and redirects to the provider.
func (f *Flow) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !f.Configured() {
		f.Log.Warn("social login not configured", zap.String("provider", f.Provider))
		f.fail(w, r, f.Provider+"_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		f.Log.Error("failed to generate OAuth state", zap.Error(err))
		f.fail(w, r, "internal")
		return
	}

	returnURL := query.Get(r, "return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := f.States.Save(ctx, state, f.Provider, returnURL, f.clock().Add(StateTTL)); err != nil {
		f.Log.Error("failed to save OAuth state", zap.String("provider", f.Provider), zap.Error(err))
		f.fail(w, r, "internal")
		return
	}

	target := f.Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	f.Log.Debug("initiating OAuth flow",
		zap.String("provider", f.Provider),
		zap.String("return_url", returnURL))

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Callback: validate state, exchange code, sign the user in                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeCallback completes the flow. On success the refresh token goes into
// the cookie and the browser lands on SuccessURL + access token, followed by
// the saved return path when one was given to ServeLogin.
func (f *Flow) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		f.Log.Warn("OAuth provider returned an error",
			zap.String("provider", f.Provider),
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		f.fail(w, r, f.Provider+"_denied")
		return
	}

	state := r.URL.Query().Get("state")
	stateCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := f.States.Validate(stateCtx, state, f.Provider)
	if err != nil {
		f.Log.Error("failed to validate OAuth state", zap.Error(err))
		f.fail(w, r, "internal")
		return
	}
	if !valid {
		f.Log.Warn("invalid or expired OAuth state", zap.String("provider", f.Provider))
		f.fail(w, r, "invalid_state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		f.fail(w, r, "invalid_code")
		return
	}

	upCtx, upCancel := context.WithTimeout(ctx, timeouts.Upstream())
	defer upCancel()

	token, err := f.Config.Exchange(upCtx, code)
	if err != nil {
		f.Log.Error("failed to exchange OAuth code", zap.String("provider", f.Provider), zap.Error(err))
		f.fail(w, r, "token_exchange")
		return
	}

	id, err := f.Fetch(upCtx, f.Config.Client(upCtx, token))
	if err != nil {
		f.Log.Error("failed to fetch profile", zap.String("provider", f.Provider), zap.Error(err))
		f.fail(w, r, "user_info")
		return
	}
	if id.Email == "" {
		f.Audit.LoginFailed(ctx, r, "", f.Provider+": no email")
		f.fail(w, r, "no_email")
		return
	}

	loginCtx, loginCancel := context.WithTimeout(ctx, timeouts.Medium())
	defer loginCancel()

	res, err := f.Sessions.SocialLogin(loginCtx, id, f.Provider)
	if err != nil {
		if ae := apperr.From(err); ae.Kind == apperr.KindForbidden {
			f.Audit.LoginFailed(ctx, r, id.Email, "account locked")
			f.fail(w, r, "account_locked")
			return
		}
		f.Log.Error("social login failed", zap.String("provider", f.Provider), zap.Error(err))
		f.fail(w, r, "internal")
		return
	}

	if err := f.Cookie.Set(w, res.RefreshToken); err != nil {
		f.Log.Error("failed to set refresh cookie", zap.Error(err))
		f.fail(w, r, "internal")
		return
	}

	f.Audit.SocialLogin(ctx, r, res.User.ID.Hex(), f.Provider)

	target := f.SuccessURL + res.AccessToken
	if localPath(returnURL) {
		target += "&return=" + url.QueryEscape(returnURL)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// localPath reports whether p is a path on the frontend itself, so it can be
// handed back without turning the callback into an open redirect.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

func (f *Flow) fail(w http.ResponseWriter, r *http.Request, code string) {
	target := urlutil.AddOrSetQueryParams(f.FailureURL, map[string]string{"error": code})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GetJSON fetches rawURL with client and decodes a JSON body into dst. The
// request is bound to ctx.
func GetJSON(ctx context.Context, client *http.Client, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build profile request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode profile: %w", err)
	}
	return nil
}
