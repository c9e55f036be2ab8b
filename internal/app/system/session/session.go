// internal/app/system/session/session.go
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/app/system/social"
	"github.com/dalemusser/contenthub/internal/app/system/tokens"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserRepository is the slice of the user store the session manager needs.
// *userstore.Store satisfies it; errors follow the userstore sentinels.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindActiveByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RotateRefreshToken(ctx context.Context, id primitive.ObjectID, old, next string) error
	SetResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, id primitive.ObjectID, token, hash string, now time.Time) error
}

// ResetMailer delivers password-reset links.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, to, name, link string, expiresIn time.Duration) error
}

// Config holds the reset-flow settings.
type Config struct {
	ResetExpiry time.Duration
	FrontendURL string
}

// Result is what a successful login or refresh hands back to the caller.
type Result struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Age      int
	Gender   string
}

// Manager runs the authentication state machine:
// anonymous, authenticated, refreshed, logged out.
type Manager struct {
	users  UserRepository
	signer *tokens.Signer
	mail   ResetMailer
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// NewManager creates a Manager. mail may be nil, in which case reset links
// are only logged.
func NewManager(users UserRepository, signer *tokens.Signer, mail ResetMailer, cfg Config, log *zap.Logger) *Manager {
	if cfg.ResetExpiry <= 0 {
		cfg.ResetExpiry = 15 * time.Minute
	}
	return &Manager{
		users:  users,
		signer: signer,
		mail:   mail,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Login / Register / Logout                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// Login checks credentials and issues a token pair. Credentials are checked
// before deletion state so a locked account reveals nothing to a wrong guess.
func (m *Manager) Login(ctx context.Context, email, plain string) (*Result, error) {
	u, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if !password.Verify(plain, u.Password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if u.IsDeleted {
		return nil, apperr.ErrDeletedOrBanned
	}
	return m.issue(ctx, u, tokens.SubjectLogin)
}

// Register creates a local account with role "user".
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if normalize.Email(in.Email) == "" || in.Password == "" {
		return nil, apperr.BadRequest("email and password are required")
	}
	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := m.users.Create(ctx, models.User{
		Email:    in.Email,
		Password: hash,
		Name:     in.Name,
		Age:      in.Age,
		Gender:   in.Gender,
		Role:     models.RoleUser,
		Provider: models.ProviderLocal,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return nil, apperr.ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// Logout clears the stored refresh token. Repeating it is harmless.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.ErrInvalidID
	}
	if err := m.users.SetRefreshToken(ctx, oid, ""); err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Refresh                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Refresh exchanges a refresh token for a new pair. The token must verify
// and must still be the value stored on an active user; the swap is a
// compare-and-swap so two concurrent refreshes cannot both succeed.
func (m *Manager) Refresh(ctx context.Context, presented string) (*Result, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, apperr.ErrRefreshMissing
	}
	if _, err := m.signer.VerifyRefresh(presented); err != nil {
		return nil, apperr.ErrRefreshInvalid
	}

	u, err := m.users.FindByRefreshToken(ctx, presented)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.ErrRefreshInvalid
		}
		return nil, fmt.Errorf("find user by refresh token: %w", err)
	}

	res, err := m.pair(u, tokens.SubjectRefresh)
	if err != nil {
		return nil, err
	}
	if err := m.users.RotateRefreshToken(ctx, u.ID, presented, res.RefreshToken); err != nil {
		if errors.Is(err, userstore.ErrTokenMismatch) {
			return nil, apperr.ErrRefreshInvalid
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return res, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Password reset                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// ForgotPassword stores a fresh reset token and mails the link. Unknown and
// soft-deleted emails return apperr.ErrUserNotFound; HTTP callers must not
// expose the difference.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	u, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return fmt.Errorf("find user by email: %w", err)
	}
	if u.IsDeleted {
		return apperr.ErrUserNotFound
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := m.users.SetResetToken(ctx, u.ID, token, m.now().Add(m.cfg.ResetExpiry)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := m.resetLink(token)
	if m.mail == nil {
		m.log.Warn("no mailer configured; reset link not sent", zap.String("email", u.Email))
		return nil
	}
	if err := m.mail.SendPasswordReset(ctx, u.Email, u.Name, link, m.cfg.ResetExpiry); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// ResetPassword consumes a valid reset token and stores the new password.
// The token is single-use even under concurrent requests. The live refresh
// token is revoked with it.
func (m *Manager) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return apperr.BadRequest("new password is required")
	}
	token = strings.TrimSpace(token)
	u, err := m.users.FindByResetToken(ctx, token, m.now())
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return apperr.ErrTokenInvalidOrExpired
		}
		return fmt.Errorf("find user by reset token: %w", err)
	}
	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := m.users.ResetPassword(ctx, u.ID, token, hash, m.now()); err != nil {
		if errors.Is(err, userstore.ErrTokenMismatch) {
			return apperr.ErrTokenInvalidOrExpired
		}
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (m *Manager) resetLink(token string) string {
	base := strings.TrimRight(m.cfg.FrontendURL, "/")
	return base + "/reset-password?token=" + url.QueryEscape(token)
}

// newResetToken returns 32 random bytes hex-encoded.
func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Social login                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SocialLogin signs in (creating on first sight) the account matching a
// provider identity.
func (m *Manager) SocialLogin(ctx context.Context, id social.Identity, provider string) (*Result, error) {
	if provider == models.ProviderLocal || !models.IsValidProvider(provider) {
		return nil, apperr.BadRequest("unsupported login provider")
	}
	if normalize.Email(id.Email) == "" {
		return nil, apperr.BadRequest("provider did not return an email")
	}

	u, err := m.users.FindByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if u.IsDeleted {
			return nil, apperr.New(apperr.KindForbidden, apperr.ErrDeletedOrBanned.Message)
		}
	case errors.Is(err, userstore.ErrNotFound):
		created, cerr := m.users.Create(ctx, models.User{
			Email:    id.Email,
			Name:     id.Name,
			Avatar:   id.Avatar,
			Role:     models.RoleUser,
			Provider: provider,
		})
		if cerr != nil {
			return nil, fmt.Errorf("create social user: %w", cerr)
		}
		u = &created
	default:
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	return m.issue(ctx, u, tokens.SubjectSocial(provider))
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// issue signs a pair and overwrites the stored refresh token.
func (m *Manager) issue(ctx context.Context, u *models.User, subject string) (*Result, error) {
	res, err := m.pair(u, subject)
	if err != nil {
		return nil, err
	}
	if err := m.users.SetRefreshToken(ctx, u.ID, res.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return res, nil
}

func (m *Manager) pair(u *models.User, subject string) (*Result, error) {
	p := tokens.Payload{
		Subject: subject,
		UserID:  u.ID.Hex(),
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
	}
	access, err := m.signer.SignAccess(p)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.signer.SignRefresh(p)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	pub := *u
	pub.Password = ""
	pub.RefreshToken = ""
	pub.ResetToken = ""
	pub.ResetTokenExpiry = nil
	return &Result{AccessToken: access, RefreshToken: refresh, User: &pub}, nil
}
