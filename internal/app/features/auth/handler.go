// internal/app/features/auth/handler.go
package auth

import (
	"context"
	"net/http"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/authcookie"
	"github.com/dalemusser/contenthub/internal/app/system/ratelimit"
	"github.com/dalemusser/contenthub/internal/app/system/session"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AccountReader loads the signed-in user's own record.
type AccountReader interface {
	FindActiveByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Handler serves the local credential endpoints: login, register, token
// refresh, logout, and the password reset pair.
type Handler struct {
	Sessions *session.Manager
	Users    AccountReader
	Cookie   *authcookie.Codec
	Limiter  *ratelimit.AttemptLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler creates an auth Handler. A nil limiter gets the default limits.
func NewHandler(
	sessions *session.Manager,
	users *userstore.Store,
	cookie *authcookie.Codec,
	limiter *ratelimit.AttemptLimiter,
	audit *auditlog.Logger,
	logger *zap.Logger,
) *Handler {
	if limiter == nil {
		limiter = ratelimit.NewAttemptLimiter()
	}
	return &Handler{
		Sessions: sessions,
		Users:    users,
		Cookie:   cookie,
		Limiter:  limiter,
		AuditLog: audit,
		Log:      logger,
	}
}

// userSummary is the identity block returned with a fresh token pair.
type userSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	User        userSummary `json:"user"`
}

// issue stores the refresh token in the cookie and builds the response body.
func (h *Handler) issue(w http.ResponseWriter, res *session.Result) (tokenResponse, error) {
	if err := h.Cookie.Set(w, res.RefreshToken); err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken: res.AccessToken,
		User: userSummary{
			ID:    res.User.ID.Hex(),
			Name:  res.User.Name,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
	}, nil
}
