// internal/app/features/auth/login.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/authcookie"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/session"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

type registerResponse struct {
	ID        string    `json:"_id"`
	CreatedAt time.Time `json:"created_at"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/login                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		respond.Error(w, h.Log, apperr.BadRequest("email and password are required"))
		return
	}

	if !h.Limiter.Check(r, email) {
		h.Log.Warn("login rate limited",
			zap.String("email", email),
			zap.String("ip", r.RemoteAddr))
		h.AuditLog.LoginRateLimited(r.Context(), r, email)
		respond.Error(w, h.Log, apperr.ErrTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Sessions.Login(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidCredentials):
			h.AuditLog.LoginFailed(r.Context(), r, email, "invalid credentials")
		case errors.Is(err, apperr.ErrDeletedOrBanned):
			h.AuditLog.LoginFailed(r.Context(), r, email, "account locked")
		}
		respond.Error(w, h.Log, err)
		return
	}
	h.Limiter.ResetEmail(email)

	body, err := h.issue(w, res)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.LoginSuccess(r.Context(), r, body.User.ID, models.ProviderLocal)
	respond.OK(w, "Login successful", body)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/register                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if normalize.Name(req.Name) == "" {
		respond.Error(w, h.Log, apperr.BadRequest("name is required"))
		return
	}
	if req.Age < 0 {
		respond.Error(w, h.Log, apperr.BadRequest("age must not be negative"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Sessions.Register(ctx, session.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Registered(r.Context(), r, u.ID.Hex())
	respond.Created(w, "Registration successful", registerResponse{ID: u.ID.Hex(), CreatedAt: u.CreatedAt})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/refresh                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	presented, err := h.Cookie.Read(r)
	if errors.Is(err, authcookie.ErrInvalid) {
		h.AuditLog.RefreshRejected(r.Context(), r, "tampered cookie")
		h.Cookie.Clear(w)
		respond.Error(w, h.Log, apperr.ErrRefreshInvalid)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Sessions.Refresh(ctx, presented)
	if err != nil {
		if errors.Is(err, apperr.ErrRefreshInvalid) {
			h.AuditLog.RefreshRejected(r.Context(), r, "stale or unknown token")
			h.Cookie.Clear(w)
		}
		respond.Error(w, h.Log, err)
		return
	}

	body, err := h.issue(w, res)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.OK(w, "Token refreshed", body)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/logout                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apperr.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Sessions.Logout(ctx, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.Cookie.Clear(w)
	h.AuditLog.Logout(r.Context(), r, u.ID)
	respond.OK(w, "Logout successful", nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/account                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, h.Log, apperr.ErrUnauthorized)
		return
	}
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		respond.Error(w, h.Log, apperr.ErrInvalidID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.FindActiveByID(ctx, oid)
	if err != nil {
		// Missing here means deleted between the bearer check and now.
		respond.Error(w, h.Log, apperr.ErrDeletedOrBanned)
		return
	}
	respond.OK(w, "Account loaded", map[string]any{"user": user})
}
