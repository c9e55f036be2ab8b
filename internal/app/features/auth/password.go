// internal/app/features/auth/password.go
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/respond"
	"github.com/dalemusser/contenthub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// forgotMessage is sent whether or not the address is known.
const forgotMessage = "If that email is registered, a reset link has been sent"

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/forgot-password                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" {
		respond.Error(w, h.Log, apperr.BadRequest("email is required"))
		return
	}
	if !h.Limiter.Check(r, email) {
		respond.Error(w, h.Log, apperr.ErrTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err := h.Sessions.ForgotPassword(ctx, email)
	switch {
	case err == nil:
		h.AuditLog.PasswordResetRequested(r.Context(), r, email, true)
	case errors.Is(err, apperr.ErrUserNotFound):
		h.AuditLog.PasswordResetRequested(r.Context(), r, email, false)
	default:
		// Same reply as the other branches so the response never reveals
		// whether the address has an account.
		h.Log.Error("password reset request failed", zap.String("email", email), zap.Error(err))
		h.AuditLog.PasswordResetRequested(r.Context(), r, email, true)
	}
	respond.OK(w, forgotMessage, nil)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/reset-password                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := respond.DecodeJSON(r, &req); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Sessions.ResetPassword(ctx, req.Token, req.Password); err != nil {
		h.AuditLog.PasswordResetCompleted(r.Context(), r, false, apperr.From(err).Message)
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.PasswordResetCompleted(r.Context(), r, true, "")
	respond.OK(w, "Password reset successful", nil)
}
