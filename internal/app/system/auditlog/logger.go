// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/contenthub/internal/app/store/audit"
	"github.com/dalemusser/contenthub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for a category of events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off" // disabled
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, refresh, password reset).
	Auth string
	// Admin controls logging for admin actions (user lifecycle, import, image management).
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers and tests can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if (setting == All || setting == DB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType, userID string, success bool, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		UserID:    oid(userID),
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
		Reason:    reason,
		Details:   details,
	})
}

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType, actorID, targetID string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    oid(targetID),
		ActorID:   oid(actorID),
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// --- Authentication Events ---

// LoginSuccess logs a successful login with any provider.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, provider string) {
	l.auth(ctx, r, audit.EventLoginSuccess, userID, true, "", map[string]string{"provider": provider})
}

// LoginFailed logs a rejected login attempt. The email is the one attempted.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	l.auth(ctx, r, audit.EventLoginFailed, "", false, reason, map[string]string{"attempted_email": email})
}

// LoginRateLimited logs a login or password-reset attempt refused by the limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	l.auth(ctx, r, audit.EventLoginRateLimited, "", false, "too many attempts", map[string]string{"attempted_email": email})
}

// SocialLogin logs a completed OAuth login.
func (l *Logger) SocialLogin(ctx context.Context, r *http.Request, userID, provider string) {
	l.auth(ctx, r, audit.EventSocialLogin, userID, true, "", map[string]string{"provider": provider})
}

// Registered logs a self-service sign-up.
func (l *Logger) Registered(ctx context.Context, r *http.Request, userID string) {
	l.auth(ctx, r, audit.EventRegistered, userID, true, "", nil)
}

// Logout logs a logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	l.auth(ctx, r, audit.EventLogout, userID, true, "", nil)
}

// RefreshRejected logs a refresh token that was missing, invalid, or already rotated.
func (l *Logger) RefreshRejected(ctx context.Context, r *http.Request, reason string) {
	l.auth(ctx, r, audit.EventRefreshRejected, "", false, reason, nil)
}

// PasswordResetRequested logs a forgot-password request. found records
// whether a live account matched; the client never sees it.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, email string, found bool) {
	l.auth(ctx, r, audit.EventPasswordResetRequest, "", found, "", map[string]string{
		"email": email,
		"found": strconv.FormatBool(found),
	})
}

// PasswordResetCompleted logs a reset-token redemption.
func (l *Logger) PasswordResetCompleted(ctx context.Context, r *http.Request, success bool, reason string) {
	l.auth(ctx, r, audit.EventPasswordResetComplete, "", success, reason, nil)
}

// --- Admin Events ---

// UserUpdated logs a profile or admin edit. fields lists what changed.
func (l *Logger) UserUpdated(ctx context.Context, r *http.Request, actorID, targetID string, fields []string) {
	l.admin(ctx, r, audit.EventUserUpdated, actorID, targetID, map[string]string{
		"fields": strings.Join(fields, ","),
	})
}

// UsersSoftDeleted logs a move to the trash.
func (l *Logger) UsersSoftDeleted(ctx context.Context, r *http.Request, actorID string, ids []string, affected int64) {
	l.admin(ctx, r, audit.EventUserSoftDeleted, actorID, single(ids), bulk(ids, affected))
}

// UsersRestored logs a restore from the trash.
func (l *Logger) UsersRestored(ctx context.Context, r *http.Request, actorID string, ids []string, affected int64) {
	l.admin(ctx, r, audit.EventUserRestored, actorID, single(ids), bulk(ids, affected))
}

// UsersHardDeleted logs a permanent removal.
func (l *Logger) UsersHardDeleted(ctx context.Context, r *http.Request, actorID string, ids []string, affected int64) {
	l.admin(ctx, r, audit.EventUserHardDeleted, actorID, single(ids), bulk(ids, affected))
}

// UsersImported logs a spreadsheet import.
func (l *Logger) UsersImported(ctx context.Context, r *http.Request, actorID string, inserted, duplicates, invalid int) {
	l.admin(ctx, r, audit.EventUsersImported, actorID, "", map[string]string{
		"inserted":   strconv.Itoa(inserted),
		"duplicates": strconv.Itoa(duplicates),
		"invalid":    strconv.Itoa(invalid),
	})
}

// ImagesUploaded logs stored uploads by slug.
func (l *Logger) ImagesUploaded(ctx context.Context, r *http.Request, actorID string, slugs []string) {
	l.admin(ctx, r, audit.EventImagesUploaded, actorID, "", map[string]string{
		"slugs": strings.Join(slugs, ","),
	})
}

// ImagesDeleted logs image removal by slug.
func (l *Logger) ImagesDeleted(ctx context.Context, r *http.Request, actorID string, slugs []string, affected int64) {
	l.admin(ctx, r, audit.EventImagesDeleted, actorID, "", map[string]string{
		"slugs":    strings.Join(slugs, ","),
		"affected": strconv.FormatInt(affected, 10),
	})
}

// oid parses a hex id, returning nil for anything that is not one.
func oid(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

// single returns the target id when exactly one user was addressed.
func single(ids []string) string {
	if len(ids) == 1 {
		return ids[0]
	}
	return ""
}

func bulk(ids []string, affected int64) map[string]string {
	return map[string]string{
		"requested": strconv.Itoa(len(ids)),
		"affected":  strconv.FormatInt(affected, 10),
		"ids":       strings.Join(ids, ","),
	}
}
