// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for ContentHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_access_secret, etc.
//   - Environment variables: CONTENTHUB_MONGO_URI, CONTENTHUB_JWT_ACCESS_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_access_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "contenthub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Redis file-path cache
	{Name: "redis_url", Default: "", Desc: "Redis URL for the Telegram file-path cache (blank disables)"},
	{Name: "file_cache_ttl", Default: "50m", Desc: "How long resolved Telegram file paths are cached"},

	// JWT
	{Name: "jwt_access_secret", Default: "", Desc: "Access token signing secret"},
	{Name: "jwt_access_expire", Default: "15m", Desc: "Access token lifetime (e.g., 15m, 1h)"},
	{Name: "jwt_refresh_secret", Default: "", Desc: "Refresh token signing secret (must differ from access secret)"},
	{Name: "jwt_refresh_expire", Default: "168h", Desc: "Refresh token lifetime"},

	// Refresh cookie
	{Name: "cookie_hash_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Refresh cookie HMAC key (at least 32 bytes)"},
	{Name: "cookie_block_key", Default: "", Desc: "Refresh cookie encryption key (16, 24 or 32 bytes; blank disables)"},
	{Name: "cookie_domain", Default: "", Desc: "Refresh cookie domain (blank means current host)"},

	// Password reset and frontend
	{Name: "reset_password_expire", Default: "15m", Desc: "Password reset link lifetime"},
	{Name: "frontend_url", Default: "http://localhost:3000", Desc: "Frontend base URL for email links and redirects"},
	{Name: "login_social_return_url", Default: "http://localhost:3000/login-social?token=", Desc: "Where social logins land; the access token is appended"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_callback_url", Default: "http://localhost:8080/api/v1/auth/google/callback", Desc: "Google OAuth2 redirect URL"},

	// Facebook OAuth configuration
	{Name: "facebook_client_id", Default: "", Desc: "Facebook OAuth2 app ID"},
	{Name: "facebook_client_secret", Default: "", Desc: "Facebook OAuth2 app secret"},
	{Name: "facebook_callback_url", Default: "http://localhost:8080/api/v1/auth/facebook/callback", Desc: "Facebook OAuth2 redirect URL"},

	// Email
	{Name: "sendgrid_api_key", Default: "", Desc: "SendGrid API key (preferred over SMTP when set)"},
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@contenthub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "ContentHub", Desc: "From display name"},

	// Telegram
	{Name: "telegram_bot_token", Default: "", Desc: "Telegram bot token used for image storage"},
	{Name: "telegram_chat_id", Default: "", Desc: "Telegram chat that stores uploaded images"},

	// CORS
	{Name: "allowed_origins", Default: "http://localhost:3000,http://localhost:5173", Desc: "Comma-separated origins for CORS and image referer checks"},
	{Name: "upload_rate_per_minute", Default: 30, Desc: "Upload requests allowed per IP per minute"},

	// Admin bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the admin user (promotes/creates on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password used when the admin user has to be created"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "cleanup_interval", Default: "10m", Desc: "How often expired reset tokens and OAuth states are purged"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CONTENTHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CONTENTHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL:     appValues.String("redis_url"),
		FileCacheTTL: appValues.Duration("file_cache_ttl", 50*time.Minute),

		JWTAccessSecret:  appValues.String("jwt_access_secret"),
		JWTAccessExpire:  appValues.Duration("jwt_access_expire", 15*time.Minute),
		JWTRefreshSecret: appValues.String("jwt_refresh_secret"),
		JWTRefreshExpire: appValues.Duration("jwt_refresh_expire", 7*24*time.Hour),

		CookieHashKey:  appValues.String("cookie_hash_key"),
		CookieBlockKey: appValues.String("cookie_block_key"),
		CookieDomain:   appValues.String("cookie_domain"),

		ResetPasswordExpire:  appValues.Duration("reset_password_expire", 15*time.Minute),
		FrontendURL:          strings.TrimRight(appValues.String("frontend_url"), "/"),
		LoginSocialReturnURL: appValues.String("login_social_return_url"),

		GoogleClientID:       appValues.String("google_client_id"),
		GoogleClientSecret:   appValues.String("google_client_secret"),
		GoogleCallbackURL:    appValues.String("google_callback_url"),
		FacebookClientID:     appValues.String("facebook_client_id"),
		FacebookClientSecret: appValues.String("facebook_client_secret"),
		FacebookCallbackURL:  appValues.String("facebook_callback_url"),

		SendGridAPIKey: appValues.String("sendgrid_api_key"),
		MailSMTPHost:   appValues.String("mail_smtp_host"),
		MailSMTPPort:   appValues.Int("mail_smtp_port"),
		MailSMTPUser:   appValues.String("mail_smtp_user"),
		MailSMTPPass:   appValues.String("mail_smtp_pass"),
		MailFrom:       appValues.String("mail_from"),
		MailFromName:   appValues.String("mail_from_name"),

		TelegramBotToken: appValues.String("telegram_bot_token"),
		TelegramChatID:   appValues.String("telegram_chat_id"),

		AllowedOrigins:      splitList(appValues.String("allowed_origins")),
		UploadRatePerMinute: appValues.Int("upload_rate_per_minute"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		CleanupInterval: appValues.Duration("cleanup_interval", 10*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// splitList turns "a, b,,c" into [a b c].
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Every problem is reported at once so a broken deployment is fixed in
// one pass.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}

	switch {
	case appCfg.JWTAccessSecret == "" || appCfg.JWTRefreshSecret == "":
		errs = append(errs, errors.New("jwt_access_secret and jwt_refresh_secret are required"))
	case appCfg.JWTAccessSecret == appCfg.JWTRefreshSecret:
		errs = append(errs, errors.New("jwt_access_secret and jwt_refresh_secret must differ"))
	}
	if appCfg.JWTAccessExpire <= 0 || appCfg.JWTRefreshExpire <= 0 {
		errs = append(errs, errors.New("jwt_access_expire and jwt_refresh_expire must be positive"))
	}

	if len(appCfg.CookieHashKey) < 32 {
		errs = append(errs, errors.New("cookie_hash_key must be at least 32 bytes"))
	}
	if n := len(appCfg.CookieBlockKey); n != 0 && n != 16 && n != 24 && n != 32 {
		errs = append(errs, errors.New("cookie_block_key must be 16, 24 or 32 bytes"))
	}

	if appCfg.RedisURL != "" {
		if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid redis_url: %w", err))
		}
	}

	if (appCfg.TelegramBotToken == "") != (appCfg.TelegramChatID == "") {
		errs = append(errs, errors.New("telegram_bot_token and telegram_chat_id must be set together"))
	}
	if len(appCfg.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("allowed_origins must list at least one origin"))
	}

	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.CookieHashKey, "dev-only") {
		errs = append(errs, errors.New("cookie_hash_key must be changed in production"))
	}

	return errors.Join(errs...)
}
