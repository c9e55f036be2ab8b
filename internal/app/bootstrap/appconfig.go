// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like ports, TLS,
// logging level and request body limits. Everything specific to ContentHub
// lives here and is passed to most lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis caches resolved Telegram file paths. Blank disables the cache.
	RedisURL     string
	FileCacheTTL time.Duration

	// JWT configuration. Access and refresh tokens use different secrets.
	JWTAccessSecret  string
	JWTAccessExpire  time.Duration
	JWTRefreshSecret string
	JWTRefreshExpire time.Duration

	// Refresh cookie integrity (securecookie). Block key is optional.
	CookieHashKey  string
	CookieBlockKey string
	CookieDomain   string

	// Password reset and frontend redirects
	ResetPasswordExpire  time.Duration
	FrontendURL          string // e.g., http://localhost:3000
	LoginSocialReturnURL string // access token is appended verbatim

	// Social login
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleCallbackURL    string
	FacebookClientID     string
	FacebookClientSecret string
	FacebookCallbackURL  string

	// Email: SendGrid when a key is set, SMTP otherwise
	SendGridAPIKey string
	MailSMTPHost   string
	MailSMTPPort   int
	MailSMTPUser   string
	MailSMTPPass   string
	MailFrom       string
	MailFromName   string

	// Telegram chat used as image storage
	TelegramBotToken string
	TelegramChatID   string

	// CORS and image referer allow-list
	AllowedOrigins []string

	// Upload throttling per client IP
	UploadRatePerMinute int

	// Admin bootstrap (creates or promotes on startup)
	AdminEmail    string
	AdminPassword string

	// Audit logging: 'all', 'db', 'log', or 'off'
	AuditLogAuth  string
	AuditLogAdmin string

	// Background cleanup of expired reset tokens and OAuth states
	CleanupInterval time.Duration
}

// TelegramConfigured reports whether image hosting can be enabled.
func (c AppConfig) TelegramConfigured() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}
