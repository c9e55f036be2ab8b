// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	authfeature "github.com/dalemusser/contenthub/internal/app/features/auth"
	"github.com/dalemusser/contenthub/internal/app/features/authfacebook"
	"github.com/dalemusser/contenthub/internal/app/features/authgoogle"
	healthfeature "github.com/dalemusser/contenthub/internal/app/features/health"
	imagesfeature "github.com/dalemusser/contenthub/internal/app/features/images"
	uploadfeature "github.com/dalemusser/contenthub/internal/app/features/upload"
	usersfeature "github.com/dalemusser/contenthub/internal/app/features/users"
	"github.com/dalemusser/contenthub/internal/app/store/audit"
	imagestore "github.com/dalemusser/contenthub/internal/app/store/images"
	"github.com/dalemusser/contenthub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/app/system/auth"
	"github.com/dalemusser/contenthub/internal/app/system/authcookie"
	"github.com/dalemusser/contenthub/internal/app/system/filecache"
	"github.com/dalemusser/contenthub/internal/app/system/mailer"
	"github.com/dalemusser/contenthub/internal/app/system/oauthflow"
	"github.com/dalemusser/contenthub/internal/app/system/ratelimit"
	"github.com/dalemusser/contenthub/internal/app/system/session"
	"github.com/dalemusser/contenthub/internal/app/system/telegram"
	"github.com/dalemusser/contenthub/internal/app/system/tokens"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// filePathPrefix namespaces cached Telegram file paths in Redis.
const filePathPrefix = "contenthub:filepath:"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: any DB or backend clients bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// ContentHub is a JSON API. The router applies CORS, loads the bearer-token
// user into the request context, and mounts every feature under /api/v1.
// Image hosting is only mounted when a Telegram bot is configured.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	signer, err := tokens.NewSigner(tokens.Config{
		AccessSecret:  appCfg.JWTAccessSecret,
		AccessTTL:     appCfg.JWTAccessExpire,
		RefreshSecret: appCfg.JWTRefreshSecret,
		RefreshTTL:    appCfg.JWTRefreshExpire,
	})
	if err != nil {
		logger.Error("token signer init failed", zap.Error(err))
		return nil, err
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	cookie, err := authcookie.New(appCfg.CookieHashKey, appCfg.CookieBlockKey, appCfg.CookieDomain, secure, appCfg.JWTRefreshExpire)
	if err != nil {
		logger.Error("refresh cookie init failed", zap.Error(err))
		return nil, err
	}

	// Password reset mail is optional; without a backend the reset link is
	// only logged.
	var resetMail session.ResetMailer
	m, err := mailer.New(mailer.Config{
		SendGridAPIKey: appCfg.SendGridAPIKey,
		SMTPHost:       appCfg.MailSMTPHost,
		SMTPPort:       appCfg.MailSMTPPort,
		SMTPUser:       appCfg.MailSMTPUser,
		SMTPPass:       appCfg.MailSMTPPass,
		From:           appCfg.MailFrom,
		FromName:       appCfg.MailFromName,
		SiteName:       "ContentHub",
	}, logger)
	switch {
	case errors.Is(err, mailer.ErrNotConfigured):
		logger.Warn("no mail backend configured; password reset emails are disabled")
	case err != nil:
		logger.Error("mailer init failed", zap.Error(err))
		return nil, err
	default:
		resetMail = m
	}

	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	users := userstore.New(db)
	sessions := session.NewManager(users, signer, resetMail, session.Config{
		ResetExpiry: appCfg.ResetPasswordExpire,
		FrontendURL: appCfg.FrontendURL,
	}, logger)

	// Role changes and deletions take effect on the next request because
	// LoadUser re-reads the user behind every access token.
	sm := auth.New(signer, userstore.NewFetcher(db), logger)

	paths := filecache.New(deps.Redis, filePathPrefix, appCfg.FileCacheTTL, logger)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global auth middleware: loads the bearer-token user into context.
	r.Use(sm.LoadUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, paths, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api/v1", func(api chi.Router) {
		api.Mount("/health", healthfeature.Routes(healthHandler))

		// Authentication
		authHandler := authfeature.NewHandler(sessions, users, cookie, ratelimit.NewAttemptLimiter(), auditLog, logger)
		api.Mount("/auth", authfeature.Routes(authHandler, sm))

		oauth := oauthflow.Deps{
			States:     oauthstate.New(db),
			Sessions:   sessions,
			Cookie:     cookie,
			Audit:      auditLog,
			SuccessURL: appCfg.LoginSocialReturnURL,
			FailureURL: appCfg.FrontendURL + "/login",
			Log:        logger,
		}
		googleHandler := authgoogle.NewHandler(oauth, appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.GoogleCallbackURL)
		if !googleHandler.IsConfigured() {
			logger.Info("google login not configured; /auth/google redirects with an error")
		}
		api.Mount("/auth/google", authgoogle.Routes(googleHandler))

		facebookHandler := authfacebook.NewHandler(oauth, appCfg.FacebookClientID, appCfg.FacebookClientSecret, appCfg.FacebookCallbackURL)
		if !facebookHandler.IsConfigured() {
			logger.Info("facebook login not configured; /auth/facebook redirects with an error")
		}
		api.Mount("/auth/facebook", authfacebook.Routes(facebookHandler))

		// User management
		usersHandler := usersfeature.NewHandler(users, auditLog, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler, sm))

		if !appCfg.TelegramConfigured() {
			logger.Warn("telegram not configured; image hosting routes are disabled")
			return
		}
		bot, err := telegram.New(telegram.Config{
			Token:  appCfg.TelegramBotToken,
			ChatID: appCfg.TelegramChatID,
		})
		if err != nil {
			logger.Error("telegram client init failed; image hosting routes are disabled", zap.Error(err))
			return
		}

		images := imagestore.New(db)

		imagesHandler := imagesfeature.NewHandler(images, bot, paths, appCfg.AllowedOrigins, auditLog, logger)
		api.Mount("/images", imagesfeature.Routes(imagesHandler, sm))

		uploadHandler := uploadfeature.NewHandler(images, bot, appCfg.UploadRatePerMinute, auditLog, logger)
		api.Mount("/upload-telegram", uploadfeature.Routes(uploadHandler, sm))
	})

	return r, nil
}
