// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/contenthub/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/normalize"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/app/system/workers"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// cleanupWorker is started in Startup and stopped in Shutdown.
var cleanupWorker *workers.Cleanup

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)

	if err := ensureAdmin(ctx, users, appCfg.AdminEmail, appCfg.AdminPassword, logger); err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}

	interval := appCfg.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	cleanupWorker = workers.NewCleanup(logger, interval, cleanupTasks(deps)...)
	cleanupWorker.Start()
	return nil
}

// cleanupTasks lists the periodic housekeeping run by the cleanup worker.
func cleanupTasks(deps DBDeps) []workers.Task {
	users := userstore.New(deps.MongoDatabase)
	states := oauthstate.New(deps.MongoDatabase)
	return []workers.Task{
		{Name: "expired_reset_tokens", Run: users.ClearExpiredResetTokens},
		{Name: "expired_oauth_states", Run: func(ctx context.Context, _ time.Time) (int64, error) {
			return states.CleanupExpired(ctx)
		}},
	}
}

// ensureAdmin makes sure the configured admin account exists, is active
// and holds the admin role. A blank email skips the bootstrap.
func ensureAdmin(ctx context.Context, users *userstore.Store, email, plain string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return nil
	}

	u, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		if plain == "" {
			return errors.New("admin_password is required to create the admin user")
		}
		hash, err := password.Hash(plain)
		if err != nil {
			return err
		}
		created, err := users.Create(ctx, models.User{
			Email:    email,
			Password: hash,
			Name:     "Administrator",
			Role:     models.RoleAdmin,
			Provider: models.ProviderLocal,
		})
		if err != nil {
			return err
		}
		logger.Info("created admin user", zap.String("email", email), zap.String("id", created.ID.Hex()))
		return nil
	case err != nil:
		return err
	}

	if u.IsDeleted {
		if err := users.Restore(ctx, u.ID); err != nil {
			return err
		}
		logger.Warn("restored soft-deleted admin user", zap.String("email", email))
	}
	if u.Role != models.RoleAdmin {
		if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted user to admin", zap.String("email", email), zap.String("previous_role", u.Role))
	}
	return nil
}
