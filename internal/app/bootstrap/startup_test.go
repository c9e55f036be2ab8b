// internal/app/bootstrap/startup_test.go
package bootstrap

import (
	"context"
	"strings"
	"testing"
	"time"

	userstore "github.com/dalemusser/contenthub/internal/app/store/users"
	"github.com/dalemusser/contenthub/internal/app/system/password"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"github.com/dalemusser/contenthub/internal/testutil"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func TestEnsureAdmin_CreatesNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	if err := ensureAdmin(ctx, users, " Admin@Test.com ", "s3cret-pass", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := users.FindByEmail(ctx, "admin@test.com")
	if err != nil {
		t.Fatalf("failed to find created admin: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
	if u.Provider != models.ProviderLocal {
		t.Errorf("provider = %q, want local", u.Provider)
	}
	if !password.Verify("s3cret-pass", u.Password) {
		t.Error("stored password does not verify")
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	for i := 0; i < 2; i++ {
		if err := ensureAdmin(ctx, users, "admin@test.com", "s3cret-pass", testLogger()); err != nil {
			t.Fatalf("ensureAdmin run %d failed: %v", i+1, err)
		}
	}

	n, err := db.Collection("users").CountDocuments(ctx, map[string]any{"email": "admin@test.com"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("admin count = %d, want 1", n)
	}
}

func TestEnsureAdmin_PromotesExisting(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	existing := fx.CreateUser(ctx, "Existing", "existing@test.com", models.RoleUser, "original")

	users := userstore.New(db)
	// No password needed when the account already exists.
	if err := ensureAdmin(ctx, users, "existing@test.com", "", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := users.GetByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
	if !password.Verify("original", u.Password) {
		t.Error("existing password should be left untouched")
	}
}

func TestEnsureAdmin_RestoresDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	gone := fx.CreateDeletedUser(ctx, "Gone", "gone@test.com")

	users := userstore.New(db)
	if err := ensureAdmin(ctx, users, "gone@test.com", "whatever", testLogger()); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}

	u, err := users.FindActiveByID(ctx, gone.ID)
	if err != nil {
		t.Fatalf("admin should be active again: %v", err)
	}
	if u.Role != models.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
}

func TestEnsureAdmin_Skips(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)

	if err := ensureAdmin(ctx, users, "  ", "pw", testLogger()); err != nil {
		t.Fatalf("blank email should be a no-op, got %v", err)
	}
	n, _ := db.Collection("users").CountDocuments(ctx, map[string]any{})
	if n != 0 {
		t.Errorf("users = %d, want 0", n)
	}

	err := ensureAdmin(ctx, users, "new@test.com", "", testLogger())
	if err == nil || !strings.Contains(err.Error(), "admin_password") {
		t.Errorf("err = %v, want missing admin_password error", err)
	}
}

func TestCleanupTasks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateUser(ctx, "Reset", "reset@test.com", models.RoleUser, "pw")
	past := time.Now().UTC().Add(-time.Hour)
	_, err := db.Collection("users").UpdateByID(ctx, u.ID, map[string]any{
		"$set": map[string]any{"reset_token": "stale", "reset_token_expiry": past},
	})
	if err != nil {
		t.Fatalf("seed reset token: %v", err)
	}

	tasks := cleanupTasks(DBDeps{MongoDatabase: db})
	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(tasks))
	}

	var cleared int64
	for _, task := range tasks {
		n, err := task.Run(context.Background(), time.Now().UTC())
		if err != nil {
			t.Fatalf("%s: %v", task.Name, err)
		}
		if task.Name == "expired_reset_tokens" {
			cleared = n
		}
	}
	if cleared != 1 {
		t.Errorf("expired_reset_tokens cleared %d, want 1", cleared)
	}
}

func validConfig() AppConfig {
	return AppConfig{
		MongoURI:         "mongodb://localhost:27017",
		MongoDatabase:    "contenthub",
		JWTAccessSecret:  "access-secret",
		JWTAccessExpire:  15 * time.Minute,
		JWTRefreshSecret: "refresh-secret",
		JWTRefreshExpire: 7 * 24 * time.Hour,
		CookieHashKey:    strings.Repeat("k", 32),
		AllowedOrigins:   []string{"http://localhost:3000"},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		env    string
		mutate func(*AppConfig)
		want   string
	}{
		{"valid", "dev", func(*AppConfig) {}, ""},
		{"missing secrets", "dev", func(c *AppConfig) { c.JWTRefreshSecret = "" }, "are required"},
		{"same secrets", "dev", func(c *AppConfig) { c.JWTRefreshSecret = c.JWTAccessSecret }, "must differ"},
		{"zero expiry", "dev", func(c *AppConfig) { c.JWTAccessExpire = 0 }, "must be positive"},
		{"short hash key", "dev", func(c *AppConfig) { c.CookieHashKey = "short" }, "cookie_hash_key"},
		{"bad block key", "dev", func(c *AppConfig) { c.CookieBlockKey = "abc" }, "cookie_block_key"},
		{"bad redis url", "dev", func(c *AppConfig) { c.RedisURL = "ftp://nope" }, "redis_url"},
		{"telegram half set", "dev", func(c *AppConfig) { c.TelegramBotToken = "123:abc" }, "set together"},
		{"no origins", "dev", func(c *AppConfig) { c.AllowedOrigins = nil }, "allowed_origins"},
		{"dev key in prod", "prod", func(c *AppConfig) { c.CookieHashKey = "dev-only-change-me-please-0123456789ABCDEF" }, "changed in production"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(&config.CoreConfig{Env: tt.env}, cfg, testLogger())
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{" a , b ,, c ", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := splitList(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
