// internal/app/system/auditlog/logger_test.go
package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/contenthub/internal/app/store/audit"
	"github.com/dalemusser/contenthub/internal/app/system/auditlog"
	"github.com/dalemusser/contenthub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, primitive.NewObjectID().Hex(), "local")
	logger.Logout(ctx, req, primitive.NewObjectID().Hex())
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  bool
		wantLog bool
	}{
		{auditlog.All, true, true},
		{auditlog.DB, true, false},
		{auditlog.Log, false, true},
		{auditlog.Off, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			core, logs := observer.New(zap.InfoLevel)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: tt.setting, Admin: auditlog.Off})

			userID := primitive.NewObjectID()
			req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
			req.RemoteAddr = "203.0.113.9:5555"
			logger.LoginSuccess(ctx, req, userID.Hex(), "local")

			events, err := store.GetByUser(ctx, userID, 10)
			if err != nil {
				t.Fatalf("GetByUser failed: %v", err)
			}
			if got := len(events) == 1; got != tt.wantDB {
				t.Errorf("stored: got %d events, want stored=%v", len(events), tt.wantDB)
			}
			if tt.wantDB && len(events) == 1 {
				if events[0].IP != "203.0.113.9" {
					t.Errorf("ip: got %q", events[0].IP)
				}
				if events[0].Details["provider"] != "local" {
					t.Errorf("provider detail: got %v", events[0].Details)
				}
			}
			if got := logs.FilterMessage("audit event").Len() == 1; got != tt.wantLog {
				t.Errorf("logged: got %d entries, want logged=%v", logs.Len(), tt.wantLog)
			}
		})
	}
}

func TestLogger_AdminEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.Off, Admin: auditlog.DB})
	req := httptest.NewRequest("DELETE", "/api/v1/users/soft-delete", nil)

	actor := primitive.NewObjectID()
	target := primitive.NewObjectID()
	logger.UsersSoftDeleted(ctx, req, actor.Hex(), []string{target.Hex()}, 1)
	logger.UsersHardDeleted(ctx, req, actor.Hex(), []string{primitive.NewObjectID().Hex(), "bad"}, 1)
	logger.LoginFailed(ctx, req, "x@example.com", "invalid credentials")

	events, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAdmin})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 admin events, got %d", len(events))
	}

	soft, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventUserSoftDeleted})
	if err != nil || len(soft) != 1 {
		t.Fatalf("soft-delete event: %v, %d", err, len(soft))
	}
	ev := soft[0]
	if ev.ActorID == nil || *ev.ActorID != actor {
		t.Errorf("actor: got %v", ev.ActorID)
	}
	if ev.UserID == nil || *ev.UserID != target {
		t.Errorf("target: got %v", ev.UserID)
	}
	if ev.Details["affected"] != "1" {
		t.Errorf("details: %v", ev.Details)
	}

	auth, _ := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if len(auth) != 0 {
		t.Errorf("auth events should be off, got %d", len(auth))
	}
}
