// internal/app/store/audit/store_test.go
package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/contenthub/internal/app/store/audit"
	"github.com/dalemusser/contenthub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log_FillsIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	userID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        "192.168.1.1",
		UserAgent: "TestBrowser/1.0",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if len(ev.ID) != 36 {
		t.Errorf("expected a uuid id, got %q", ev.ID)
	}
	if ev.CreatedAt.Before(before) {
		t.Errorf("created_at %v not set", ev.CreatedAt)
	}
	if ev.UserAgent != "TestBrowser/1.0" {
		t.Errorf("user agent: got %q", ev.UserAgent)
	}
}

func TestStore_Query(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := primitive.NewObjectID()
	bob := primitive.NewObjectID()
	base := time.Now().UTC().Add(-time.Hour)

	seed := []audit.Event{
		{Category: audit.CategoryAuth, EventType: audit.EventLoginSuccess, UserID: &alice, Success: true, CreatedAt: base},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginFailed, UserID: &alice, Reason: "wrong password", CreatedAt: base.Add(time.Minute)},
		{Category: audit.CategoryAuth, EventType: audit.EventLoginRateLimited, CreatedAt: base.Add(2 * time.Minute)},
		{Category: audit.CategoryAdmin, EventType: audit.EventUserSoftDeleted, UserID: &bob, ActorID: &alice, Success: true, CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, ev := range seed {
		if err := store.Log(ctx, ev); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	no := false
	since := base.Add(90 * time.Second)
	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   int
	}{
		{"all", audit.QueryFilter{}, 4},
		{"by user", audit.QueryFilter{UserID: &alice}, 2},
		{"by category", audit.QueryFilter{Category: audit.CategoryAdmin}, 1},
		{"by type", audit.QueryFilter{EventType: audit.EventLoginFailed}, 1},
		{"failures", audit.QueryFilter{Success: &no}, 2},
		{"since", audit.QueryFilter{StartTime: &since}, 2},
		{"limit", audit.QueryFilter{Limit: 3}, 3},
		{"offset", audit.QueryFilter{Offset: 3}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}

	recent, err := store.GetRecent(ctx, 1)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(recent) != 1 || recent[0].EventType != audit.EventUserSoftDeleted {
		t.Errorf("newest event should come first, got %+v", recent)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{Category: audit.CategoryAuth})
	if err != nil || n != 3 {
		t.Errorf("CountByFilter: n=%d err=%v", n, err)
	}

	failed, err := store.GetFailedLogins(ctx, base, 10)
	if err != nil {
		t.Fatalf("GetFailedLogins: %v", err)
	}
	if len(failed) != 2 {
		t.Errorf("failed logins: got %d, want 2", len(failed))
	}
}
