// internal/app/features/health/handler_test.go
package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/contenthub/internal/app/features/health"
	"github.com/dalemusser/contenthub/internal/testutil"
	"go.uber.org/zap"
)

type fakeCache struct {
	enabled bool
	err     error
}

func (f fakeCache) Enabled() bool { return f.enabled }
func (f fakeCache) Ping(context.Context) error { return f.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
	Message  string `json:"message"`
}

func TestServe(t *testing.T) {
	db := testutil.SetupTestDB(t)

	tests := []struct {
		name   string
		cache  health.Pinger
		code   int
		status string
		state  string
	}{
		{"no cache", nil, http.StatusOK, "ok", "disabled"},
		{"cache disabled", fakeCache{}, http.StatusOK, "ok", "disabled"},
		{"cache up", fakeCache{enabled: true}, http.StatusOK, "ok", "connected"},
		{"cache down", fakeCache{enabled: true, err: errors.New("dial tcp: refused")}, http.StatusServiceUnavailable, "error", "disconnected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(db.Client(), tt.cache, zap.NewNop())
			rec := httptest.NewRecorder()
			h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.code {
				t.Errorf("status code = %d, want %d", rec.Code, tt.code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var got response
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Status != tt.status || got.Database != "connected" || got.Cache != tt.state {
				t.Errorf("response = %+v", got)
			}
		})
	}
}
