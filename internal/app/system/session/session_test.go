package session_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/contenthub/internal/app/system/apperr"
	"github.com/dalemusser/contenthub/internal/app/system/session"
	"github.com/dalemusser/contenthub/internal/app/system/social"
	"github.com/dalemusser/contenthub/internal/app/system/tokens"
	"github.com/dalemusser/contenthub/internal/domain/models"
	"go.uber.org/zap"
)

type harness struct {
	mgr    *session.Manager
	users  *memUsers
	mail   *memMailer
	signer *tokens.Signer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	signer, err := tokens.NewSigner(tokens.Config{
		AccessSecret:  "access-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret-for-tests",
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	users := newMemUsers()
	mail := &memMailer{}
	mgr := session.NewManager(users, signer, mail, session.Config{
		ResetExpiry: 15 * time.Minute,
		FrontendURL: "http://localhost:3000/",
	}, zap.NewNop())
	return &harness{mgr: mgr, users: users, mail: mail, signer: signer}
}

func (h *harness) register(t *testing.T, email, pw string) *models.User {
	t.Helper()
	u, err := h.mgr.Register(context.Background(), session.RegisterInput{Email: email, Password: pw, Name: "Test User"})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	return u.Query().Get("token")
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	u := h.register(t, " New@Example.com ", "pw1")
	if u.Role != models.RoleUser || u.Provider != models.ProviderLocal {
		t.Errorf("role/provider = %q/%q, want user/local", u.Role, u.Provider)
	}
	if u.Password == "pw1" || u.Password == "" {
		t.Error("password should be stored hashed")
	}

	_, err := h.mgr.Register(ctx, session.RegisterInput{Email: "new@example.com", Password: "x"})
	if !errors.Is(err, apperr.ErrEmailAlreadyExists) {
		t.Errorf("duplicate register err = %v, want EmailAlreadyExists", err)
	}

	_, err = h.mgr.Register(ctx, session.RegisterInput{Email: "", Password: "x"})
	if apperr.From(err).Kind != apperr.KindBadRequest {
		t.Errorf("empty email err = %v, want BadRequest", err)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "ann@example.com", "secret")

	res, err := h.mgr.Login(ctx, "ANN@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if res.User.Password != "" || res.User.RefreshToken != "" {
		t.Error("result user must not carry credentials")
	}
	if got := h.users.get(u.ID).RefreshToken; got != res.RefreshToken {
		t.Error("refresh token was not persisted")
	}
	claims, err := h.signer.VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.UserID != u.ID.Hex() || claims.Subject != tokens.SubjectLogin || claims.Role != models.RoleUser {
		t.Errorf("claims = %+v", claims)
	}

	tests := []struct {
		name  string
		email string
		pw    string
		want  error
	}{
		{"unknown email", "nobody@example.com", "secret", apperr.ErrInvalidCredentials},
		{"wrong password", "ann@example.com", "nope", apperr.ErrInvalidCredentials},
		{"empty password", "ann@example.com", "", apperr.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.mgr.Login(ctx, tt.email, tt.pw); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLogin_DeletedAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "gone@example.com", "secret")
	h.users.softDelete(u.ID)

	if _, err := h.mgr.Login(ctx, "gone@example.com", "secret"); !errors.Is(err, apperr.ErrDeletedOrBanned) {
		t.Errorf("err = %v, want DeletedOrBanned", err)
	}
	if _, err := h.mgr.Login(ctx, "gone@example.com", "wrong"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("wrong password on deleted account err = %v, want InvalidCredentials", err)
	}
}

func TestLogin_SocialAccountHasNoPassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.mgr.SocialLogin(ctx, social.Identity{Email: "s@example.com", Name: "S"}, models.ProviderGoogle); err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if _, err := h.mgr.Login(ctx, "s@example.com", ""); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("err = %v, want InvalidCredentials", err)
	}
}

func TestRefresh_RotatesAndInvalidatesOld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "r@example.com", "pw")

	first, err := h.mgr.Login(ctx, "r@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := h.mgr.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken || second.AccessToken == "" {
		t.Fatal("refresh must issue a new pair")
	}
	claims, err := h.signer.VerifyAccess(second.AccessToken)
	if err != nil || claims.Subject != tokens.SubjectRefresh {
		t.Errorf("refreshed access claims = %+v, err = %v", claims, err)
	}

	if _, err := h.mgr.Refresh(ctx, first.RefreshToken); !errors.Is(err, apperr.ErrRefreshInvalid) {
		t.Errorf("old token err = %v, want RefreshInvalid", err)
	}
	if _, err := h.mgr.Refresh(ctx, second.RefreshToken); err != nil {
		t.Errorf("new token should still work: %v", err)
	}
}

func TestRefresh_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "e@example.com", "pw")
	res, err := h.mgr.Login(ctx, "e@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := h.mgr.Refresh(ctx, ""); !errors.Is(err, apperr.ErrRefreshMissing) {
		t.Errorf("empty err = %v, want RefreshMissing", err)
	}
	if _, err := h.mgr.Refresh(ctx, "not-a-jwt"); !errors.Is(err, apperr.ErrRefreshInvalid) {
		t.Errorf("garbage err = %v, want RefreshInvalid", err)
	}
	if _, err := h.mgr.Refresh(ctx, res.AccessToken); !errors.Is(err, apperr.ErrRefreshInvalid) {
		t.Errorf("access token as refresh err = %v, want RefreshInvalid", err)
	}

	if err := h.mgr.Logout(ctx, u.ID.Hex()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := h.mgr.Refresh(ctx, res.RefreshToken); !errors.Is(err, apperr.ErrRefreshInvalid) {
		t.Errorf("after logout err = %v, want RefreshInvalid", err)
	}
}

func TestRefresh_DeletedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "d@example.com", "pw")
	res, err := h.mgr.Login(ctx, "d@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	h.users.softDelete(u.ID)

	if _, err := h.mgr.Refresh(ctx, res.RefreshToken); !errors.Is(err, apperr.ErrRefreshInvalid) {
		t.Errorf("err = %v, want RefreshInvalid", err)
	}
}

func TestRefresh_ConcurrentExactlyOneWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "c@example.com", "pw")
	res, err := h.mgr.Login(ctx, "c@example.com", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	const n = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		invalid int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.mgr.Refresh(ctx, res.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrRefreshInvalid):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if wins != 1 || invalid != n-1 {
		t.Errorf("wins = %d invalid = %d, want 1 and %d", wins, invalid, n-1)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "l@example.com", "pw")

	for i := 0; i < 2; i++ {
		if err := h.mgr.Logout(ctx, u.ID.Hex()); err != nil {
			t.Fatalf("Logout #%d: %v", i+1, err)
		}
	}
	if err := h.mgr.Logout(ctx, "bad"); !errors.Is(err, apperr.ErrInvalidID) {
		t.Errorf("bad id err = %v, want InvalidId", err)
	}
}

func TestPasswordResetScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "flow@example.com", "pw1")

	if _, err := h.mgr.Login(ctx, "flow@example.com", "pw1"); err != nil {
		t.Fatalf("Login pw1: %v", err)
	}
	if err := h.mgr.ForgotPassword(ctx, "flow@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	sent := h.mail.last()
	if sent.to != "flow@example.com" {
		t.Fatalf("mail to = %q", sent.to)
	}
	if !strings.HasPrefix(sent.link, "http://localhost:3000/reset-password?token=") {
		t.Errorf("link = %q", sent.link)
	}
	token := tokenFromLink(t, sent.link)
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	if err := h.mgr.ResetPassword(ctx, token, "pw2"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := h.mgr.Login(ctx, "flow@example.com", "pw1"); !errors.Is(err, apperr.ErrInvalidCredentials) {
		t.Errorf("old password err = %v, want InvalidCredentials", err)
	}
	if _, err := h.mgr.Login(ctx, "flow@example.com", "pw2"); err != nil {
		t.Errorf("new password: %v", err)
	}

	if err := h.mgr.ResetPassword(ctx, token, "pw3"); !errors.Is(err, apperr.ErrTokenInvalidOrExpired) {
		t.Errorf("reused token err = %v, want TokenInvalidOrExpired", err)
	}
}

func TestResetPassword_ConcurrentTokenUsedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "race@example.com", "pw0")
	if err := h.mgr.ForgotPassword(ctx, "race@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := tokenFromLink(t, h.mail.last().link)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    []string
		invalid int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		pw := "new-pw-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := h.mgr.ResetPassword(ctx, token, pw)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins = append(wins, pw)
			case errors.Is(err, apperr.ErrTokenInvalidOrExpired):
				invalid++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(wins) != 1 || invalid != n-1 {
		t.Fatalf("wins = %d invalid = %d, want 1 and %d", len(wins), invalid, n-1)
	}
	if _, err := h.mgr.Login(ctx, "race@example.com", wins[0]); err != nil {
		t.Errorf("winning password should log in: %v", err)
	}
}

func TestResetPassword_Expired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "x@example.com", "pw1")

	now := time.Now()
	session.SetClock(h.mgr, func() time.Time { return now })
	if err := h.mgr.ForgotPassword(ctx, "x@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := tokenFromLink(t, h.mail.last().link)

	session.SetClock(h.mgr, func() time.Time { return now.Add(16 * time.Minute) })
	if err := h.mgr.ResetPassword(ctx, token, "pw2"); !errors.Is(err, apperr.ErrTokenInvalidOrExpired) {
		t.Errorf("err = %v, want TokenInvalidOrExpired", err)
	}
	if err := h.mgr.ResetPassword(ctx, "unknown", "pw2"); !errors.Is(err, apperr.ErrTokenInvalidOrExpired) {
		t.Errorf("unknown token err = %v, want TokenInvalidOrExpired", err)
	}
}

func TestForgotPassword_UnknownOrDeleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.register(t, "del@example.com", "pw")
	h.users.softDelete(u.ID)

	for _, email := range []string{"none@example.com", "del@example.com"} {
		if err := h.mgr.ForgotPassword(ctx, email); !errors.Is(err, apperr.ErrUserNotFound) {
			t.Errorf("ForgotPassword(%s) err = %v, want UserNotFound", email, err)
		}
	}
	if len(h.mail.sent) != 0 {
		t.Errorf("no mail should be sent, got %d", len(h.mail.sent))
	}
}

func TestSocialLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := social.Identity{Email: "soc@example.com", Name: "Soc", Avatar: "http://a/b.png"}

	res, err := h.mgr.SocialLogin(ctx, id, models.ProviderFacebook)
	if err != nil {
		t.Fatalf("SocialLogin: %v", err)
	}
	if res.User.Provider != models.ProviderFacebook || res.User.Role != models.RoleUser || res.User.Avatar != id.Avatar {
		t.Errorf("created user = %+v", res.User)
	}
	claims, err := h.signer.VerifyAccess(res.AccessToken)
	if err != nil || claims.Subject != "token login facebook" {
		t.Errorf("claims = %+v err = %v", claims, err)
	}

	again, err := h.mgr.SocialLogin(ctx, id, models.ProviderFacebook)
	if err != nil {
		t.Fatalf("second SocialLogin: %v", err)
	}
	if again.User.ID != res.User.ID {
		t.Error("second login should reuse the existing account")
	}

	if _, err := h.mgr.SocialLogin(ctx, id, models.ProviderLocal); apperr.From(err).Kind != apperr.KindBadRequest {
		t.Errorf("local provider err = %v, want BadRequest", err)
	}

	h.users.softDelete(res.User.ID)
	if _, err := h.mgr.SocialLogin(ctx, id, models.ProviderFacebook); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("deleted err = %v, want Forbidden", err)
	}
}
