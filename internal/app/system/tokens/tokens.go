// internal/app/system/tokens/tokens.go
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped into every token.
const Issuer = "from server"

// Subject markers.
const (
	SubjectLogin   = "token login"
	SubjectRefresh = "token refresh"
)

// SubjectSocial returns the subject marker for a social login.
func SubjectSocial(provider string) string {
	return SubjectLogin + " " + provider
}

var (
	// ErrTokenInvalid is returned for any token that fails signature,
	// algorithm, issuer, or expiry checks.
	ErrTokenInvalid = errors.New("token invalid")
	errNoSecret     = errors.New("token secrets must be non-empty")
	errSameSecret   = errors.New("access and refresh secrets must differ")
)

// Config holds signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Payload is the identity carried inside a token.
type Payload struct {
	Subject string
	UserID  string
	Name    string
	Email   string
	Role    string
}

// Claims is the decoded form of a token.
type Claims struct {
	UserID string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and verifies access and refresh tokens. Each kind has its
// own secret, so a leaked access secret cannot mint refresh tokens.
type Signer struct {
	cfg Config
}

// NewSigner validates cfg and returns a Signer.
func NewSigner(cfg Config) (*Signer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errNoSecret
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errSameSecret
	}
	return &Signer{cfg: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Signer) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Signer) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// SignAccess issues a short-lived access token.
func (s *Signer) SignAccess(p Payload) (string, error) {
	return sign(p, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

// SignRefresh issues a long-lived refresh token.
func (s *Signer) SignRefresh(p Payload) (string, error) {
	return sign(p, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

// VerifyAccess validates an access token.
func (s *Signer) VerifyAccess(token string) (*Claims, error) {
	return verify(token, s.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token.
func (s *Signer) VerifyRefresh(token string) (*Claims, error) {
	return verify(token, s.cfg.RefreshSecret)
}

func sign(p Payload, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID,
		Name:   p.Name,
		Email:  p.Email,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   p.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func verify(token, secret string) (*Claims, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
