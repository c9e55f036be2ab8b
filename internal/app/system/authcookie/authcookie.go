// internal/app/system/authcookie/authcookie.go
package authcookie

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// Name is the refresh cookie name.
const Name = "refresh_token"

var (
	// ErrInvalid is returned when the cookie is present but fails its MAC or
	// decryption check, or has outlived its max age.
	ErrInvalid = errors.New("refresh cookie is invalid")

	errHashKey = errors.New("cookie hash key must be at least 32 bytes")
	errBlock   = errors.New("cookie block key must be 16, 24 or 32 bytes")
)

// Codec signs, encrypts and reads the HTTP-only refresh cookie.
type Codec struct {
	sc     *securecookie.SecureCookie
	domain string
	secure bool
	maxAge time.Duration
}

// New creates a Codec. blockKey may be empty to sign without encrypting.
// When secure is true the cookie is Secure with SameSite=None so a
// cross-origin frontend can send it; otherwise SameSite=Lax for local http.
func New(hashKey, blockKey, domain string, secure bool, maxAge time.Duration) (*Codec, error) {
	if len(hashKey) < 32 {
		return nil, errHashKey
	}
	var block []byte
	switch len(blockKey) {
	case 0:
	case 16, 24, 32:
		block = []byte(blockKey)
	default:
		return nil, errBlock
	}

	sc := securecookie.New([]byte(hashKey), block)
	sc.MaxAge(int(maxAge.Seconds()))
	return &Codec{sc: sc, domain: domain, secure: secure, maxAge: maxAge}, nil
}

// Set writes token into the refresh cookie.
func (c *Codec) Set(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(Name, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(encoded, int(c.maxAge.Seconds())))
	return nil
}

// Read returns the refresh token carried by r. A missing cookie yields
// ("", nil) so callers can report it distinctly from a tampered one.
func (c *Codec) Read(r *http.Request) (string, error) {
	ck, err := r.Cookie(Name)
	if err != nil || ck.Value == "" {
		return "", nil
	}
	var token string
	if err := c.sc.Decode(Name, ck.Value, &token); err != nil {
		return "", ErrInvalid
	}
	return token, nil
}

// Clear expires the refresh cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *Codec) cookie(value string, maxAge int) *http.Cookie {
	ck := &http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if c.secure {
		ck.SameSite = http.SameSiteNoneMode
	}
	return ck
}
