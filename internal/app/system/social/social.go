// internal/app/system/social/social.go
package social

import (
	"strings"

	"github.com/dalemusser/contenthub/internal/app/system/normalize"
)

// Identity is the provider-neutral view of a social account.
type Identity struct {
	Email  string
	Name   string
	Avatar string
}

// GoogleProfile mirrors the OpenID userinfo response.
type GoogleProfile struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// FacebookProfile mirrors the Graph API /me response for
// fields=id,email,first_name,last_name,picture.type(large).
type FacebookProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// FromGoogle maps a Google profile to an Identity.
func FromGoogle(p GoogleProfile) Identity {
	name := joinName(p.GivenName, p.FamilyName)
	if name == "" {
		name = p.Name
	}
	email := normalize.Email(p.Email)
	return Identity{
		Email:  email,
		Name:   fallbackName(name, email),
		Avatar: p.Picture,
	}
}

// FromFacebook maps a Facebook profile to an Identity. Accounts that do not
// share an email get the synthetic address <id>@facebook.com.
func FromFacebook(p FacebookProfile) Identity {
	email := normalize.Email(p.Email)
	if email == "" && p.ID != "" {
		email = normalize.Email(p.ID + "@facebook.com")
	}
	return Identity{
		Email:  email,
		Name:   fallbackName(joinName(p.FirstName, p.LastName), email),
		Avatar: p.Picture.Data.URL,
	}
}

func joinName(given, family string) string {
	return normalize.Name(given + " " + family)
}

// fallbackName uses the email local-part when the provider sent no name.
func fallbackName(name, email string) string {
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
