// Package authn provides the authentication strategies of the token service:
// password verification, personal access token verification and refresh token
// verification, composed by an ordered chain.
package authn

import (
	"strings"

	"golang.org/x/exp/maps"

	"github.com/portside-registry/auth/auth"
	"github.com/portside-registry/auth/user"
)

type subject struct {
	id         string
	attributes map[string]string
}

func (s subject) ID() string {
	return s.id
}

func (s subject) Attribute(key string) (string, bool) {
	if s.attributes == nil {
		return "", false
	}

	v, ok := s.attributes[key]

	return v, ok
}

func (s subject) Attributes() map[string]string {
	return maps.Clone(s.attributes)
}

func newUserSubject(u user.User) subject {
	attributes := map[string]string{
		auth.SubjectName: u.Username,
		auth.SubjectType: auth.SubjectTypeUser,
	}

	if u.Admin {
		attributes[auth.SubjectAdmin] = "true"
	}

	return subject{
		id:         u.Username,
		attributes: attributes,
	}
}

func newAccessTokenSubject(u user.User, token user.AccessToken) subject {
	attributes := map[string]string{
		auth.SubjectName:        u.Username,
		auth.SubjectType:        auth.SubjectTypeAccessToken,
		auth.SubjectPermissions: strings.Join(token.Permissions, ","),
	}

	if u.Admin {
		attributes[auth.SubjectAdmin] = "true"
	}

	return subject{
		id:         u.Username,
		attributes: attributes,
	}
}
