package auth

import (
	"context"
	"time"

	"github.com/sagikazarmark/go-option"
)

// AccessToken is a credential issued to a registry client described in the [Token Authentication Specification].
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type AccessToken struct {
	Payload string

	ExpiresIn time.Duration
	IssuedAt  time.Time
}

// AccessTokenIssuer issues a token described in the [Token Authentication Specification].
//
// The subject is optional: anonymous requests (eg. catalog browsing) may be
// granted a token as well, depending on the Authorizer.
//
// [Token Authentication Specification]: https://github.com/distribution/distribution/blob/main/docs/spec/auth/token.md
type AccessTokenIssuer interface {
	IssueAccessToken(ctx context.Context, service string, subject option.Option[Subject], grantedScopes []Scope) (AccessToken, error)
}
