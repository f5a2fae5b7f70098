package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ErrProvisioningDisabled is returned when a federated login matches no existing
// account and automatic account creation is disabled.
var ErrProvisioningDisabled = errors.New("no existing user and auto-creation is disabled")

// ErrDisabled is returned when the resolved account is disabled.
var ErrDisabled = errors.New("account is disabled")

// FederatedLogin describes a successful login at an identity provider.
type FederatedLogin struct {
	// Provider identifies the identity provider (the issuer URL).
	Provider string

	// Subject is the provider's stable identifier for the end user.
	Subject string

	// Username is the local username derived from the provider's claims.
	Username string

	Email       string
	DisplayName string
}

// Resolver resolves a federated login to a local account,
// linking or provisioning accounts as necessary.
type Resolver struct {
	Users      UserStore
	Identities IdentityStore

	// AutoProvision enables creating a new local account
	// when a federated login matches no existing one.
	AutoProvision bool

	// ProvisionAsAdmin grants administrative privileges to newly provisioned accounts.
	ProvisionAsAdmin bool

	Clock  clockwork.Clock
	Logger *zap.Logger
}

func (r Resolver) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}

	return r.Clock.Now()
}

func (r Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}

	return r.Logger
}

// Resolve returns the local account for a federated login.
//
// An existing identity link wins: the linked account is reused and the cached
// display metadata of the link is refreshed. Otherwise a local user matching
// the derived username is linked to the provider identity. Note that this
// links the provider identity to the local account purely based on the
// username assertion: any provider vouching for a username can claim the
// matching local account. Run trusted providers only.
//
// When nothing matches and AutoProvision is enabled, a new account is created
// without a password, along with the identity link.
func (r Resolver) Resolve(ctx context.Context, login FederatedLogin) (User, error) {
	identity, err := r.Identities.FindIdentity(ctx, login.Provider, login.Subject)
	if err == nil {
		return r.resolveLinked(ctx, identity, login)
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	account, err := r.Users.FindUserByUsername(ctx, login.Username)
	if err == nil {
		return r.link(ctx, account, login)
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	if !r.AutoProvision {
		return User{}, ErrProvisioningDisabled
	}

	return r.provision(ctx, login)
}

func (r Resolver) resolveLinked(ctx context.Context, identity Identity, login FederatedLogin) (User, error) {
	account, err := r.Users.FindUserByID(ctx, identity.UserID)
	if err != nil {
		return User{}, fmt.Errorf("resolving linked account: %w", err)
	}

	if account.Disabled {
		return User{}, ErrDisabled
	}

	if identity.Email != login.Email || identity.DisplayName != login.DisplayName {
		identity.Email = login.Email
		identity.DisplayName = login.DisplayName
		identity.UpdatedAt = r.now()

		// Metadata refresh is best effort: a failure must not block the login.
		_, err := r.Identities.UpdateIdentity(ctx, identity)
		if err != nil {
			r.logger().Warn("failed to refresh identity metadata", zap.Error(err))
		}
	}

	return account, nil
}

func (r Resolver) link(ctx context.Context, account User, login FederatedLogin) (User, error) {
	if account.Disabled {
		return User{}, ErrDisabled
	}

	now := r.now()

	_, err := r.Identities.CreateIdentity(ctx, Identity{
		Provider:    login.Provider,
		Subject:     login.Subject,
		UserID:      account.ID,
		Email:       login.Email,
		DisplayName: login.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Is(err, ErrConflict) {
		// Lost a race against a concurrent login: use the link that won.
		identity, err := r.Identities.FindIdentity(ctx, login.Provider, login.Subject)
		if err != nil {
			return User{}, err
		}

		return r.resolveLinked(ctx, identity, login)
	}
	if err != nil {
		return User{}, err
	}

	r.logger().Info(
		"linked federated identity to existing account",
		zap.String("username", account.Username),
		zap.String("provider", login.Provider),
	)

	return account, nil
}

func (r Resolver) provision(ctx context.Context, login FederatedLogin) (User, error) {
	now := r.now()

	account, err := r.Users.CreateUser(ctx, User{
		Username:  login.Username,
		Email:     login.Email,
		Admin:     r.ProvisionAsAdmin,
		CreatedAt: now,
	})
	if err != nil {
		// An email conflict must fail the login instead of silently
		// reassigning the account holding that address.
		return User{}, fmt.Errorf("provisioning account %q: %w", login.Username, err)
	}

	_, err = r.Identities.CreateIdentity(ctx, Identity{
		Provider:    login.Provider,
		Subject:     login.Subject,
		UserID:      account.ID,
		Email:       login.Email,
		DisplayName: login.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return User{}, err
	}

	r.logger().Info(
		"provisioned account for federated identity",
		zap.String("username", account.Username),
		zap.String("provider", login.Provider),
	)

	return account, nil
}
