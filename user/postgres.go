package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects the following tables to exist (schema management happens elsewhere):
//
//	users(id, username, email, password_hash, admin, disabled, created_at)
//	access_tokens(id, user_id, name, digest, permissions, expires_at, created_at)
//	identities(id, provider, subject, user_id, email, display_name, created_at, updated_at)
//
// with unique indexes on lower(users.username), lower(users.email)
// and (identities.provider, identities.subject).
// access_tokens.expires_at is nullable: NULL marks a token that never expires.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const selectUser = `SELECT id, username, email, password_hash, admin, disabled, created_at FROM users`

func (s *PostgresStore) scanUser(row pgx.Row) (User, error) {
	var user User

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Admin, &user.Disabled, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}

	return user, nil
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (s *PostgresStore) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE lower(username) = lower($1)`, username))
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = lower($1)`, email))
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return User{}, err
		}

		user.ID = id.String()
	}

	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO users (id, username, email, password_hash, admin, disabled, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Admin, user.Disabled, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return User{}, fmt.Errorf("user %q: %w", user.Username, ErrConflict)
	}
	if err != nil {
		return User{}, err
	}

	return user, nil
}

// Tokens without an expiry are stored as SQL NULL,
// round-tripping the zero value of [AccessToken.ExpiresAt].

func expiryToColumn(expiresAt time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: expiresAt, Valid: !expiresAt.IsZero()}
}

func expiryFromColumn(column pgtype.Timestamptz) time.Time {
	if !column.Valid {
		return time.Time{}
	}

	return column.Time
}

func (s *PostgresStore) ListAccessTokens(ctx context.Context, userID string) ([]AccessToken, error) {
	rows, err := s.pool.Query(
		ctx,
		`SELECT id, user_id, name, digest, permissions, expires_at, created_at FROM access_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []AccessToken

	for rows.Next() {
		var (
			token     AccessToken
			expiresAt pgtype.Timestamptz
		)

		err := rows.Scan(&token.ID, &token.UserID, &token.Name, &token.Digest, &token.Permissions, &expiresAt, &token.CreatedAt)
		if err != nil {
			return nil, err
		}

		token.ExpiresAt = expiryFromColumn(expiresAt)

		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

func (s *PostgresStore) CreateAccessToken(ctx context.Context, token AccessToken) (AccessToken, error) {
	if token.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return AccessToken{}, err
		}

		token.ID = id.String()
	}

	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO access_tokens (id, user_id, name, digest, permissions, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		token.ID, token.UserID, token.Name, token.Digest, token.Permissions, expiryToColumn(token.ExpiresAt), token.CreatedAt,
	)
	if err != nil {
		return AccessToken{}, err
	}

	return token, nil
}

const selectIdentity = `SELECT id, provider, subject, user_id, email, display_name, created_at, updated_at FROM identities`

func (s *PostgresStore) scanIdentity(row pgx.Row) (Identity, error) {
	var identity Identity

	err := row.Scan(&identity.ID, &identity.Provider, &identity.Subject, &identity.UserID, &identity.Email, &identity.DisplayName, &identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, fmt.Errorf("identity: %w", ErrNotFound)
	}
	if err != nil {
		return Identity{}, err
	}

	return identity, nil
}

func (s *PostgresStore) FindIdentity(ctx context.Context, provider string, subject string) (Identity, error) {
	return s.scanIdentity(s.pool.QueryRow(ctx, selectIdentity+` WHERE provider = $1 AND subject = $2`, provider, subject))
}

func (s *PostgresStore) CreateIdentity(ctx context.Context, identity Identity) (Identity, error) {
	if identity.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return Identity{}, err
		}

		identity.ID = id.String()
	}

	_, err := s.pool.Exec(
		ctx,
		`INSERT INTO identities (id, provider, subject, user_id, email, display_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		identity.ID, identity.Provider, identity.Subject, identity.UserID, identity.Email, identity.DisplayName, identity.CreatedAt, identity.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return Identity{}, fmt.Errorf("identity %s/%s: %w", identity.Provider, identity.Subject, ErrConflict)
	}
	if err != nil {
		return Identity{}, err
	}

	return identity, nil
}

func (s *PostgresStore) UpdateIdentity(ctx context.Context, identity Identity) (Identity, error) {
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE identities SET email = $1, display_name = $2, updated_at = $3 WHERE id = $4`,
		identity.Email, identity.DisplayName, identity.UpdatedAt, identity.ID,
	)
	if err != nil {
		return Identity{}, err
	}

	if tag.RowsAffected() == 0 {
		return Identity{}, fmt.Errorf("identity %q: %w", identity.ID, ErrNotFound)
	}

	return identity, nil
}
