package user

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestExpiryColumn(t *testing.T) {
	expiresAt := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, pgtype.Timestamptz{Time: expiresAt, Valid: true}, expiryToColumn(expiresAt))
	assert.Equal(t, expiresAt, expiryFromColumn(pgtype.Timestamptz{Time: expiresAt, Valid: true}))
}

func TestExpiryColumn_NeverExpires(t *testing.T) {
	// A token without an expiry is stored as SQL NULL and read back as the zero value.
	assert.Equal(t, pgtype.Timestamptz{}, expiryToColumn(time.Time{}))
	assert.True(t, expiryFromColumn(pgtype.Timestamptz{}).IsZero())

	token := AccessToken{ExpiresAt: expiryFromColumn(pgtype.Timestamptz{})}

	assert.False(t, token.Expired(time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)))
}
