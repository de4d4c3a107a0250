package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/session"
)

func newLock(t *testing.T, now *time.Time) *session.Service {
	t.Helper()

	hash, err := session.HashPIN("4321")
	require.NoError(t, err)

	return session.NewService(hash, "secret", 15*time.Minute, session.WithClock(func() time.Time { return *now }))
}

func TestService_Unlock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := newLock(t, &now)

	t.Run("WrongPIN", func(t *testing.T) {
		_, _, err := lock.Unlock("0000")
		assert.ErrorIs(t, err, session.ErrInvalidPIN)
	})

	t.Run("CorrectPIN", func(t *testing.T) {
		token, expires, err := lock.Unlock("4321")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, now.Add(15*time.Minute), expires)
		assert.NoError(t, lock.Verify(token))
	})
}

func TestService_Verify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lock := newLock(t, &now)

	token, _, err := lock.Unlock("4321")
	require.NoError(t, err)

	t.Run("Garbage", func(t *testing.T) {
		assert.ErrorIs(t, lock.Verify("not-a-token"), session.ErrInvalidToken)
	})

	t.Run("OtherSecret", func(t *testing.T) {
		hash, err := session.HashPIN("4321")
		require.NoError(t, err)

		other := session.NewService(hash, "another-secret", time.Minute)
		assert.ErrorIs(t, other.Verify(token), session.ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		now = now.Add(16 * time.Minute)
		assert.ErrorIs(t, lock.Verify(token), session.ErrInvalidToken)
	})
}

func TestService_Enabled(t *testing.T) {
	assert.False(t, session.NewService("", "", time.Minute).Enabled())
	assert.True(t, session.NewService("$2a$10$x", "s", time.Minute).Enabled())
}

func TestHashPIN_TooShort(t *testing.T) {
	_, err := session.HashPIN("12")
	assert.Error(t, err)
}
