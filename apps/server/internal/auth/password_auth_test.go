package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Service {
	t.Helper()
	sqlite, err := NewSQLiteManager(":memory:", testSecret, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Service{
		"memory": NewManager(testSecret, time.Hour),
		"sqlite": sqlite,
	}
}

func TestRegisterLogin(t *testing.T) {
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			accountID, token, err := svc.Register("Alice", "hunter2!")
			require.NoError(t, err)
			require.NotZero(t, accountID)
			require.NotEmpty(t, token)

			// The session from registration resolves immediately and
			// usernames are case-folded.
			gotID, username, ok := svc.ResolveSession(token)
			require.True(t, ok)
			assert.Equal(t, accountID, gotID)
			assert.Equal(t, "alice", username)

			loginID, loginToken, err := svc.Login("alice", "hunter2!")
			require.NoError(t, err)
			assert.Equal(t, accountID, loginID)
			assert.NotEmpty(t, loginToken)
		})
	}
}

func TestRegister_Validation(t *testing.T) {
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Register("x", "hunter2!")
			assert.ErrorIs(t, err, ErrInvalidUsername)

			_, _, err = svc.Register("alice", "short")
			assert.ErrorIs(t, err, ErrInvalidPassword)

			_, _, err = svc.Register("alice", "hunter2!")
			require.NoError(t, err)
			_, _, err = svc.Register("ALICE", "hunter2!")
			assert.ErrorIs(t, err, ErrUsernameTaken, "usernames are unique case-insensitively")
		})
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Register("alice", "hunter2!")
			require.NoError(t, err)

			_, _, err = svc.Login("alice", "wrong-password")
			assert.ErrorIs(t, err, ErrInvalidCredentials)

			_, _, err = svc.Login("nobody", "hunter2!")
			assert.ErrorIs(t, err, ErrInvalidCredentials)

			_, _, err = svc.Login("", "")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	for name, svc := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, token, err := svc.Register("alice", "hunter2!")
			require.NoError(t, err)

			svc.Logout(token)
			_, _, ok := svc.ResolveSession(token)
			assert.False(t, ok)
		})
	}
}
