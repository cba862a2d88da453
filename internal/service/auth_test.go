package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
)

func newTestAuthService(t *testing.T, store *fakeStore) *AuthService {
	t.Helper()
	return NewAuthService(store, newTestTokenService(t), testPasswords, discardLogger())
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(t, "alice", "s3cret-pass", true)
	svc := newTestAuthService(t, store)

	result, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.Token)

	userID, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID, "the session must be bound to the logged-in user")
}

func TestLogin_Failures(t *testing.T) {
	store := newFakeStore()
	store.addUser(t, "alice", "s3cret-pass", true)
	store.addUser(t, "octo", "", false)
	svc := newTestAuthService(t, store)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "missing password", username: "alice", password: ""},
		{name: "missing username", username: "", password: "s3cret-pass"},
		{name: "wrong password", username: "alice", password: "nope"},
		{name: "unknown user", username: "bob", password: "s3cret-pass"},
		{name: "username is case sensitive", username: "Alice", password: "s3cret-pass"},
		{name: "account without password", username: "octo", password: "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.Nil(t, result)
			require.ErrorIs(t, err, apperror.ErrUnauthorized)
			assert.Equal(t, MsgInvalidLogin, err.Error(), "every failure must use the same message")
		})
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Name: "Octo Cat", Email: "octocat@github.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "octocat", result.User.Username)
	assert.Equal(t, "octocat@github.com", result.User.Email)
	assert.False(t, result.User.HasUsablePassword())
	assert.False(t, result.User.IsStaff)

	_, err = store.GetProfile(context.Background(), result.User.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "GitHub signups start without a profile")
}

func TestLoginOrRegisterGitHub_ReturningUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestAuthService(t, store)
	gh := &auth.GitHubUser{ID: 42, Login: "octocat"}

	first, err := svc.LoginOrRegisterGitHub(context.Background(), gh)
	require.NoError(t, err)
	second, err := svc.LoginOrRegisterGitHub(context.Background(), gh)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Len(t, store.users, 1)
}

func TestLoginOrRegisterGitHub_UsernameAndEmailTaken(t *testing.T) {
	store := newFakeStore()
	store.addUser(t, "octocat", "pw", true)
	store.addUser(t, "octocat-1", "pw", true)
	svc := newTestAuthService(t, store)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 7, Login: "octocat", Email: "octocat@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "octocat-2", result.User.Username)
	assert.Empty(t, result.User.Email, "an email owned by another account is not copied")
}

func TestLoginOrRegisterGitHub_StoreError(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	svc := newTestAuthService(t, store)

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "x"})
	assert.Error(t, err)
}

func TestLoginOrRegisterGitHub_Nil(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore())
	_, err := svc.LoginOrRegisterGitHub(context.Background(), nil)
	assert.Error(t, err)
}

// =========================================================================
// GetUserByID / ValidateToken TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(t, "alice", "pw", true)
	svc := newTestAuthService(t, store)

	got, err := svc.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = svc.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetUserByID(context.Background(), "")
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestAuthService(t, newFakeStore())
	_, err := svc.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
