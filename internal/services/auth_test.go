package services

import (
	"context"
	"testing"

	"github.com/fintrack/apiserver/internal/auth"
	"github.com/fintrack/apiserver/internal/store"
	"github.com/fintrack/apiserver/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T, st *memory.Store) (*AuthService, *auth.TokenIssuer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("test-secret", "fintrack", "fintrack-web")
	require.NoError(t, err)
	return NewAuthService(st.Users(), tokens, auth.PasswordPolicy{MinLength: 6}), tokens
}

func TestRegisterThenLoginReturnsSameUser(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newAuthService(t, memory.New())

	registered, err := svc.Register(ctx, RegisterInput{
		Username:  " alice ",
		Email:     "alice@x.com",
		Password:  "secret1",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice", registered.User.Username)
	assert.NotEqual(t, "secret1", registered.User.PasswordHash)

	loggedIn, err := svc.Login(ctx, "alice@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	claims, err := tokens.Parse(loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.Subject)
	assert.Equal(t, loggedIn.Expiration.Unix(), claims.ExpiresAt.Unix())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, memory.New())

	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "other@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Email: "alice@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newAuthService(t, memory.New())

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "a!",
		Email:    "Alice <alice@x.com>",
		Password: "short",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "email")
	assert.Equal(t, "password must be at least 6 characters", verr.Fields["password"])

	_, err = svc.Register(context.Background(), RegisterInput{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "username is required", verr.Fields["username"])
	assert.Equal(t, "email is required", verr.Fields["email"])
	assert.Equal(t, "password is required", verr.Fields["password"])
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService(t, memory.New())
	_, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "secret1")
	_, wrongErr := svc.Login(ctx, "alice@x.com", "wrong-password")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	_, err = svc.Login(ctx, "", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestUserServiceDeleteCascades(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	svc, _ := newAuthService(t, st)
	users := NewUserService(st.Users())

	user, err := svc.CreateUser(ctx, RegisterInput{Username: "alice", Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	found, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	require.NoError(t, users.Delete(ctx, user.ID))
	_, err = users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
