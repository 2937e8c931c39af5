package forum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func TestRegister(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)

	u, err := f.svc.Users.Register(f.ctx, models.RegisterRequest{
		Username: " alice ",
		Email:    "Alice@Example.com",
		FullName: "Alice",
		Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "hunter22", u.HashedPassword)

	_, err = f.svc.Users.Register(f.ctx, models.RegisterRequest{Username: "alice", Email: "x@example.com", FullName: "X", Password: "hunter22"})
	assert.EqualError(t, err, "Username already registered")

	_, err = f.svc.Users.Register(f.ctx, models.RegisterRequest{Username: "alice2", Email: "ALICE@example.com", FullName: "X", Password: "hunter22"})
	assert.EqualError(t, err, "Email already registered")

	_, err = f.svc.Users.Register(f.ctx, models.RegisterRequest{Username: "al", Email: "al@example.com", FullName: "X", Password: "hunter22"})
	assert.ErrorIs(t, err, forum.ErrValidation)
}

func TestRegisterAdminEmail(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)
	admin := f.user("admin")
	assert.Equal(t, models.RoleAdmin, admin.Role)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)
	bob := f.user("bob")

	resp, err := f.svc.Users.Authenticate(f.ctx, models.LoginRequest{Username: "bob", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, bob.UserID, resp.User.ID)

	_, err = f.svc.Users.Authenticate(f.ctx, models.LoginRequest{Username: "bob", Password: "wrong-password"})
	require.ErrorIs(t, err, forum.ErrUnauthenticated)
	assert.EqualError(t, err, "Incorrect username or password")

	_, err = f.svc.Users.Authenticate(f.ctx, models.LoginRequest{Username: "nobody", Password: "secret123"})
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)

	require.NoError(t, f.store.SetUserActive(f.ctx, bob.UserID, false))
	_, err = f.svc.Users.Authenticate(f.ctx, models.LoginRequest{Username: "bob", Password: "secret123"})
	assert.ErrorIs(t, err, forum.ErrInactiveUser)
}

func TestUpdateSelf(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)
	carol := f.user("carol")
	f.user("dave")

	_, err := f.svc.Users.UpdateSelf(f.ctx, carol, models.UpdateUserRequest{})
	assert.EqualError(t, err, "No data to update")

	_, err = f.svc.Users.UpdateSelf(f.ctx, carol, models.UpdateUserRequest{Username: strptr("dave")})
	assert.EqualError(t, err, "Username already taken")

	_, err = f.svc.Users.UpdateSelf(f.ctx, carol, models.UpdateUserRequest{Email: strptr("DAVE@example.com")})
	assert.EqualError(t, err, "Email already taken")

	u, err := f.svc.Users.UpdateSelf(f.ctx, carol, models.UpdateUserRequest{
		Username: strptr("carol"),
		FullName: strptr("Carol C."),
		Password: strptr("new-secret"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol C.", u.FullName)

	_, err = f.svc.Users.Authenticate(f.ctx, models.LoginRequest{Username: "carol", Password: "new-secret"})
	assert.NoError(t, err)
}

func TestIdentify(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)
	erin := f.user("erin")

	id, err := f.svc.Users.Identify(f.ctx, erin.UserID)
	require.NoError(t, err)
	assert.Equal(t, erin, id)

	_, err = f.svc.Users.Identify(f.ctx, "garbage")
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)
	_, err = f.svc.Users.Identify(f.ctx, forum.NewID())
	assert.ErrorIs(t, err, forum.ErrUnauthenticated)

	require.NoError(t, f.store.SetUserActive(f.ctx, erin.UserID, false))
	id, err = f.svc.Users.Identify(f.ctx, erin.UserID)
	require.NoError(t, err)
	assert.False(t, id.IsActive)
}
