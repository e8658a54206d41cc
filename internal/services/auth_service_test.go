package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/fitsync/internal/logger"
	"github.com/prudhvinik1/fitsync/internal/testutil"
	"github.com/prudhvinik1/fitsync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct-horse-battery"

type authFixture struct {
	clock    *testutil.StubClock
	users    *testutil.UserRepository
	sessions *testutil.SessionRepository
	auth     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	clock := testutil.FixedClock()
	f := &authFixture{
		clock:    clock,
		users:    testutil.NewUserRepository(),
		sessions: testutil.NewSessionRepository(clock),
	}
	f.auth = NewAuthService(f.users, f.sessions, "test-secret", time.Hour, clock, testutil.NewStubIDGenerator(), logger.Discard())
	return f
}

func (f *authFixture) registerAndLogin(t *testing.T) *LoginResponse {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: testPassword, Name: "Ada"})
	require.NoError(t, err)

	resp, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	return resp
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t)

	assert.NotEmpty(t, resp.Token)
	assert.True(t, f.clock.Now().Add(time.Hour).Equal(resp.ExpiresAt))

	claims, err := f.auth.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "id-1", claims.SessionID)
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t)

	_, err := f.auth.Register(context.Background(), RegisterRequest{Email: "ADA@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_RegisterShortPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Register(context.Background(), RegisterRequest{Email: "bob@example.com", Password: "short"})
	assert.ErrorIs(t, err, utils.ErrPasswordTooShort)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t)

	_, err := f.auth.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong-password-here"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_TokenExpires(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t)

	f.clock.Advance(2 * time.Hour)

	_, err := f.auth.Authenticate(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RejectsForeignToken(t *testing.T) {
	f := newAuthFixture(t)
	f.registerAndLogin(t)

	other := NewAuthService(f.users, f.sessions, "other-secret", time.Hour, f.clock, testutil.NewStubIDGenerator(), logger.Discard())
	forged, err := other.generateToken(f.mustUserID(t), "id-1", f.clock.Now(), f.clock.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = f.auth.Authenticate(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.auth.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t)
	ctx := context.Background()

	require.NoError(t, f.auth.Logout(ctx, resp.Token))

	_, err := f.auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	err = f.auth.Logout(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_LogoutAll(t *testing.T) {
	f := newAuthFixture(t)
	first := f.registerAndLogin(t)
	ctx := context.Background()

	second, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, f.auth.LogoutAll(ctx, first.Token))

	for _, token := range []string{first.Token, second.Token} {
		_, err := f.auth.Authenticate(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

// Deleting a user invalidates tokens issued before the deletion.
func TestAuthService_DeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	resp := f.registerAndLogin(t)
	ctx := context.Background()

	require.NoError(t, f.users.Delete(ctx, resp.UserID))

	_, err := f.auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (f *authFixture) mustUserID(t *testing.T) uuid.UUID {
	t.Helper()
	user, err := f.users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	return user.ID
}

func TestAuthService_UpdateProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp := f.registerAndLogin(t)

	name := "  Ada Lovelace "
	user, err := f.auth.UpdateProfile(ctx, resp.UserID, UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)

	profile, err := f.auth.Profile(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "ada@example.com", profile.Email)
}

func TestAuthService_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp := f.registerAndLogin(t)
	newPassword := "another-long-passphrase"

	// ACT: wrong current password
	_, err := f.auth.UpdateProfile(ctx, resp.UserID, UpdateProfileRequest{CurrentPassword: "not-the-password", NewPassword: &newPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	short := "short"
	_, err = f.auth.UpdateProfile(ctx, resp.UserID, UpdateProfileRequest{CurrentPassword: testPassword, NewPassword: &short})
	assert.ErrorIs(t, err, utils.ErrPasswordTooShort)

	// ACT: correct current password
	_, err = f.auth.UpdateProfile(ctx, resp.UserID, UpdateProfileRequest{CurrentPassword: testPassword, NewPassword: &newPassword})
	require.NoError(t, err)

	// ASSERT
	_, err = f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: newPassword})
	assert.NoError(t, err)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp := f.registerAndLogin(t)

	require.NoError(t, f.auth.DeleteAccount(ctx, resp.UserID))

	_, err := f.auth.Authenticate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.auth.Profile(ctx, resp.UserID)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, f.auth.DeleteAccount(ctx, resp.UserID), ErrInvalidToken)

	sessions, err := f.sessions.ListByUserID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// The email is free again.
	_, err = f.auth.Register(ctx, RegisterRequest{Email: "ada@example.com", Password: testPassword})
	assert.NoError(t, err)
}

func TestAuthService_ListSessions(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first := f.registerAndLogin(t)

	f.clock.Advance(time.Minute)
	second, err := f.auth.Login(ctx, LoginRequest{Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	claims, err := f.auth.Authenticate(ctx, second.Token)
	require.NoError(t, err)

	sessions, err := f.auth.ListSessions(ctx, first.UserID, claims.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, claims.SessionID, sessions[0].ID)
	assert.True(t, sessions[0].Current)
	assert.False(t, sessions[1].Current)
	assert.True(t, sessions[0].CreatedAt.After(sessions[1].CreatedAt))

	// Expired logins drop out.
	f.clock.Advance(time.Hour - 30*time.Second)
	sessions, err = f.auth.ListSessions(ctx, first.UserID, claims.SessionID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, claims.SessionID, sessions[0].ID)
}
