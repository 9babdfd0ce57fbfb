package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeResetRepo, *recordingDispatcher) {
	t.Helper()
	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewAuthService(testConfig(), AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: resets,
		Dispatcher:        dispatcher,
	})
	return svc, users, resets, dispatcher
}

func registerApproved(t *testing.T, svc *AuthService, users *fakeUserRepo, email, password string) *domain.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Casey",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	ok, err := users.UpdateStatus(context.Background(), user.ID, domain.UserStatusPending, domain.UserStatusApproved)
	require.NoError(t, err)
	require.True(t, ok)
	user.Status = domain.UserStatusApproved
	return user
}

func TestRegisterStartsPending(t *testing.T) {
	svc, _, _, dispatcher := newAuthFixture(t)

	user, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Casey",
		LastName:  "Client",
		Email:     "  Casey@Example.COM ",
		Password:  "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "casey@example.com", user.Email)
	assert.Equal(t, domain.UserStatusPending, user.Status)
	assert.NotEqual(t, "secret123", user.PasswordHash)
	assert.Contains(t, dispatcher.typesSeen(), events.EventUserRegistered)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Casey", Email: "casey@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		FirstName: "Other", Email: "CASEY@example.com", Password: "different",
	})
	require.Error(t, err)
	assert.Equal(t, "DUPLICATE_KEY", domainCode(t, err))
}

func TestLogin(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	user := registerApproved(t, svc, users, "casey@example.com", "secret123")

	logged, token, exp, err := svc.Login(context.Background(), "casey@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))
	assert.NotNil(t, logged.LastLoginAt)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, domain.RoleClient, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	registerApproved(t, svc, users, "casey@example.com", "secret123")

	_, _, _, err := svc.Login(context.Background(), "casey@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))

	_, _, _, err = svc.Login(context.Background(), "nobody@example.com", "secret123")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestLoginRequiresApprovedAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Casey", Email: "casey@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), "casey@example.com", "secret123")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))
}

func TestChangePassword(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	user := registerApproved(t, svc, users, "casey@example.com", "secret123")

	err := svc.ChangePassword(context.Background(), user, "wrong", "newpass456")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", domainCode(t, err))

	require.NoError(t, svc.ChangePassword(context.Background(), user, "secret123", "newpass456"))

	_, _, _, err = svc.Login(context.Background(), "casey@example.com", "newpass456")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)
	registerApproved(t, svc, users, "casey@example.com", "secret123")

	token, err := svc.RequestPasswordReset(context.Background(), "casey@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.True(t, token.ExpiresAt.After(time.Now()))

	require.NoError(t, svc.ConfirmPasswordReset(context.Background(), token.Token, "newpass456"))

	_, _, _, err = svc.Login(context.Background(), "casey@example.com", "newpass456")
	require.NoError(t, err)

	// tokens are single use
	err = svc.ConfirmPasswordReset(context.Background(), token.Token, "thirdpass789")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestPasswordResetExpiredToken(t *testing.T) {
	svc, users, resets, _ := newAuthFixture(t)
	user := registerApproved(t, svc, users, "casey@example.com", "secret123")

	tokenRow := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, resets.Create(context.Background(), tokenRow))

	err := svc.ConfirmPasswordReset(context.Background(), tokenRow.Token, "newpass456")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := auth.HashPassword("secret123", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, auth.ComparePassword(hash, "secret123"))
	require.Error(t, auth.ComparePassword(hash, "other"))
}
