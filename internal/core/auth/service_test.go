package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/memory"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

const testSecret = "test-secret"

func setupAuth(t *testing.T) (*Service, *home.Service) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := home.NewService(memory.New(), logger)
	svc := NewService(users, testSecret, 3600, bcrypt.MinCost, logger)
	return svc, users
}

func createAdmin(t *testing.T, users *home.Service) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := users.CreateUser(context.Background(), home.System, home.UserInput{
		Name:         "Admin User",
		Email:        "admin@example.com",
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func TestLogin_Success(t *testing.T) {
	svc, users := setupAuth(t)
	ctx := context.Background()
	admin := createAdmin(t, users)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "Admin@Example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, admin.ID, resp.User.ID)
	require.NotNil(t, resp.User.LastLogin)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLogin_WrongPasswordLeavesAccountUntouched(t *testing.T) {
	svc, users := setupAuth(t)
	ctx := context.Background()
	admin := createAdmin(t, users)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "wrong-password"})
	assert.Nil(t, resp)
	var authErr *home.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid email or password.", authErr.Message)

	stored, err := users.GetUser(ctx, admin.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastLogin)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := setupAuth(t)

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "nobody@example.com", Password: "password"})
	var authErr *home.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestSignup(t *testing.T) {
	svc, _ := setupAuth(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     SignupRequest
		message string
	}{
		{"missing name", SignupRequest{Email: "a@example.com", Password: "longenough"}, "All fields are required"},
		{"missing email", SignupRequest{Name: "A", Password: "longenough"}, "All fields are required"},
		{"missing password", SignupRequest{Name: "A", Email: "a@example.com"}, "All fields are required"},
		{"short password", SignupRequest{Name: "A", Email: "a@example.com", Password: "short"}, "Password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, &tt.req)
			var ve *home.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.message, ve.Message)
		})
	}

	user, err := svc.Signup(ctx, &SignupRequest{Name: "Jane Doe", Email: "jane.doe@example.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = svc.Signup(ctx, &SignupRequest{Name: "Jane Again", Email: "JANE.DOE@example.com", Password: "password"})
	var ve *home.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Email already exists", ve.Message)

	_, err = svc.Login(ctx, &LoginRequest{Email: "jane.doe@example.com", Password: "password"})
	assert.NoError(t, err)
}

func TestAuthenticate_ReloadsUser(t *testing.T) {
	svc, users := setupAuth(t)
	ctx := context.Background()
	admin := createAdmin(t, users)
	jane, err := svc.Signup(ctx, &SignupRequest{Name: "Jane Doe", Email: "jane@example.com", Password: "password"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Email: "jane@example.com", Password: "password"})
	require.NoError(t, err)

	actor := home.Actor{UserID: admin.ID, Role: models.RoleAdmin}
	_, err = users.SetUserRole(ctx, actor, jane.ID, models.RoleAdmin)
	require.NoError(t, err)

	current, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, ActorFor(current).Role)

	_, err = users.DeleteUser(ctx, actor, jane.ID)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, resp.Token)
	var authErr *home.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc, users := setupAuth(t)
	createAdmin(t, users)
	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "admin@example.com", Password: "password"})
	require.NoError(t, err)

	other := NewService(users, "another-secret", 3600, bcrypt.MinCost, logrus.New())
	_, err = other.ValidateToken(resp.Token)
	assert.Error(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.ValidateToken(resp.Token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	svc, users := setupAuth(t)
	ctx := context.Background()
	admin := createAdmin(t, users)

	err := svc.ChangePassword(ctx, admin.ID, &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "new-password"})
	var authErr *home.AuthError
	require.ErrorAs(t, err, &authErr)

	err = svc.ChangePassword(ctx, admin.ID, &ChangePasswordRequest{CurrentPassword: "password", NewPassword: "short"})
	var ve *home.ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, svc.ChangePassword(ctx, admin.ID, &ChangePasswordRequest{CurrentPassword: "password", NewPassword: "new-password"}))

	_, err = svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "password"})
	assert.Error(t, err)
	_, err = svc.Login(ctx, &LoginRequest{Email: "admin@example.com", Password: "new-password"})
	assert.NoError(t, err)
}
