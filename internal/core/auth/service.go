package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/frostdev-ops/home-panel-go/internal/core/home"
	"github.com/frostdev-ops/home-panel-go/internal/database/models"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

const invalidCredentials = "Invalid email or password."

// UserStore is the account access the auth service needs
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, actor home.Actor, input home.UserInput) (*models.User, error)
	RecordLogin(ctx context.Context, id string) (*models.User, error)
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// Service handles authentication business logic
type Service struct {
	users       UserStore
	jwtSecret   string
	tokenExpiry int
	bcryptCost  int
	logger      *logrus.Logger
	now         func() time.Time
}

// NewService creates a new authentication service
func NewService(users UserStore, jwtSecret string, tokenExpiry, bcryptCost int, logger *logrus.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:       users,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
		bcryptCost:  bcryptCost,
		logger:      logger,
		now:         time.Now,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SignupRequest represents a registration request
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents a password change from the profile page
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// TokenClaims represents JWT token claims
type TokenClaims struct {
	UserID string      `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Signup creates a user-role account
func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &home.ValidationError{Message: "All fields are required"}
	}
	if len(req.Password) < MinPasswordLength {
		return nil, &home.ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash password")
		return nil, fmt.Errorf("failed to process password")
	}

	user, err := s.users.CreateUser(ctx, home.System, home.UserInput{
		Name:         req.Name,
		Email:        req.Email,
		Role:         models.RoleUser,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered successfully")
	return user, nil
}

// Login checks credentials, records the login time and issues a token.
// A failed attempt leaves the account untouched.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if home.IsNotFound(err) {
			s.logger.WithField("email", req.Email).Warn("Login attempt with unknown email")
			return nil, &home.AuthError{Message: invalidCredentials}
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithField("user_id", user.ID).Warn("Login attempt with incorrect password")
		return nil, &home.AuthError{Message: invalidCredentials}
	}

	token, expiresAt, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	user, err = s.users.RecordLogin(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User logged in successfully")

	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *Service) issueToken(user *models.User) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(time.Duration(s.tokenExpiry) * time.Second)
	claims := &TokenClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    "home-panel",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign JWT token")
		return "", time.Time{}, fmt.Errorf("failed to generate token")
	}
	return signed, expiresAt, nil
}

// ValidateToken checks a token's signature and expiry and returns its claims
func (s *Service) ValidateToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, &home.AuthError{Message: "Invalid or expired token"}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, &home.AuthError{Message: "Invalid token claims"}
}

// Authenticate resolves a token to the current account. The account is
// reloaded so role changes and deletions apply immediately.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if home.IsNotFound(err) {
			return nil, &home.AuthError{Message: "Account no longer exists"}
		}
		return nil, err
	}
	return user, nil
}

// ResolveRole returns the role that gates the user's operations
func ResolveRole(user *models.User) models.Role {
	return user.Role
}

// ActorFor builds the actor used for entity operations
func ActorFor(user *models.User) home.Actor {
	return home.Actor{UserID: user.ID, Role: ResolveRole(user)}
}

// ChangePassword replaces a user's password after checking the current one
func (s *Service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return &home.AuthError{Message: "Current password is incorrect"}
	}
	if len(req.NewPassword) < MinPasswordLength {
		return &home.ValidationError{Field: "new_password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		s.logger.WithError(err).Error("Failed to hash new password")
		return fmt.Errorf("failed to process new password")
	}

	if err := s.users.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		if !home.IsNotFound(err) {
			s.logger.WithError(err).WithField("user_id", userID).Error("Failed to update password")
		}
		return err
	}

	s.logger.WithField("user_id", userID).Info("User password updated successfully")
	return nil
}
