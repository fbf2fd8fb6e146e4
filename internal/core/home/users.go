package home

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/home-panel-go/internal/database/models"
	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

// UserInput is the payload for creating an account. The password must
// already be hashed.
type UserInput struct {
	Name         string      `json:"name" validate:"required,max=100"`
	Email        string      `json:"email" validate:"required,email"`
	Role         models.Role `json:"role" validate:"omitempty,oneof=admin user"`
	PasswordHash string      `json:"-" validate:"required"`
}

// ListUsers returns every account; admin only
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]*models.User, error) {
	if err := requireAdmin(actor, "list users"); err != nil {
		return nil, err
	}
	var users []*models.User
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		users, err = tx.Users().GetAll()
		return err
	})
	for _, u := range users {
		decorateUser(u)
	}
	return users, err
}

// GetUser returns one account
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		user, err = tx.Users().GetByID(id)
		return notFoundOr(err, KindUser, id)
	})
	if err != nil {
		return nil, err
	}
	decorateUser(user)
	return user, nil
}

// FindUserByEmail looks an account up by email, ignoring case
func (s *Service) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	var user *models.User
	err := s.view(ctx, func(tx repositories.Tx) error {
		var err error
		user, err = tx.Users().GetByEmail(email)
		return notFoundOr(err, KindUser, email)
	})
	if err != nil {
		return nil, err
	}
	decorateUser(user)
	return user, nil
}

// CreateUser adds an account, defaulting the role to user
func (s *Service) CreateUser(ctx context.Context, actor Actor, input UserInput) (*models.User, error) {
	if err := requireAdmin(actor, "create users"); err != nil {
		return nil, err
	}
	if err := s.check(input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	user := &models.User{
		ID:           s.newID(),
		Name:         strings.TrimSpace(input.Name),
		Email:        models.NormalizeEmail(input.Email),
		Role:         input.Role,
		PasswordHash: input.PasswordHash,
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	_, err := s.mutate(ctx, "create_user", actor, func(tx repositories.Tx, change *ChangeSet) error {
		if err := tx.Users().Create(user); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return &ValidationError{Message: "Email already exists"}
			}
			return err
		}
		change.Users = append(change.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	decorateUser(user)
	return user, nil
}

// SetUserRole changes an account's role. Admins cannot demote themselves.
func (s *Service) SetUserRole(ctx context.Context, actor Actor, id string, role models.Role) (*models.User, error) {
	if err := requireAdmin(actor, "change user roles"); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, &ValidationError{Field: "role", Message: "must be one of admin user"}
	}
	if id == actor.UserID && role != models.RoleAdmin {
		return nil, &ValidationError{Field: "role", Message: "You cannot remove your own admin role"}
	}

	var user *models.User
	_, err := s.mutate(ctx, "set_user_role", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if user, err = tx.Users().GetByID(id); err != nil {
			return notFoundOr(err, KindUser, id)
		}
		user.Role = role
		if err := tx.Users().Update(user); err != nil {
			return err
		}
		change.Users = append(change.Users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	decorateUser(user)

	s.log.WithFields(logrus.Fields{
		"user_id": id,
		"role":    role,
		"actor":   actor.UserID,
	}).Info("User role updated")
	return user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if err := requireAdmin(actor, "delete users"); err != nil {
		return nil, err
	}
	if id == actor.UserID {
		return nil, &ValidationError{Message: "You cannot delete your own account"}
	}

	var user *models.User
	_, err := s.mutate(ctx, "delete_user", actor, func(tx repositories.Tx, change *ChangeSet) error {
		var err error
		if user, err = tx.Users().GetByID(id); err != nil {
			return notFoundOr(err, KindUser, id)
		}
		if err := tx.Users().Delete(id); err != nil {
			return notFoundOr(err, KindUser, id)
		}
		change.Removed = append(change.Removed, Ref{Kind: KindUser, ID: id})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RecordLogin stamps the account's last login time
func (s *Service) RecordLogin(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := storeError(s.store.Update(ctx, func(tx repositories.Tx) error {
		var err error
		if user, err = tx.Users().GetByID(id); err != nil {
			return notFoundOr(err, KindUser, id)
		}
		ts := s.now()
		user.LastLogin = &ts
		return tx.Users().Update(user)
	}))
	if err != nil {
		return nil, err
	}
	decorateUser(user)
	return user, nil
}

// SetPasswordHash replaces an account's password hash
func (s *Service) SetPasswordHash(ctx context.Context, id, hash string) error {
	return storeError(s.store.Update(ctx, func(tx repositories.Tx) error {
		user, err := tx.Users().GetByID(id)
		if err != nil {
			return notFoundOr(err, KindUser, id)
		}
		user.PasswordHash = hash
		return tx.Users().Update(user)
	}))
}
