// Package authpw provides email/password sign-in for dashboard users.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eagleeye/api/internal/rbac"
	"eagleeye/api/internal/store"
	"eagleeye/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Service provides email/password authentication
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	EnsureUser(ctx context.Context, user store.User) error
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignIn returns the user when the password matches the stored hash.
func (s *Service) SignIn(ctx context.Context, email, password string) (store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return store.User{}, errors.New("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// EnsureUser creates the account with a hashed password unless the email is
// already registered. Existing accounts are left untouched.
func (s *Service) EnsureUser(ctx context.Context, email, name, password string, role rbac.Role) error {
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if name == "" {
		name = email
	}
	return s.store.EnsureUser(ctx, store.User{
		ID:           util.NewID("usr"),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         string(rbac.Normalize(string(role))),
	})
}
