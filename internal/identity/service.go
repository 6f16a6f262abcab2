// Package identity provides account registration, password authentication,
// and account lifecycle.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"inkwell/api/internal/email"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"

	"golang.org/x/crypto/bcrypt"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,31}$`)

// UserStore defines the storage interface for identity
type UserStore interface {
	CreateUser(ctx context.Context, user store.User) error
	GetUser(ctx context.Context, userID string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	DeactivateUser(ctx context.Context, userID string) error
	ReactivateUser(ctx context.Context, userID string) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
}

// Service provides account management
type Service struct {
	store  UserStore
	mailer *email.Service
}

// NewService creates a new identity service. mailer may be nil.
func NewService(store UserStore, mailer *email.Service) *Service {
	return &Service{store: store, mailer: mailer}
}

// RegisterRequest contains registration parameters
type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Register creates a new user account
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return store.User{}, errors.New("username, email, and password are required")
	}
	if !usernamePattern.MatchString(req.Username) {
		return store.User{}, errors.New("username must be 3-32 characters: lowercase letters, digits, - or _")
	}
	if !strings.Contains(req.Email, "@") {
		return store.User{}, errors.New("invalid email address")
	}
	if len(req.Password) < 8 {
		return store.User{}, errors.New("password must be at least 8 characters")
	}

	// Check for existing accounts before hitting the unique constraints
	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return store.User{}, errors.New("username already taken")
	}
	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return store.User{}, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return store.User{}, errors.New("username or email already registered")
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	if s.mailer != nil && s.mailer.IsConfigured() {
		go func() {
			if err := s.mailer.SendWelcomeEmail(user.Email, user.DisplayName); err != nil {
				log.Printf("identity: send welcome email to %s: %v", user.ID, err)
			}
		}()
	}

	return user, nil
}

// Authenticate verifies credentials by email and returns the user. A
// deactivated account cannot sign in.
func (s *Service) Authenticate(ctx context.Context, emailAddr, password string) (store.User, error) {
	if emailAddr == "" || password == "" {
		return store.User{}, errors.New("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		return store.User{}, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, errors.New("invalid email or password")
	}
	if !user.Active() {
		return store.User{}, errors.New("account is deactivated")
	}

	return user, nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return errors.New("user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return errors.New("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Deactivate marks the account inactive. The user's content stays stored
// but stops counting toward stars and comment totals.
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	if err := s.store.DeactivateUser(ctx, userID); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// Reactivate restores a deactivated account.
func (s *Service) Reactivate(ctx context.Context, userID string) error {
	if err := s.store.ReactivateUser(ctx, userID); err != nil {
		return fmt.Errorf("reactivate user: %w", err)
	}
	return nil
}
