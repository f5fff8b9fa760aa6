// Package accounts registers users and manages their sessions.
package accounts

import (
	"fmt"
	"strings"
	"time"

	"learngate/internal/util"
	"learngate/pkg/auth"
	"learngate/pkg/domain"
	"learngate/pkg/store"
)

const minPasswordLen = 8

// Service wires user storage and session issuance.
type Service struct {
	users    store.UserStore
	sessions store.SessionStore
	now      func() time.Time
}

// New constructs the accounts service.
func New(users store.UserStore, sessions store.SessionStore) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user and issues a session token. Self registration is
// limited to the trainee and trainer roles; super admins are provisioned
// out of band.
func (s *Service) Register(email, password, name string, role domain.Role) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.User{}, "", ErrEmailAndPasswordRequired
	}
	if len(password) < minPasswordLen {
		return domain.User{}, "", ErrWeakPassword
	}
	if role == "" {
		role = domain.RoleTrainee
	}
	if role != domain.RoleTrainee && role != domain.RoleTrainer {
		return domain.User{}, "", ErrBadRole
	}
	exists, err := s.users.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, "", ErrEmailAlreadyExists
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and issues a session token.
func (s *Service) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := s.users.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (s *Service) Logout(token string) error {
	return s.sessions.DeleteSession(token)
}

// FromToken resolves a user from a session token.
func (s *Service) FromToken(token string) (domain.User, bool) {
	uid, ok, err := s.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := s.users.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}
