package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/mail"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// Sign-in failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPendingApproval    = errors.New("account is pending approval")
	ErrInactive           = errors.New("account is inactive")
)

// Login checks credentials and records the sign-in.
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, model.Invalid("email", "email and password required")
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	i := store.FindUserByEmail(users, email)
	if i < 0 || !auth.CheckPassword(users[i].PasswordHash, password) {
		s.log.Warn("login failed", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}
	u := &users[i]
	if u.Role == model.RoleNewUser {
		return nil, ErrPendingApproval
	}
	if u.Status != model.UserStatusActive {
		return nil, ErrInactive
	}

	u.LastLogin = s.Now()
	usersEntry, err := store.UsersEntry(users)
	if err != nil {
		return nil, err
	}
	sessionEntry, err := store.SessionEntry(*u)
	if err != nil {
		return nil, err
	}

	ctx = activity.WithActor(ctx, activity.Actor{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Role: u.Role})
	if err := s.commit(ctx, "User Logged In", fmt.Sprintf("%s (%s)", u.Name, u.Email), usersEntry, sessionEntry); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	out := *u
	return &out, nil
}

// Logout clears the stored session if it belongs to the current actor.
func (s *Service) Logout(ctx context.Context) error {
	a, ok := activity.ActorFrom(ctx)
	if !ok {
		return nil
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	session, err := s.repo.Session(ctx)
	if err != nil {
		return err
	}
	if session == nil || session.ID != a.ID {
		return nil
	}
	return s.repo.Apply(ctx, store.ClearSessionEntry())
}

// RequestPasswordReset mails a reset link. Unknown addresses are accepted
// silently so the endpoint does not reveal which emails are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	s.repo.Lock()
	users, err := s.repo.Users(ctx)
	if err != nil {
		s.repo.Unlock()
		return err
	}
	i := store.FindUserByEmail(users, email)
	if i < 0 {
		s.repo.Unlock()
		s.log.Info("password reset for unknown email", zap.String("email", email))
		return nil
	}
	u := users[i]

	now := s.Now()
	resets, err := s.repo.PasswordResets(ctx, now)
	if err != nil {
		s.repo.Unlock()
		return err
	}
	token := uuid.NewString()
	resets[token] = store.PasswordReset{UserID: u.ID, ExpiresAt: now.Add(ResetTTL)}
	entry, err := store.PasswordResetsEntry(resets)
	if err == nil {
		err = s.repo.Apply(ctx, entry)
	}
	s.repo.Unlock()
	if err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}

	link := strings.TrimRight(s.PublicURL, "/") + "/reset-password?token=" + token
	msg, err := mail.PasswordReset(u.Email, u.Name, link, ResetTTL)
	if err != nil {
		return err
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. Tokens are single use.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password, s.HashCost)
	if err != nil {
		return err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	resets, err := s.repo.PasswordResets(ctx, s.Now())
	if err != nil {
		return err
	}
	reset, ok := resets[token]
	if !ok {
		return model.Invalid("token", "reset link is invalid or has expired")
	}
	delete(resets, token)

	users, err := s.repo.Users(ctx)
	if err != nil {
		return err
	}
	i := store.FindUser(users, reset.UserID)
	if i < 0 {
		return fmt.Errorf("user %s: %w", reset.UserID, model.ErrNotFound)
	}
	users[i].PasswordHash = hash

	usersEntry, err := store.UsersEntry(users)
	if err != nil {
		return err
	}
	resetsEntry, err := store.PasswordResetsEntry(resets)
	if err != nil {
		return err
	}
	u := users[i]
	ctx = activity.WithActor(ctx, activity.Actor{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, Role: u.Role})
	return s.commit(ctx, "Password Reset", fmt.Sprintf("%s (%s)", u.Name, u.Email), usersEntry, resetsEntry)
}
