// Package users manages accounts: signup and approval, administration,
// sign-in, profiles and password resets.
package users

import (
	"context"
	"fmt"
	"math/rand/v2"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/mail"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ResetTTL is how long a password reset link stays valid.
const ResetTTL = time.Hour

// Service owns account mutations.
type Service struct {
	repo *store.Repository
	rec  *activity.Recorder
	mail mail.Sender
	log  *zap.Logger

	// Now returns the current time. Tests replace it.
	Now func() time.Time
	// HashCost is the bcrypt cost; zero uses the library default.
	HashCost int
	// PublicURL is the base URL used in password reset links.
	PublicURL string
}

// NewService creates an account service. A nil sender logs mail instead of sending it.
func NewService(repo *store.Repository, rec *activity.Recorder, sender mail.Sender, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if sender == nil {
		sender = mail.LogSender{Log: log}
	}
	return &Service{
		repo:      repo,
		rec:       rec,
		mail:      sender,
		log:       log,
		Now:       time.Now,
		PublicURL: "http://localhost:8080",
	}
}

// Input holds the fields an administrator can set on a user.
type Input struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
	RegdNum   string `json:"regdNum"`
}

// Profile holds the fields users can change on their own account.
type Profile struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Phone     string `json:"phone"`
	RegdNum   string `json:"regdNum"`
}

func validateName(name string) error {
	if utf8.RuneCountInString(name) < 2 {
		return model.Invalid("name", "name must be at least 2 characters")
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.Invalid("email", "invalid email address")
	}
	return strings.ToLower(email), nil
}

func validateStatus(status string) error {
	if status != model.UserStatusActive && status != model.UserStatusInactive {
		return model.Invalid("status", "status must be %s or %s", model.UserStatusActive, model.UserStatusInactive)
	}
	return nil
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]model.User, error) {
	return s.repo.Users(ctx)
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.User(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	return u, nil
}

// Pending returns accounts waiting for approval.
func (s *Service) Pending(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.User
	for _, u := range users {
		if u.Role == model.RoleNewUser {
			out = append(out, u)
		}
	}
	return out, nil
}

// Register signs up a new account. It stays inactive until approved.
func (s *Service) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	return s.create(ctx, Input{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     model.RoleNewUser,
		Status:   model.UserStatusInactive,
	}, "User Registered")
}

// Create adds an account directly. Super Admin only.
func (s *Service) Create(ctx context.Context, in Input) (*model.User, error) {
	if err := requireRole(ctx, model.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleMember
	}
	if in.Status == "" {
		in.Status = model.UserStatusActive
	}
	return s.create(ctx, in, "User Created")
}

// Bootstrap creates the first Super Admin. It fails with ErrConflict when
// any user already exists.
func (s *Service) Bootstrap(ctx context.Context, name, email, password string) (*model.User, error) {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return nil, fmt.Errorf("users already exist: %w", model.ErrConflict)
	}
	return s.create(ctx, Input{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     model.RoleSuperAdmin,
		Status:   model.UserStatusActive,
	}, "User Created")
}

func (s *Service) create(ctx context.Context, in Input, action string) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := model.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if !model.ValidRole(in.Role) {
		return nil, model.Invalid("role", "unknown role %q", in.Role)
	}
	if err := validateStatus(in.Status); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.HashCost)
	if err != nil {
		return nil, err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	if store.FindUserByEmail(users, email) >= 0 {
		return nil, model.Invalid("email", "email is already registered")
	}

	u := model.User{
		ID:           newUserID(users),
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       in.Status,
		AvatarURL:    strings.TrimSpace(in.AvatarURL),
		Phone:        strings.TrimSpace(in.Phone),
		RegdNum:      strings.TrimSpace(in.RegdNum),
	}
	users = append(users, u)

	entry, err := store.UsersEntry(users)
	if err != nil {
		return nil, err
	}
	details := fmt.Sprintf("%s (%s) as %s", u.Name, u.Email, u.Role)
	if err := s.commit(ctx, action, details, entry); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &u, nil
}

// Update changes any field of a user. Super Admin only. A blank password
// keeps the current one.
func (s *Service) Update(ctx context.Context, id string, in Input) (*model.User, error) {
	if err := requireRole(ctx, model.RoleSuperAdmin); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if !model.ValidRole(in.Role) {
		return nil, model.Invalid("role", "unknown role %q", in.Role)
	}
	if err := validateStatus(in.Status); err != nil {
		return nil, err
	}
	var hash string
	if in.Password != "" {
		if err := model.ValidatePassword(in.Password); err != nil {
			return nil, err
		}
		if hash, err = auth.HashPassword(in.Password, s.HashCost); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, id, "User Updated", func(users []model.User, u *model.User) error {
		if j := store.FindUserByEmail(users, email); j >= 0 && users[j].ID != id {
			return model.Invalid("email", "email is already registered")
		}
		u.Name = in.Name
		u.Email = email
		u.Role = in.Role
		u.Status = in.Status
		u.AvatarURL = strings.TrimSpace(in.AvatarURL)
		u.Phone = strings.TrimSpace(in.Phone)
		u.RegdNum = strings.TrimSpace(in.RegdNum)
		if hash != "" {
			u.PasswordHash = hash
		}
		return nil
	})
}

// Approve turns a pending account into an active General Member. Admin and up.
func (s *Service) Approve(ctx context.Context, id string) (*model.User, error) {
	if err := requireRole(ctx, model.RoleAdmin); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, "User Approved", func(_ []model.User, u *model.User) error {
		if u.Role != model.RoleNewUser {
			return fmt.Errorf("user %s is not pending approval: %w", id, model.ErrConflict)
		}
		u.Role = model.RoleMember
		u.Status = model.UserStatusActive
		return nil
	})
}

// Deny removes a pending account. Admin and up.
func (s *Service) Deny(ctx context.Context, id string) error {
	if err := requireRole(ctx, model.RoleAdmin); err != nil {
		return err
	}
	return s.remove(ctx, id, "User Denied", func(u model.User) error {
		if u.Role != model.RoleNewUser {
			return fmt.Errorf("user %s is not pending approval: %w", id, model.ErrConflict)
		}
		return nil
	})
}

// Delete removes an account. Super Admin only; nobody can delete
// themselves and confirm must be "delete".
func (s *Service) Delete(ctx context.Context, id, confirm string) error {
	if err := requireRole(ctx, model.RoleSuperAdmin); err != nil {
		return err
	}
	if !model.Confirmed(confirm) {
		return model.Invalid("confirm", "type %q to confirm", model.ConfirmDelete)
	}
	if a, _ := activity.ActorFrom(ctx); a.ID == id {
		return model.Invalid("id", "you cannot delete your own account")
	}
	return s.remove(ctx, id, "User Deleted", nil)
}

// UpdateProfile changes the current user's own profile.
func (s *Service) UpdateProfile(ctx context.Context, p Profile) (*model.User, error) {
	a, ok := activity.ActorFrom(ctx)
	if !ok {
		return nil, model.ErrForbidden
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := validateName(p.Name); err != nil {
		return nil, err
	}
	return s.mutate(ctx, a.ID, "Profile Updated", func(_ []model.User, u *model.User) error {
		u.Name = p.Name
		u.AvatarURL = strings.TrimSpace(p.AvatarURL)
		u.Phone = strings.TrimSpace(p.Phone)
		u.RegdNum = strings.TrimSpace(p.RegdNum)
		return nil
	})
}

// ChangePassword changes the current user's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	a, ok := activity.ActorFrom(ctx)
	if !ok {
		return model.ErrForbidden
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}
	hash, err := auth.HashPassword(next, s.HashCost)
	if err != nil {
		return err
	}
	_, err = s.mutate(ctx, a.ID, "Password Changed", func(_ []model.User, u *model.User) error {
		if !auth.CheckPassword(u.PasswordHash, current) {
			return model.Invalid("currentPassword", "current password is incorrect")
		}
		u.PasswordHash = hash
		return nil
	})
	return err
}

// mutate applies fn to the user with id and writes users and a log entry.
func (s *Service) mutate(ctx context.Context, id, action string, fn func(users []model.User, u *model.User) error) (*model.User, error) {
	s.repo.Lock()
	defer s.repo.Unlock()

	users, err := s.repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	i := store.FindUser(users, id)
	if i < 0 {
		return nil, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	if err := fn(users, &users[i]); err != nil {
		return nil, err
	}

	entry, err := store.UsersEntry(users)
	if err != nil {
		return nil, err
	}
	details := fmt.Sprintf("%s (%s)", users[i].Name, users[i].Email)
	if err := s.commit(ctx, action, details, entry); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	u := users[i]
	return &u, nil
}

func (s *Service) remove(ctx context.Context, id, action string, check func(model.User) error) error {
	s.repo.Lock()
	defer s.repo.Unlock()

	users, err := s.repo.Users(ctx)
	if err != nil {
		return err
	}
	i := store.FindUser(users, id)
	if i < 0 {
		return fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	u := users[i]
	if check != nil {
		if err := check(u); err != nil {
			return err
		}
	}
	users = append(users[:i], users[i+1:]...)

	entry, err := store.UsersEntry(users)
	if err != nil {
		return err
	}
	entries := []kv.Entry{entry}
	if session, err := s.repo.Session(ctx); err == nil && session != nil && session.ID == id {
		entries = append(entries, store.ClearSessionEntry())
	}

	details := fmt.Sprintf("%s (%s)", u.Name, u.Email)
	if err := s.commit(ctx, action, details, entries...); err != nil {
		return fmt.Errorf("removing user: %w", err)
	}
	return nil
}

// commit writes entries with a log entry and publishes users-updated.
// The caller must hold the repository lock.
func (s *Service) commit(ctx context.Context, action, details string, entries ...kv.Entry) error {
	logEntry, err := s.rec.Append(ctx, action, details)
	if err != nil {
		return err
	}
	if err := s.repo.Apply(ctx, append(entries, logEntry)...); err != nil {
		return err
	}
	s.rec.Notify(ctx, events.UsersUpdated, events.LogsUpdated)
	return nil
}

func requireRole(ctx context.Context, minimum string) error {
	a, ok := activity.ActorFrom(ctx)
	if !ok || !model.RoleAtLeast(a.Role, minimum) {
		return model.ErrForbidden
	}
	return nil
}

func newUserID(users []model.User) string {
	used := make(map[string]bool, len(users))
	for _, u := range users {
		used[u.ID] = true
	}
	for range 100 {
		id := fmt.Sprintf("USR-%04d", 1000+rand.IntN(9000))
		if !used[id] {
			return id
		}
	}
	n := len(users) + 1000
	for used[fmt.Sprintf("USR-%d", n)] {
		n++
	}
	return fmt.Sprintf("USR-%d", n)
}
