package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
)

// userRecord is the stored form of a user. The hash is persisted here
// and nowhere else.
type userRecord struct {
	model.User
	PasswordHash string `json:"passwordHash"`
}

// Users returns all users including their password hashes.
func (r *Repository) Users(ctx context.Context) ([]model.User, error) {
	var recs []userRecord
	if _, err := r.readJSON(ctx, KeyUsers, &recs); err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	users := make([]model.User, len(recs))
	for i, rec := range recs {
		users[i] = rec.User
		users[i].PasswordHash = rec.PasswordHash
	}
	return users, nil
}

// User returns a user by ID, or nil if it does not exist.
func (r *Repository) User(ctx context.Context, id string) (*model.User, error) {
	users, err := r.Users(ctx)
	if err != nil {
		return nil, err
	}
	if i := FindUser(users, id); i >= 0 {
		return &users[i], nil
	}
	return nil, nil
}

// UserByEmail returns a user by email (case-insensitive), or nil.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := r.Users(ctx)
	if err != nil {
		return nil, err
	}
	if i := FindUserByEmail(users, email); i >= 0 {
		return &users[i], nil
	}
	return nil, nil
}

// UsersEntry encodes users for writing.
func UsersEntry(users []model.User) (kv.Entry, error) {
	recs := make([]userRecord, len(users))
	for i, u := range users {
		recs[i] = userRecord{User: u, PasswordHash: u.PasswordHash}
	}
	return encode(KeyUsers, recs)
}

// FindUser returns the index of the user with id, or -1.
func FindUser(users []model.User, id string) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

// FindUserByEmail returns the index of the user with email, or -1.
func FindUserByEmail(users []model.User, email string) int {
	email = strings.TrimSpace(email)
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return i
		}
	}
	return -1
}

// Session returns the last signed-in user, or nil.
func (r *Repository) Session(ctx context.Context) (*model.User, error) {
	var u model.User
	ok, err := r.readJSON(ctx, KeySession, &u)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok || u.ID == "" {
		return nil, nil
	}
	return &u, nil
}

// SessionEntry encodes the signed-in user without credentials.
func SessionEntry(u model.User) (kv.Entry, error) {
	u.PasswordHash = ""
	return encode(KeySession, u)
}

// ClearSessionEntry removes the session record.
func ClearSessionEntry() kv.Entry {
	return kv.Entry{Key: KeySession}
}
