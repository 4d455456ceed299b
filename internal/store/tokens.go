package store

import (
	"context"
	"fmt"
	"time"

	"github.com/erazemk/inventar/internal/kv"
)

// RevokeToken adds a token's JTI to the revocation list.
func (r *Repository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	r.Lock()
	defer r.Unlock()

	revoked, err := r.revokedTokens(ctx)
	if err != nil {
		return err
	}

	// Opportunistically clean up expired revocations.
	now := time.Now()
	for k, exp := range revoked {
		if exp.Before(now) {
			delete(revoked, k)
		}
	}
	revoked[jti] = expiresAt

	entry, err := encode(KeyRevokedTokens, revoked)
	if err != nil {
		return err
	}
	if err := r.Apply(ctx, entry); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func (r *Repository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	revoked, err := r.revokedTokens(ctx)
	if err != nil {
		return false, err
	}
	_, ok := revoked[jti]
	return ok, nil
}

func (r *Repository) revokedTokens(ctx context.Context) (map[string]time.Time, error) {
	revoked := map[string]time.Time{}
	if _, err := r.readJSON(ctx, KeyRevokedTokens, &revoked); err != nil {
		return nil, fmt.Errorf("checking token revocation: %w", err)
	}
	if revoked == nil {
		revoked = map[string]time.Time{}
	}
	return revoked, nil
}

// PasswordReset is a pending password reset request.
type PasswordReset struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// PasswordResets returns pending resets keyed by token, without expired ones.
func (r *Repository) PasswordResets(ctx context.Context, now time.Time) (map[string]PasswordReset, error) {
	resets := map[string]PasswordReset{}
	if _, err := r.readJSON(ctx, KeyPasswordResets, &resets); err != nil {
		return nil, fmt.Errorf("reading password resets: %w", err)
	}
	if resets == nil {
		resets = map[string]PasswordReset{}
	}
	for k, v := range resets {
		if !v.ExpiresAt.After(now) {
			delete(resets, k)
		}
	}
	return resets, nil
}

// PasswordResetsEntry encodes pending resets.
func PasswordResetsEntry(resets map[string]PasswordReset) (kv.Entry, error) {
	return encode(KeyPasswordResets, resets)
}
