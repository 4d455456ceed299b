package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// JWTSecret retrieves the JWT secret from storage.
// If no secret exists, it generates one, stores it, and returns it.
func (r *Repository) JWTSecret(ctx context.Context) (string, error) {
	r.Lock()
	defer r.Unlock()

	var secret string
	if ok, err := r.readJSON(ctx, KeyJWTSecret, &secret); err != nil {
		return "", fmt.Errorf("reading jwt secret: %w", err)
	} else if ok && secret != "" {
		return secret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	secret = hex.EncodeToString(buf)

	entry, err := encode(KeyJWTSecret, secret)
	if err != nil {
		return "", err
	}
	if err := r.Apply(ctx, entry); err != nil {
		return "", fmt.Errorf("storing jwt secret: %w", err)
	}
	return secret, nil
}
