package auth

import (
	"context"

	"github.com/garagelink/drivescan/pkg/kernel"
)

// TokenService defines the contract for token issuance and verification.
type TokenService interface {
	GenerateAccessToken(userID kernel.UserID) (string, error)
	GenerateRefreshToken(userID kernel.UserID) (string, error)
	Verify(token string) (*TokenClaims, error)
}

// PasswordService defines the contract for password hashing.
type PasswordService interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// LoginThrottle limits repeated failed logins per principal.
type LoginThrottle interface {
	// Hit records an attempt and reports whether the caller is over limit.
	Hit(ctx context.Context, key string) (bool, error)

	// Reset clears the counter after a successful login.
	Reset(ctx context.Context, key string) error
}
