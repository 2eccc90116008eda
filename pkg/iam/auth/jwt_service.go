package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/kernel"
)

// TokenType distinguishes access tokens from refresh tokens. The tag is
// checked explicitly wherever a refresh token is required; a validly signed
// access token is never accepted in its place.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the verified content of a token.
type TokenClaims struct {
	UserID    kernel.UserID
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTService issues and verifies HS256 tokens over a process-wide secret.
// It is stateless: validity is purely a function of signature and expiry.
type JWTService struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

// NewJWTService creates a token service. Zero TTLs fall back to the
// conventional 15 minute / 7 day windows.
func NewJWTService(secretKey string, accessTTL, refreshTTL time.Duration, issuer string) *JWTService {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if issuer == "" {
		issuer = "drivescan"
	}

	return &JWTService{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
	}
}

// jwtClaims is the wire format. The type claim is omitted on access tokens
// for compatibility with clients that predate refresh tokens.
type jwtClaims struct {
	UserID    kernel.UserID `json:"userId"`
	TokenType string        `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a short-lived access token for the subject.
func (j *JWTService) GenerateAccessToken(userID kernel.UserID) (string, error) {
	return j.generate(userID, "", j.accessTTL)
}

// GenerateRefreshToken signs a long-lived refresh token for the subject.
func (j *JWTService) GenerateRefreshToken(userID kernel.UserID) (string, error) {
	return j.generate(userID, string(TokenTypeRefresh), j.refreshTTL)
}

func (j *JWTService) generate(userID kernel.UserID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwtClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		// Signing fails only on key misconfiguration; nothing user-facing.
		return "", errx.Wrap(err, "failed to sign token", errx.TypeInternal)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Expired tokens fail with iam.ErrTokenExpired, everything else invalid
// with iam.ErrInvalidToken, so callers can surface distinct messages.
func (j *JWTService) Verify(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, iam.ErrTokenExpired()
		}
		return nil, iam.ErrInvalidToken()
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, iam.ErrInvalidToken()
	}

	tokenType := TokenTypeAccess
	switch claims.TokenType {
	case "":
		// access tokens carry no type tag
	case string(TokenTypeRefresh):
		tokenType = TokenTypeRefresh
	default:
		return nil, iam.ErrInvalidToken()
	}

	out := &TokenClaims{
		UserID: claims.UserID,
		Type:   tokenType,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
