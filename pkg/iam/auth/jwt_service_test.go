package auth_test

import (
	"testing"
	"time"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
	"github.com/garagelink/drivescan/pkg/iam/auth"
	"github.com/garagelink/drivescan/pkg/kernel"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 0, 0, "")
	userID := kernel.NewUserID("user-1")

	token, err := svc.GenerateAccessToken(userID)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user %q, got %q", userID, claims.UserID)
	}
	if claims.Type != auth.TokenTypeAccess {
		t.Fatalf("expected access token type, got %q", claims.Type)
	}
}

func TestRefreshTokenCarriesTypeTag(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 0, 0, "")

	token, err := svc.GenerateRefreshToken(kernel.NewUserID("user-1"))
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Type != auth.TokenTypeRefresh {
		t.Fatalf("expected refresh token type, got %q", claims.Type)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret", -time.Minute, 0, "")

	token, err := svc.GenerateAccessToken(kernel.NewUserID("user-1"))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = svc.Verify(token)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	e, ok := errx.As(err)
	if !ok || e.Code != iam.CodeTokenExpired.Code {
		t.Fatalf("expected token expired error, got %v", err)
	}
	if e.Message != "Token expired." {
		t.Fatalf("expected wire message %q, got %q", "Token expired.", e.Message)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewJWTService("secret-a", 0, 0, "")
	verifier := auth.NewJWTService("secret-b", 0, 0, "")

	token, err := issuer.GenerateAccessToken(kernel.NewUserID("user-1"))
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	_, err = verifier.Verify(token)
	if err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
	e, ok := errx.As(err)
	if !ok || e.Code != iam.CodeInvalidToken.Code {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := auth.NewJWTService("test-secret", 0, 0, "")

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Verify(token); err == nil {
			t.Fatalf("expected error for token %q", token)
		}
	}
}
