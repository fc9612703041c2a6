package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"projector-tracker/internal/domain"
)

func testUser() domain.User {
	return domain.User{
		ID:         "u1",
		Email:      "faculty@cse.edu",
		Role:       domain.RoleFaculty,
		IsVerified: true,
	}
}

func TestJWTService_IssueParseSession(t *testing.T) {
	ctx := context.Background()
	svc := NewJWTServiceWithStore("secret", time.Hour, time.Hour, NewMemorySessionStore())

	tok, err := svc.IssueSession(ctx, testUser())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if tok.Token == "" || tok.ID == "" {
		t.Fatalf("expected token and jti")
	}

	claims, err := svc.ParseSession(ctx, tok.Token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "faculty@cse.edu" || claims.Role != domain.RoleFaculty || !claims.Verified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != claims.UserID {
		t.Fatalf("expected sub = uid")
	}
}

func TestJWTService_RevokeSession(t *testing.T) {
	ctx := context.Background()
	svc := NewJWTServiceWithStore("secret", time.Hour, time.Hour, NewMemorySessionStore())

	tok, err := svc.IssueSession(ctx, testUser())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if err := svc.RevokeSession(ctx, tok.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := svc.ParseSession(ctx, tok.Token); !errors.Is(err, ErrJWTRevoked) {
		t.Fatalf("expected ErrJWTRevoked, got %v", err)
	}
	if err := svc.RevokeSession(ctx, tok.Token); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
}

func TestJWTService_TokenTypesAreNotInterchangeable(t *testing.T) {
	ctx := context.Background()
	svc := NewJWTService("secret", time.Hour, time.Hour)

	verify, err := svc.IssueVerification(testUser())
	if err != nil {
		t.Fatalf("issue verification: %v", err)
	}
	if _, err := svc.ParseSession(ctx, verify); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("verification token must not open a session, got %v", err)
	}

	session, err := svc.IssueSession(ctx, testUser())
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if _, err := svc.ParseVerification(session.Token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("session token must not verify email, got %v", err)
	}

	claims, err := svc.ParseVerification(verify)
	if err != nil {
		t.Fatalf("parse verification: %v", err)
	}
	if claims.TokenType != TokenTypeVerify {
		t.Fatalf("unexpected type %q", claims.TokenType)
	}
}

func TestJWTService_Expired(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	svc := NewJWTService("secret", time.Hour, 24*time.Hour)
	svc.now = func() time.Time { return now }

	verify, err := svc.IssueVerification(testUser())
	if err != nil {
		t.Fatalf("issue verification: %v", err)
	}
	now = now.Add(25 * time.Hour)
	if _, err := svc.ParseVerification(verify); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, time.Hour)

	claims := Claims{
		UserID:    "u1",
		TokenType: TokenTypeVerify,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ParseVerification(signed); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected issuer mismatch to be invalid, got %v", err)
	}

	other := NewJWTService("other-secret", time.Hour, time.Hour)
	token, err := other.IssueVerification(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ParseVerification(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected signature mismatch to be invalid, got %v", err)
	}

	empty := NewJWTService("", time.Hour, time.Hour)
	if _, err := empty.IssueSession(context.Background(), testUser()); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected empty secret to fail, got %v", err)
	}
}
