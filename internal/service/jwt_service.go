package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"projector-tracker/internal/domain"
)

const (
	TokenTypeSession = "session"
	TokenTypeVerify  = "verify"

	defaultSessionTTL = 7 * 24 * time.Hour
	defaultVerifyTTL  = 24 * time.Hour
)

// JWTService emite y valida tokens JWT.
type JWTService struct {
	secret     []byte
	sessionTTL time.Duration
	verifyTTL  time.Duration
	issuer     string
	store      SessionStore
	now        func() time.Time
}

// SessionToken es el token de sesión devuelto al cliente.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	ID        string    `json:"-"`
}

type Claims struct {
	UserID    string      `json:"uid"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Verified  bool        `json:"verified"`
	TokenType string      `json:"typ"`
	jwt.RegisteredClaims
}

// Actor convierte los claims en la identidad usada por los servicios.
func (c Claims) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
	ErrJWTRevoked = errors.New("jwt revoked")
)

func NewJWTService(secret string, sessionTTL, verifyTTL time.Duration) *JWTService {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	if verifyTTL <= 0 {
		verifyTTL = defaultVerifyTTL
	}
	return &JWTService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		verifyTTL:  verifyTTL,
		issuer:     "projector-tracker",
		store:      NewMemorySessionStore(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func NewJWTServiceWithStore(secret string, sessionTTL, verifyTTL time.Duration, store SessionStore) *JWTService {
	svc := NewJWTService(secret, sessionTTL, verifyTTL)
	if store != nil {
		svc.store = store
	}
	return svc
}

// IssueSession firma un token de sesión y registra su jti.
func (s *JWTService) IssueSession(ctx context.Context, user domain.User) (SessionToken, error) {
	if len(s.secret) == 0 {
		return SessionToken{}, ErrJWTInvalid
	}
	now := s.now()
	jti := uuid.NewString()
	signed, err := s.signToken(user, now, s.sessionTTL, TokenTypeSession, jti)
	if err != nil {
		return SessionToken{}, err
	}
	if s.store != nil {
		if err := s.store.Store(ctx, jti, user.ID, s.sessionTTL); err != nil {
			return SessionToken{}, err
		}
	}
	return SessionToken{
		Token:     signed,
		ExpiresAt: now.Add(s.sessionTTL),
		ID:        jti,
	}, nil
}

// IssueVerification firma el token del enlace de verificación de correo.
func (s *JWTService) IssueVerification(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrJWTInvalid
	}
	return s.signToken(user, s.now(), s.verifyTTL, TokenTypeVerify, "")
}

func (s *JWTService) ParseSession(ctx context.Context, token string) (Claims, error) {
	claims, err := s.parseTyped(token, TokenTypeSession)
	if err != nil {
		return Claims{}, err
	}
	if claims.ID == "" || s.store == nil {
		return Claims{}, ErrJWTInvalid
	}
	ok, err := s.store.Exists(ctx, claims.ID)
	if err != nil {
		return Claims{}, err
	}
	if !ok {
		return Claims{}, ErrJWTRevoked
	}
	return claims, nil
}

func (s *JWTService) ParseVerification(token string) (Claims, error) {
	return s.parseTyped(token, TokenTypeVerify)
}

// RevokeSession invalida la sesión; revocar dos veces no es un error.
func (s *JWTService) RevokeSession(ctx context.Context, token string) error {
	claims, err := s.parseTyped(token, TokenTypeSession)
	if err != nil {
		return err
	}
	if claims.ID == "" || s.store == nil {
		return ErrJWTInvalid
	}
	return s.store.Revoke(ctx, claims.ID)
}

func (s *JWTService) parseTyped(token, tokenType string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenType {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) signToken(user domain.User, now time.Time, ttl time.Duration, tokenType, jti string) (string, error) {
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Verified:  user.IsVerified,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
