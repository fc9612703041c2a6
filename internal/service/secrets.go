package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"projector-tracker/internal/repository"
)

const (
	otpMin       = 100000
	otpMax       = 999999
	secretBytes  = 12
	minSecretLen = 6
)

// generateOTPCode devuelve un código uniforme en [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}

// generateSecret crea una contraseña aleatoria para cuentas abiertas por OTP.
func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// hasher envuelve bcrypt con un costo configurable (los tests usan bcrypt.MinCost).
type hasher struct {
	cost int
}

func (h hasher) Hash(plain string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h hasher) Matches(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

var usernameUnsafe = regexp.MustCompile(`[^a-z0-9._-]+`)

func usernameBase(email string) string {
	local := strings.ToLower(email)
	if idx := strings.Index(local, "@"); idx >= 0 {
		local = local[:idx]
	}
	base := strings.Trim(usernameUnsafe.ReplaceAllString(local, ""), "._-")
	if base == "" {
		base = "user"
	}
	return base
}

// uniqueUsername parte de la parte local del email y agrega un sufijo numérico
// hasta encontrar uno libre.
func uniqueUsername(ctx context.Context, users repository.UserRepository, email string) (string, error) {
	base := usernameBase(email)
	candidate := base
	for i := 1; i <= 1000; i++ {
		_, err := users.GetByUsername(ctx, candidate)
		if errors.Is(err, pgx.ErrNoRows) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	return "", fmt.Errorf("no free username for %q", base)
}
