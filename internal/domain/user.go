package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleFaculty Role = "faculty"
	RoleAdmin   Role = "admin"
)

const (
	DefaultDepartment  = "Computer Science and Engineering"
	DefaultDesignation = "Faculty"
)

type User struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Username     string      `json:"username,omitempty"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	Department   string      `json:"department,omitempty"`
	Designation  string      `json:"designation,omitempty"`
	IsActive     bool        `json:"is_active"`
	IsVerified   bool        `json:"is_verified"`
	VerifiedAt   *time.Time  `json:"verified_at,omitempty"`
	Resend       ResendState `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ResendState lleva la cuenta de reenvíos del correo de verificación dentro de
// una ventana deslizante.
type ResendState struct {
	Count       int
	WindowStart *time.Time
}

// Consume intenta registrar un reenvío. La ventana se reinicia de forma perezosa
// cuando now - WindowStart >= window. Devuelve false si se alcanzó el máximo.
func (r *ResendState) Consume(now time.Time, window time.Duration, max int) bool {
	if r.WindowStart == nil || now.Sub(*r.WindowStart) >= window {
		start := now
		r.WindowStart = &start
		r.Count = 0
	}
	if r.Count >= max {
		return false
	}
	r.Count++
	return true
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Summary es la proyección que se embebe en respuestas de otros recursos.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Designation: u.Designation,
	}
}

type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Designation string `json:"designation,omitempty"`
}

// Actor es la identidad autenticada que ejecuta una operación.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart devuelve la parte anterior a la arroba.
func EmailLocalPart(email string) string {
	email = NormalizeEmail(email)
	if idx := strings.Index(email, "@"); idx >= 0 {
		return email[:idx]
	}
	return email
}
