package domain

import "time"

type OTPPurpose string

const (
	OTPPurposeLogin  OTPPurpose = "login"
	OTPPurposeVerify OTPPurpose = "verify"
)

func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeLogin || p == OTPPurposeVerify
}

// OtpRecord es el único código pendiente para un par (email, purpose).
type OtpRecord struct {
	Email     string
	Purpose   OTPPurpose
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r OtpRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Locked indica que se agotaron los intentos hasta que se pida un código nuevo.
func (r OtpRecord) Locked(maxAttempts int) bool {
	return r.Attempts >= maxAttempts
}
