package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"projector-tracker/internal/domain"
	"projector-tracker/internal/email"
	"projector-tracker/internal/metrics"
	"projector-tracker/internal/repository"
)

var (
	ErrUserNotFound       = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", domain.ErrUnauthorized)
	ErrEmailNotVerified   = fmt.Errorf("email not verified: %w", domain.ErrForbidden)
	ErrAdminOnly          = fmt.Errorf("admin role required: %w", domain.ErrForbidden)
	ErrEmailTaken         = fmt.Errorf("email already registered: %w", domain.ErrConflict)
	ErrAlreadyVerified    = fmt.Errorf("email already verified: %w", domain.ErrConflict)
	ErrOTPNotFound        = fmt.Errorf("otp %w, request a new code", domain.ErrNotFound)
	ErrOTPExpired         = fmt.Errorf("%w, request a new code", domain.ErrOTPExpired)
	ErrOTPTooManyAttempts = fmt.Errorf("%w, request a new code", domain.ErrTooManyAttempts)
	ErrOTPInvalid         = fmt.Errorf("%w", domain.ErrInvalidCode)
	ErrOTPRateLimited     = fmt.Errorf("too many code requests: %w", domain.ErrRateLimited)
	ErrResendRateLimited  = fmt.Errorf("too many verification emails: %w", domain.ErrRateLimited)
	ErrEmailDelivery      = fmt.Errorf("could not send email: %w", domain.ErrDeliveryFailed)
)

// ResendMode indica cómo se reenvía la verificación.
type ResendMode string

const (
	ResendLink ResendMode = "link"
	ResendOTP  ResendMode = "otp"
)

// AuthSettings agrupa los parámetros temporales del flujo de autenticación.
type AuthSettings struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int
	ResendMax      int
	ResendWindow   time.Duration
	PreviewEnabled bool
	BaseURL        string
	BcryptCost     int
}

func (s AuthSettings) withDefaults() AuthSettings {
	if s.OTPTTL <= 0 {
		s.OTPTTL = 10 * time.Minute
	}
	if s.OTPMaxAttempts <= 0 {
		s.OTPMaxAttempts = 5
	}
	if s.ResendMax <= 0 {
		s.ResendMax = 3
	}
	if s.ResendWindow <= 0 {
		s.ResendWindow = time.Hour
	}
	s.BaseURL = strings.TrimRight(s.BaseURL, "/")
	return s
}

// AuthService coordina registro, login y verificación por OTP o enlace.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	otps     repository.OTPRepository
	tokens   *JWTService
	notifier *Notifier
	limiter  OTPRateLimiter
	metrics  *metrics.Metrics
	settings AuthSettings
	hasher   hasher
	now      func() time.Time
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	otps repository.OTPRepository,
	tokens *JWTService,
	notifier *Notifier,
	limiter OTPRateLimiter,
	m *metrics.Metrics,
	settings AuthSettings,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	settings = settings.withDefaults()
	if limiter == nil {
		limiter = NewOTPRateLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		otps:     otps,
		tokens:   tokens,
		notifier: notifier,
		limiter:  limiter,
		metrics:  m,
		settings: settings,
		hasher:   hasher{cost: settings.BcryptCost},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AuthResult es el resultado de un login exitoso.
type AuthResult struct {
	User    domain.User  `json:"user"`
	Session SessionToken `json:"session"`
}

// Delivery describe el envío de un código o enlace. Preview solo se llena
// cuando el transporte no confirmó el envío y las vistas previas están habilitadas.
type Delivery struct {
	Email     string    `json:"email"`
	Delivered bool      `json:"delivered"`
	ExpiresAt time.Time `json:"expires_at"`
	Preview   string    `json:"preview,omitempty"`
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Designation string
	Department  string
}

type RegisterResult struct {
	User     domain.User `json:"user"`
	Delivery Delivery    `json:"delivery"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	emailAddr := domain.NormalizeEmail(input.Email)
	// se valida sin espacios, pero se guarda la contraseña tal cual la escribió
	trimmed := strings.TrimSpace(input.Password)
	if emailAddr == "" || trimmed == "" {
		return RegisterResult{}, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}
	if !strings.Contains(emailAddr, "@") {
		return RegisterResult{}, fmt.Errorf("%w: invalid email", domain.ErrValidation)
	}
	if len(trimmed) < minSecretLen {
		return RegisterResult{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minSecretLen)
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return RegisterResult{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         firstNonEmpty(input.Name, domain.EmailLocalPart(emailAddr)),
		Email:        emailAddr,
		PasswordHash: hash,
		Role:         domain.RoleFaculty,
		Department:   firstNonEmpty(input.Department, domain.DefaultDepartment),
		Designation:  firstNonEmpty(input.Designation, domain.DefaultDesignation),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return RegisterResult{}, ErrEmailTaken
		}
		return RegisterResult{}, err
	}

	delivery, err := s.sendVerificationLink(ctx, user)
	if err != nil {
		return RegisterResult{}, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.Bool("email_delivered", delivery.Delivered))
	return RegisterResult{User: user, Delivery: delivery}, nil
}

// Login valida identificador (email o username) y contraseña. La verificación
// del correo se revisa antes de comparar la contraseña.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (AuthResult, error) {
	result, err := s.login(ctx, identifier, password)
	s.metrics.Login("password", metrics.Result(err))
	return result, err
}

func (s *AuthService) login(ctx context.Context, identifier, password string) (AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || strings.TrimSpace(password) == "" {
		return AuthResult{}, fmt.Errorf("%w: identifier and password are required", domain.ErrValidation)
	}

	var (
		user domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.users.GetByEmail(ctx, domain.NormalizeEmail(identifier))
	} else {
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if !user.IsActive {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return AuthResult{}, ErrEmailNotVerified
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, user)
}

// RequestOTP emite un código de login para el email.
func (s *AuthService) RequestOTP(ctx context.Context, emailAddr, name string) (Delivery, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return Delivery{}, fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if !s.limiter.Allow(ctx, emailAddr) {
		s.metrics.OTPRequest(string(domain.OTPPurposeLogin), "rate_limited")
		return Delivery{}, ErrOTPRateLimited
	}
	delivery, err := s.issueOTP(ctx, emailAddr, strings.TrimSpace(name), domain.OTPPurposeLogin)
	s.metrics.OTPRequest(string(domain.OTPPurposeLogin), metrics.Result(err))
	return delivery, err
}

type VerifyOTPInput struct {
	Email   string
	Code    string
	Purpose domain.OTPPurpose
	// Name se usa solo si el login por OTP crea la cuenta.
	Name string
}

func (s *AuthService) VerifyOTP(ctx context.Context, input VerifyOTPInput) (AuthResult, error) {
	result, err := s.verifyOTP(ctx, input)
	if input.Purpose == "" || input.Purpose == domain.OTPPurposeLogin {
		s.metrics.Login("otp", metrics.Result(err))
	}
	return result, err
}

func (s *AuthService) verifyOTP(ctx context.Context, input VerifyOTPInput) (AuthResult, error) {
	emailAddr := domain.NormalizeEmail(input.Email)
	code := strings.TrimSpace(input.Code)
	purpose := input.Purpose
	if purpose == "" {
		purpose = domain.OTPPurposeLogin
	}
	if !purpose.Valid() {
		return AuthResult{}, fmt.Errorf("%w: unknown purpose %q", domain.ErrValidation, purpose)
	}
	if emailAddr == "" || code == "" {
		return AuthResult{}, fmt.Errorf("%w: email and code are required", domain.ErrValidation)
	}

	if err := s.consumeOTP(ctx, emailAddr, code, purpose); err != nil {
		return AuthResult{}, err
	}

	if purpose == domain.OTPPurposeVerify {
		user, err := s.users.GetByEmail(ctx, emailAddr)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return AuthResult{}, ErrUserNotFound
			}
			return AuthResult{}, err
		}
		user, err = s.markVerified(ctx, user)
		if err != nil {
			return AuthResult{}, err
		}
		return s.openSession(ctx, user)
	}

	user, secret, err := s.upsertOTPUser(ctx, emailAddr, strings.TrimSpace(input.Name))
	if err != nil {
		return AuthResult{}, err
	}
	s.notifier.Go(ctx, "credentials", email.CredentialsMessage(user.Email, user.Name, user.Username, secret))
	return s.openSession(ctx, user)
}

// consumeOTP aplica expiración, límite de intentos y comparación, en ese orden.
func (s *AuthService) consumeOTP(ctx context.Context, emailAddr, code string, purpose domain.OTPPurpose) error {
	rec, err := s.otps.Get(ctx, emailAddr, purpose)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOTPNotFound
		}
		return err
	}
	if rec.Expired(s.now()) {
		if err := s.otps.Delete(ctx, emailAddr, purpose); err != nil {
			return err
		}
		return ErrOTPExpired
	}
	if rec.Locked(s.settings.OTPMaxAttempts) {
		return ErrOTPTooManyAttempts
	}
	if !isValidOTPCode(code) || !s.hasher.Matches(rec.CodeHash, code) {
		if _, err := s.otps.IncrementAttempts(ctx, emailAddr, purpose); err != nil {
			return err
		}
		return ErrOTPInvalid
	}
	return s.otps.Delete(ctx, emailAddr, purpose)
}

// upsertOTPUser crea la cuenta o rota su contraseña, y la marca verificada.
func (s *AuthService) upsertOTPUser(ctx context.Context, emailAddr, name string) (domain.User, string, error) {
	secret, err := generateSecret()
	if err != nil {
		return domain.User{}, "", err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return domain.User{}, "", err
	}
	now := s.now()

	user, err := s.users.GetByEmail(ctx, emailAddr)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		username, err := uniqueUsername(ctx, s.users, emailAddr)
		if err != nil {
			return domain.User{}, "", err
		}
		user = domain.User{
			ID:           uuid.NewString(),
			Name:         firstNonEmpty(name, domain.EmailLocalPart(emailAddr)),
			Email:        emailAddr,
			Username:     username,
			PasswordHash: hash,
			Role:         domain.RoleFaculty,
			Department:   domain.DefaultDepartment,
			Designation:  domain.DefaultDesignation,
			IsActive:     true,
			IsVerified:   true,
			VerifiedAt:   &now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.User{}, "", fmt.Errorf("account created concurrently: %w", domain.ErrConflict)
			}
			return domain.User{}, "", err
		}
		s.logger.Info("user created from otp login", zap.String("user_id", user.ID))
		return user, secret, nil
	case err != nil:
		return domain.User{}, "", err
	}

	if !user.IsActive {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if user.Username == "" {
		username, err := uniqueUsername(ctx, s.users, emailAddr)
		if err != nil {
			return domain.User{}, "", err
		}
		user.Username = username
	}
	user.PasswordHash = hash
	if !user.IsVerified {
		user.IsVerified = true
		user.VerifiedAt = &now
	}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, "", err
	}
	return user, secret, nil
}

// ResendVerification reenvía el enlace o un código de verificación, con un
// máximo de ResendMax envíos por ventana.
func (s *AuthService) ResendVerification(ctx context.Context, emailAddr string, mode ResendMode) (Delivery, error) {
	emailAddr = domain.NormalizeEmail(emailAddr)
	if emailAddr == "" {
		return Delivery{}, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if mode == "" {
		mode = ResendLink
	}
	if mode != ResendLink && mode != ResendOTP {
		return Delivery{}, fmt.Errorf("%w: mode must be link or otp", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Delivery{}, ErrUserNotFound
		}
		return Delivery{}, err
	}
	if user.IsVerified {
		return Delivery{}, ErrAlreadyVerified
	}

	now := s.now()
	if !user.Resend.Consume(now, s.settings.ResendWindow, s.settings.ResendMax) {
		s.metrics.OTPRequest(string(domain.OTPPurposeVerify), "rate_limited")
		return Delivery{}, ErrResendRateLimited
	}
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return Delivery{}, err
	}

	var delivery Delivery
	if mode == ResendOTP {
		delivery, err = s.issueOTP(ctx, user.Email, user.Name, domain.OTPPurposeVerify)
	} else {
		delivery, err = s.sendVerificationLink(ctx, user)
	}
	s.metrics.OTPRequest(string(domain.OTPPurposeVerify), metrics.Result(err))
	return delivery, err
}

// PreviewVerification genera el enlace o código de verificación sin enviarlo
// ni consumir reenvíos. Lo usan herramientas de operador.
func (s *AuthService) PreviewVerification(ctx context.Context, emailAddr string, mode ResendMode) (Delivery, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Delivery{}, ErrUserNotFound
		}
		return Delivery{}, err
	}

	now := s.now()
	if mode == ResendOTP {
		code, err := generateOTPCode()
		if err != nil {
			return Delivery{}, err
		}
		hash, err := s.hasher.Hash(code)
		if err != nil {
			return Delivery{}, err
		}
		rec := domain.OtpRecord{
			Email:     user.Email,
			Purpose:   domain.OTPPurposeVerify,
			CodeHash:  hash,
			ExpiresAt: now.Add(s.settings.OTPTTL),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.otps.Upsert(ctx, rec); err != nil {
			return Delivery{}, err
		}
		return Delivery{Email: user.Email, ExpiresAt: rec.ExpiresAt, Preview: code}, nil
	}

	token, err := s.tokens.IssueVerification(user)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{
		Email:     user.Email,
		ExpiresAt: now.Add(s.tokens.verifyTTL),
		Preview:   s.verificationLink(token),
	}, nil
}

// VerifyEmailLink valida el token del enlace y abre sesión.
func (s *AuthService) VerifyEmailLink(ctx context.Context, token string) (AuthResult, error) {
	claims, err := s.tokens.ParseVerification(strings.TrimSpace(token))
	if err != nil {
		return AuthResult{}, ErrInvalidToken
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, err
	}
	if domain.NormalizeEmail(user.Email) != domain.NormalizeEmail(claims.Email) {
		return AuthResult{}, ErrInvalidToken
	}
	user, err = s.markVerified(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return s.openSession(ctx, user)
}

// Authenticate resuelve el token de sesión del header Authorization.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	claims, err := s.tokens.ParseSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrJWTInvalid) || errors.Is(err, ErrJWTExpired) || errors.Is(err, ErrJWTRevoked) {
			return domain.Actor{}, ErrInvalidToken
		}
		return domain.Actor{}, err
	}
	return claims.Actor(), nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.tokens.RevokeSession(ctx, token); err != nil {
		if errors.Is(err, ErrJWTInvalid) || errors.Is(err, ErrJWTExpired) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, actor domain.Actor) (domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

type ProfileInput struct {
	Name        *string
	Designation *string
	Department  *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, actor domain.Actor, input ProfileInput) (domain.User, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return domain.User{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return domain.User{}, fmt.Errorf("%w: name cannot be empty", domain.ErrValidation)
		}
		user.Name = name
	}
	if input.Designation != nil {
		user.Designation = strings.TrimSpace(*input.Designation)
	}
	if input.Department != nil {
		user.Department = strings.TrimSpace(*input.Department)
	}
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminOnly
	}
	return s.users.ListActive(ctx)
}

// PurgeExpiredOTPs elimina códigos vencidos.
func (s *AuthService) PurgeExpiredOTPs(ctx context.Context) (int64, error) {
	return s.otps.DeleteExpired(ctx, s.now())
}

func (s *AuthService) issueOTP(ctx context.Context, emailAddr, name string, purpose domain.OTPPurpose) (Delivery, error) {
	code, err := generateOTPCode()
	if err != nil {
		return Delivery{}, err
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return Delivery{}, err
	}
	now := s.now()
	rec := domain.OtpRecord{
		Email:     emailAddr,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: now.Add(s.settings.OTPTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.otps.Upsert(ctx, rec); err != nil {
		return Delivery{}, err
	}

	receipt, err := s.notifier.Dispatch(ctx, "otp_"+string(purpose), email.OTPMessage(emailAddr, name, code, s.settings.OTPTTL))
	if err != nil {
		return Delivery{}, ErrEmailDelivery
	}
	return s.delivery(emailAddr, rec.ExpiresAt, receipt, code), nil
}

func (s *AuthService) sendVerificationLink(ctx context.Context, user domain.User) (Delivery, error) {
	token, err := s.tokens.IssueVerification(user)
	if err != nil {
		return Delivery{}, err
	}
	link := s.verificationLink(token)

	receipt, err := s.notifier.Dispatch(ctx, "verification_link", email.VerificationLinkMessage(user.Email, user.Name, link))
	if err != nil {
		return Delivery{}, ErrEmailDelivery
	}
	return s.delivery(user.Email, s.now().Add(s.tokens.verifyTTL), receipt, link), nil
}

func (s *AuthService) verificationLink(token string) string {
	return s.settings.BaseURL + "/verify-email?token=" + url.QueryEscape(token)
}

func (s *AuthService) delivery(emailAddr string, expiresAt time.Time, receipt email.Receipt, preview string) Delivery {
	d := Delivery{Email: emailAddr, Delivered: receipt.Accepted, ExpiresAt: expiresAt}
	if !receipt.Accepted && s.settings.PreviewEnabled {
		d.Preview = preview
	}
	return d
}

func (s *AuthService) markVerified(ctx context.Context, user domain.User) (domain.User, error) {
	if user.IsVerified {
		return user, nil
	}
	now := s.now()
	user.IsVerified = true
	user.VerifiedAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user domain.User) (AuthResult, error) {
	session, err := s.tokens.IssueSession(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Session: session}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
