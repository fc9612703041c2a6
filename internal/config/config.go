package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	EnvProduction = "production"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	AppBaseURL    string `env:"APP_BASE_URL" envDefault:"http://localhost:5173"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	AutoMigrate   bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTSessionTTL time.Duration `env:"JWT_SESSION_TTL" envDefault:"168h"`
	JWTVerifyTTL  time.Duration `env:"JWT_VERIFY_TTL" envDefault:"24h"`

	// AdminEmail es la única identidad autorizada a dar de baja equipos.
	AdminEmail string `env:"ADMIN_EMAIL"`

	OTPTTL             time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPMaxAttempts     int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	OTPRequestWindow   time.Duration `env:"OTP_REQUEST_WINDOW" envDefault:"10m"`
	OTPRequestMax      int           `env:"OTP_REQUEST_MAX" envDefault:"3"`
	VerifyResendMax    int           `env:"VERIFY_RESEND_MAX" envDefault:"3"`
	VerifyResendWindow time.Duration `env:"VERIFY_RESEND_WINDOW" envDefault:"60m"`
	OTPPreview         bool          `env:"OTP_PREVIEW" envDefault:"true"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@example.com"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Smart Projector Manager"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NSQDAddr         string `env:"NSQD_ADDR"`
	NSQActivityTopic string `env:"NSQ_ACTIVITY_TOPIC" envDefault:"projector.activity"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate revisa combinaciones que los tags no pueden expresar.
func (c *Config) Validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return errors.New("STORAGE_DRIVER must be postgres or memory")
	}
	if c.OTPMaxAttempts <= 0 {
		return errors.New("OTP_MAX_ATTEMPTS must be positive")
	}
	if c.VerifyResendMax <= 0 {
		return errors.New("VERIFY_RESEND_MAX must be positive")
	}
	return nil
}

// IsProduction indica si el servicio corre en modo productivo.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), EnvProduction)
}

// PreviewEnabled indica si se pueden devolver códigos o enlaces de vista previa
// cuando el envío de correo no pudo confirmarse. Nunca en producción.
func (c *Config) PreviewEnabled() bool {
	return c.OTPPreview && !c.IsProduction()
}
