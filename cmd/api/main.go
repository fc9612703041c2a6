package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"projector-tracker/internal/config"
	"projector-tracker/internal/db"
	"projector-tracker/internal/email"
	"projector-tracker/internal/events"
	apihttp "projector-tracker/internal/http"
	"projector-tracker/internal/metrics"
	"projector-tracker/internal/repository"
	"projector-tracker/internal/service"
)

const otpPurgeInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var (
		store repository.Store
		pool  *pgxpool.Pool
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store = repository.NewMemoryStore()
	default:
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.Ping(ctx, pool); err != nil {
			logger.Fatal("db ping", zap.Error(err))
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatal("db migrate", zap.Error(err))
			}
		}
		store = repository.NewPgStore(pool)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("projector-tracker", nil)
	}

	var emailSender email.Sender = email.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}
	notifier := service.NewNotifier(emailSender, logger, m)

	var (
		otpLimiter   service.OTPRateLimiter
		sessionStore service.SessionStore
		redisClient  *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			redisClient = nil
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, cfg.OTPRequestWindow, cfg.OTPRequestMax, logger)
			sessionStore = service.NewRedisSessionStore(redisClient)
		}
		cancel()
	}
	if otpLimiter == nil {
		otpLimiter = service.NewOTPRateLimiter(cfg.OTPRequestWindow, cfg.OTPRequestMax)
	}

	publisher := events.NewNopPublisher()
	if cfg.NSQDAddr != "" {
		nsqPub, err := events.NewNSQPublisher(cfg.NSQDAddr, cfg.NSQActivityTopic, logger)
		if err != nil {
			logger.Warn("nsq publisher init failed", zap.Error(err))
		} else {
			publisher = nsqPub
		}
	}
	defer publisher.Stop()

	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.JWTSessionTTL, cfg.JWTVerifyTTL, sessionStore)

	authSvc := service.NewAuthService(logger, store.Users, store.OTPs, jwtSvc, notifier, otpLimiter, m, service.AuthSettings{
		OTPTTL:         cfg.OTPTTL,
		OTPMaxAttempts: cfg.OTPMaxAttempts,
		ResendMax:      cfg.VerifyResendMax,
		ResendWindow:   cfg.VerifyResendWindow,
		PreviewEnabled: cfg.PreviewEnabled(),
		BaseURL:        cfg.AppBaseURL,
	})
	activitySvc := service.NewActivityService(logger, store.Activities, store.Users, store.Equipment, publisher)
	equipmentSvc := service.NewEquipmentService(logger, store.Equipment, store.Users, activitySvc, notifier, m, cfg.AdminEmail)
	bookingSvc := service.NewBookingService(logger, store.Bookings, store.Equipment, store.Users, activitySvc, notifier, m)

	if cfg.AdminEmail == "" {
		logger.Warn("ADMIN_EMAIL not configured, projector removal is disabled")
	}

	health := func(ctx context.Context) error {
		if pool != nil {
			if err := db.Ping(ctx, pool); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisClient.Ping(ctx).Err()
		}
		return nil
	}

	router := apihttp.NewRouter(logger, m, health, authSvc,
		apihttp.NewAuthHandler(logger, authSvc),
		apihttp.NewUserHandler(logger, authSvc),
		apihttp.NewEquipmentHandler(logger, equipmentSvc),
		apihttp.NewBookingHandler(logger, bookingSvc),
		apihttp.NewActivityHandler(logger, activitySvc),
	)

	go purgeExpiredOTPs(ctx, logger, authSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	notifier.Wait()
}

// purgeExpiredOTPs elimina periódicamente los códigos vencidos.
func purgeExpiredOTPs(ctx context.Context, logger *zap.Logger, auth *service.AuthService) {
	ticker := time.NewTicker(otpPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpiredOTPs(ctx)
			if err != nil {
				logger.Warn("otp purge failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("expired otps purged", zap.Int64("count", n))
			}
		}
	}
}
