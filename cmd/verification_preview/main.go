package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"projector-tracker/internal/config"
	"projector-tracker/internal/db"
	"projector-tracker/internal/repository"
	"projector-tracker/internal/service"
)

// verification_preview imprime el enlace o el código de verificación de un
// usuario sin enviar correo. Uso: verification_preview [-otp] <email>
func main() {
	useOTP := flag.Bool("otp", false, "issue a verification code instead of a link")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: verification_preview [-otp] <email>")
		os.Exit(1)
	}

	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.StorageDriver != config.StorageDriverPostgres {
		log.Fatalf("verification_preview needs the postgres storage driver")
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		log.Fatalf("db ping: %v", err)
	}

	store := repository.NewPgStore(pool)
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTSessionTTL, cfg.JWTVerifyTTL)
	authSvc := service.NewAuthService(zap.NewNop(), store.Users, store.OTPs, jwtSvc, nil, nil, nil, service.AuthSettings{
		OTPTTL:         cfg.OTPTTL,
		OTPMaxAttempts: cfg.OTPMaxAttempts,
		BaseURL:        cfg.AppBaseURL,
	})

	mode := service.ResendLink
	if *useOTP {
		mode = service.ResendOTP
	}
	delivery, err := authSvc.PreviewVerification(ctx, flag.Arg(0), mode)
	if err != nil {
		log.Fatalf("preview verification: %v", err)
	}

	if mode == service.ResendOTP {
		fmt.Println("--- Verification code preview ---")
		fmt.Printf("Email:      %s\n", delivery.Email)
		fmt.Printf("Code:       %s\n", delivery.Preview)
	} else {
		fmt.Println("--- Verification link preview ---")
		fmt.Printf("Email:      %s\n", delivery.Email)
		fmt.Printf("URL:        %s\n", delivery.Preview)
	}
	fmt.Printf("Expires at: %s\n", delivery.ExpiresAt.Format(time.RFC3339))
}
