package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"login-page/internal/captcha"
	"login-page/internal/config"
	"login-page/internal/db"
	"login-page/internal/email"
	apihttp "login-page/internal/http"
	"login-page/internal/oauth"
	"login-page/internal/repository"
	"login-page/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	accountRepo := repository.NewPgAccountRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.ClientURL, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var limiter service.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			limiter = service.NewRedisRateLimiter(redisClient, 10*time.Minute, 3)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRememberTTLHours)*time.Hour,
		time.Duration(cfg.JWTRefreshTTLHours)*time.Hour,
	)

	var identityVerifier oauth.Verifier
	if cfg.GoogleClientID != "" || cfg.FacebookAppID != "" {
		identityVerifier = oauth.NewHTTPVerifier(cfg.GoogleClientID, cfg.FacebookAppID)
	}

	captchaVerifier := captcha.Verifier(captcha.NewDisabledVerifier())
	if cfg.RecaptchaSecret != "" {
		captchaVerifier = captcha.NewRecaptchaVerifier(cfg.RecaptchaSecret)
	}

	authSvc := service.NewAuthService(service.AuthServiceParams{
		Logger:         logger,
		Accounts:       accountRepo,
		Hasher:         service.NewPasswordHasher(cfg.BcryptCost),
		PasswordPolicy: service.NewPasswordPolicy(cfg.PasswordMinLength, cfg.PasswordRequireMixed),
		Lockout:        service.NewLockoutPolicy(cfg.LockoutThreshold, time.Duration(cfg.LockoutMinutes)*time.Minute),
		Verification:   service.NewVerificationTokenIssuer(24 * time.Hour),
		JWT:            jwtSvc,
		EmailSender:    emailSender,
		Identity:       identityVerifier,
		Limiter:        limiter,
	})

	authHandler := apihttp.NewAuthHandler(logger, authSvc, captchaVerifier, apihttp.CookieSettings{
		Secure: cfg.IsProduction(),
	})
	dashHandler := apihttp.NewDashboardHandler()
	router := apihttp.NewRouter(logger, authHandler, dashHandler, jwtSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
