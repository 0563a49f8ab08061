package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"accounts-api/internal/config"
	"accounts-api/internal/db"
	"accounts-api/internal/email"
	apihttp "accounts-api/internal/http"
	"accounts-api/internal/repository"
	"accounts-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
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

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	tokenRepo := repository.NewPgTokenRepository(pool)

	emailSender, dispatcher := newMailer(cfg, logger)

	linkLimiter := service.NewLinkRateLimiter(cfg.LinkRequestWindow, cfg.LinkRequestsPerWindow)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			linkLimiter = service.NewRedisLinkRateLimiter(redisClient, cfg.LinkRequestWindow, cfg.LinkRequestsPerWindow)
		}
		cancel()
	}

	passwords := service.NewPasswordHasher(cfg.BcryptCost)
	tokens := service.NewTokenRegistry(tokenRepo, userRepo)
	authSvc := service.NewAuthService(logger, userRepo, tokens, passwords)
	verificationSvc := service.NewVerificationService(logger, userRepo, tokens, passwords, emailSender, linkLimiter, cfg.PublicBaseURL)
	accountSvc := service.NewAccountService(logger, userRepo, passwords, verificationSvc)

	userHandler := apihttp.NewUserHandler(logger, accountSvc)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, verificationSvc, cfg.MaskUnknownEmail)
	router := apihttp.NewRouter(logger, userHandler, authHandler, authSvc)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.Warn("email queue not drained", zap.Error(err))
		}
	}
}

// newMailer devuelve el sender de los links y, si el envio es asincronico, el
// dispatcher que hay que drenar al apagar. Sin SMTP no hay cola: los envios
// fallan en la request y la API responde 503.
func newMailer(cfg *config.Config, logger *zap.Logger) (email.Sender, *email.Dispatcher) {
	disabled := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, email links disabled")
		return disabled, nil
	}
	sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
		return disabled, nil
	}
	if !cfg.MailAsync {
		return sender, nil
	}
	dispatcher := email.NewDispatcher(logger, sender, cfg.MailQueueSize, cfg.MailWorkers)
	return dispatcher, dispatcher
}
