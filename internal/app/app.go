package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"authsystem/internal/config"
	"authsystem/internal/handlers"
	"authsystem/internal/logger"
	"authsystem/internal/middleware"
	"authsystem/internal/repository"
	"authsystem/internal/routes"
	"authsystem/internal/services"
	"authsystem/internal/utils"

	"go.uber.org/zap"
)

// Database: то, что приложению нужно от пула соединений (*pgxpool.Pool).
type Database interface {
	repository.DB
	Ping(ctx context.Context) error
}

type App struct {
	Handler http.Handler
	Auth    *services.AuthService

	queue       *services.EmailQueue
	cleanerDone <-chan struct{}
}

// InitApp собирает зависимости и запускает фоновые воркеры, живущие до отмены ctx.
func InitApp(ctx context.Context, cfg *config.Config, conn Database) (*App, error) {
	// Репозитории
	userRepo := repository.NewUserRepository(conn)
	resetRepo := repository.NewPasswordResetRepository(conn)

	// Крипто
	tokens, err := utils.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}
	hasher := utils.NewBcryptHasher(cfg.BcryptCost)

	// Почта
	var sender services.EmailSender = services.LogEmailSender{}
	if cfg.SMTPConfigured() {
		sender = services.NewEmailService(cfg)
	} else {
		logger.Log.Warn("SMTP не настроен, письма будут только в логе")
	}
	queue := services.NewEmailQueue(sender, 100)
	notifier := services.NewNotifier(queue, cfg.PasswordResetTTL, cfg.SMTPConfigured())

	// Сервисы
	resetStore := services.NewResetTokenStore(resetRepo, cfg.PasswordResetTTL, time.Now)
	authService := services.NewAuthService(services.AuthDeps{
		Users:       userRepo,
		Hasher:      hasher,
		Tokens:      tokens,
		Resets:      resetStore,
		Validator:   utils.NewValidator(),
		Mailer:      notifier,
		FrontendURL: cfg.FrontendURL,
	})

	// Хендлеры
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(conn, cfg.ProjectName, cfg.Version)

	handler := routes.NewHandler(routes.Deps{
		Auth:        authHandler,
		Health:      healthHandler,
		Verifier:    authService,
		Metrics:     middleware.NewMetrics("authsystem"),
		CORSOrigins: cfg.CORSOrigins,
	})

	queue.Start(ctx, cfg.EmailWorkers)

	// ▶️ Периодическая чистка просроченных и использованных токенов сброса
	cleanerDone := StartResetTokenCleaner(ctx, resetStore, cfg.ResetCleanupInterval)

	logger.Log.Info("Приложение инициализировано",
		zap.Int("email_workers", cfg.EmailWorkers),
		zap.Duration("reset_cleanup_interval", cfg.ResetCleanupInterval),
	)

	return &App{
		Handler:     handler,
		Auth:        authService,
		queue:       queue,
		cleanerDone: cleanerDone,
	}, nil
}

// Wait ждёт остановки фоновых воркеров после отмены контекста InitApp.
func (a *App) Wait() {
	a.queue.Wait()
	<-a.cleanerDone
}

// TokenPurger: ResetTokenStore.Purge.
type TokenPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// StartResetTokenCleaner раз в interval удаляет отработавшие токены сброса.
// Возвращённый канал закрывается после остановки по ctx.
func StartResetTokenCleaner(ctx context.Context, p TokenPurger, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				n, err := p.Purge(ctx)
				if err != nil {
					logger.Log.Error("Чистка токенов сброса не удалась", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Log.Info("Удалены старые токены сброса", zap.Int64("count", n))
				}
			}
		}
	}()
	return done
}
