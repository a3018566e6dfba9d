package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"authsystem/internal/app"
	"authsystem/internal/db"
	"authsystem/internal/logger"
	"authsystem/internal/observability"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func NewServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "не применять миграции при старте")
	return cmd
}

func runServe(parent context.Context, skipMigrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	defer func() { _ = logger.Log.Sync() }()

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Version); err != nil {
		logger.Log.Warn("Sentry не инициализирован", zap.Error(err))
	}
	defer observability.FlushSentry()

	if !skipMigrate {
		if err := migrateUp(cfg.GetDSN()); err != nil {
			return err
		}
	}

	pool, err := db.NewPostgresConnection(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Log.Info("Подключение к БД установлено", zap.String("dsn", cfg.GetDSNSafe()))

	appCtx, cancelApp := context.WithCancel(context.Background())
	a, err := app.InitApp(appCtx, cfg, pool)
	if err != nil {
		cancelApp()
		return oops.Code("APP_INIT_FAILED").Wrap(err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Log.Info("Сервер запущен", zap.String("port", cfg.Port))
	err = serveHTTP(ctx, srv)

	// Воркеры почты и чистки останавливаются после HTTP: буфер писем дочищается в EmailQueue.
	cancelApp()
	a.Wait()

	if err != nil {
		return err
	}
	logger.Log.Info("Сервер остановлен")
	return nil
}

// serveHTTP держит сервер до отмены ctx. Ошибка запуска (занят порт и т.п.) возвращается вызывающему.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("Получен сигнал остановки")
	case err := <-serveErr:
		if err != nil {
			logger.Log.Error("Ошибка запуска сервера", zap.Error(err))
			listenErr = oops.Code("LISTEN_FAILED").Wrap(err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && listenErr == nil {
		return oops.Code("SHUTDOWN_FAILED").Wrap(err)
	}
	return listenErr
}
