package main

import (
	"authsystem/internal/config"
	"authsystem/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCmd: корневая команда сервера.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "authsystem",
		Short:         "Auth System - регистрация, вход и сброс пароля",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig читает конфиг, поднимает логгер и печатает предупреждения Validate.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, err
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		logger.Log.Warn("Конфигурация", zap.String("warning", w))
	}
	return cfg, nil
}
