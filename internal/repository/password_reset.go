package repository

import (
	"context"
	"errors"
	"time"

	"authsystem/internal/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

type PasswordResetRepository struct {
	db DB
}

func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, tokenHash, expiresAt,
	)
	if err != nil {
		logger.Log.Error("Create reset token failed", zap.Error(err), zap.String("user_id", userID.String()))
		return oops.Code("RESET_TOKEN_CREATE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// ConsumeAndSetPassword в одной транзакции гасит токен и меняет пароль владельца.
// Условный UPDATE с RETURNING не даст двум параллельным запросам оба раза получить строку:
// второй дождётся блокировки и уже не пройдёт по used = false.
// Токен валиден строго до expires_at.
func (r *PasswordResetRepository) ConsumeAndSetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, oops.Code("RESET_TOKEN_TX_BEGIN_FAILED").Wrap(err)
	}

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE password_reset_tokens
		SET used = TRUE, used_at = $2
		WHERE token_hash = $1
		  AND used = FALSE
		  AND expires_at > $2
		RETURNING user_id
	`, tokenHash, now).Scan(&userID)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrResetTokenInvalid
		}
		return uuid.Nil, oops.Code("RESET_TOKEN_CONSUME_FAILED").Wrap(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, now, userID,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return uuid.Nil, oops.Code("RESET_PASSWORD_UPDATE_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return uuid.Nil, ErrResetTokenInvalid
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, oops.Code("RESET_TOKEN_TX_COMMIT_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return userID, nil
}

// DeleteExpired удаляет просроченные и использованные токены.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM password_reset_tokens WHERE expires_at <= $1 OR used = TRUE`,
		now,
	)
	if err != nil {
		return 0, oops.Code("RESET_TOKEN_CLEANUP_FAILED").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
