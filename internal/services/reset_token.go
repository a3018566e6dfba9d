package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"time"

	"authsystem/internal/logger"
	"authsystem/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const resetTokenBytes = 32

type PasswordResetRepo interface {
	Create(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumeAndSetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetTokenStore выпускает и гасит одноразовые токены сброса пароля.
// В базе лежит только sha256 от токена.
type ResetTokenStore struct {
	repo    PasswordResetRepo
	ttl     time.Duration
	now     func() time.Time
	entropy io.Reader
}

func NewResetTokenStore(repo PasswordResetRepo, ttl time.Duration, now func() time.Time) *ResetTokenStore {
	if now == nil {
		now = time.Now
	}
	return &ResetTokenStore{
		repo:    repo,
		ttl:     ttl,
		now:     now,
		entropy: rand.Reader,
	}
}

// Create генерирует токен и сохраняет его хеш со сроком now + ttl.
func (s *ResetTokenStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	raw := make([]byte, resetTokenBytes)
	if _, err := io.ReadFull(s.entropy, raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	expires := s.now().Add(s.ttl)
	if err := s.repo.Create(ctx, userID, HashResetToken(token), expires); err != nil {
		return "", err
	}

	logger.WithCtx(ctx).Debug("Токен сброса пароля создан",
		zap.String("user_id", userID.String()),
		zap.Time("expires_at", expires),
	)
	return token, nil
}

// Consume гасит токен и ставит новый хеш пароля одним атомарным шагом.
// Неизвестный, использованный и просроченный токен дают одну и ту же repository.ErrResetTokenInvalid.
func (s *ResetTokenStore) Consume(ctx context.Context, token, newPasswordHash string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, repository.ErrResetTokenInvalid
	}
	userID, err := s.repo.ConsumeAndSetPassword(ctx, HashResetToken(token), newPasswordHash, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			return uuid.Nil, repository.ErrResetTokenInvalid
		}
		return uuid.Nil, err
	}
	return userID, nil
}

// Purge удаляет просроченные и использованные записи.
func (s *ResetTokenStore) Purge(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
