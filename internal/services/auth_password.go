package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"authsystem/internal/logger"
	"authsystem/internal/repository"
	"authsystem/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ForgotPasswordMessage = "If the email exists, a reset link has been sent."

// ChangePassword меняет пароль авторизованного пользователя по текущему паролю.
// Выданные токены остаются действительными.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	log := logger.WithCtx(ctx)

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		log.Info("Смена пароля: текущий пароль неверен (service)")
		return ErrCurrentPasswordIncorrect
	}

	if err := s.validatePassword("new_password", newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return internal(err)
	}

	log.Info("Пароль изменён (service)")
	return nil
}

// ForgotPassword всегда отвечает одинаково; существование email наружу не попадает.
// Ошибкой может быть только невалидный формат адреса.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	log := logger.WithCtx(ctx)
	email = normalizeEmail(email)

	if err := s.validator.Email("email", email); err != nil {
		var fe utils.FieldErrors
		errors.As(err, &fe)
		return validation(fe)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("Сбой поиска пользователя при сбросе пароля (service)", zap.Error(err))
		}
		return nil
	}
	if !user.IsActive {
		return nil
	}

	token, err := s.resets.Create(ctx, user.ID)
	if err != nil {
		log.Error("Ошибка создания токена сброса (service)", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil
	}

	if err := s.mailer.SendPasswordReset(ctx, user, s.resetLink(token)); err != nil {
		log.Error("Ошибка постановки письма сброса в очередь (service)", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil
	}

	log.Info("Письмо со ссылкой на сброс пароля поставлено на отправку (service)", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword: неизвестный, использованный и просроченный токен неразличимы.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	log := logger.WithCtx(ctx)

	if err := s.validatePassword("new_password", newPassword); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrResetInvalidOrExpired
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return internal(err)
	}

	userID, err := s.resets.Consume(ctx, token, hash)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenInvalid) {
			log.Info("Сброс пароля: токен недействителен (service)")
			return ErrResetInvalidOrExpired
		}
		return internal(err)
	}

	log.Info("Пароль сброшен по токену (service)", zap.String("user_id", userID.String()))
	return nil
}

func (s *AuthService) resetLink(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
}

func (s *AuthService) validatePassword(field, pwd string) error {
	if err := s.validator.Password(field, pwd); err != nil {
		var fe utils.FieldErrors
		errors.As(err, &fe)
		return validation(fe)
	}
	return nil
}
