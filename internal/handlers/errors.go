package handlers

import (
	"errors"
	"net/http"

	"authsystem/internal/logger"
	"authsystem/internal/services"
	helpers "authsystem/internal/utils/helpres"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const (
	msgInternal                 = "Internal server error"
	msgValidation               = "Validation failed"
	msgEmailAlreadyRegistered   = "Email already registered"
	msgInvalidCredentials       = "Incorrect email or password"
	msgInvalidRefreshToken      = "Invalid or expired refresh token"
	msgInvalidToken             = "Could not validate credentials"
	msgCurrentPasswordIncorrect = "Current password is incorrect"
	msgResetInvalidOrExpired    = "Invalid or expired reset token"
)

// statusFor: единственная таблица вид ошибки -> HTTP-статус и безопасный текст.
// Новый ErrorKind обязан получить здесь свою ветку (линтер exhaustive).
func statusFor(kind services.ErrorKind) (int, string) {
	switch kind {
	case services.KindInternal:
		return http.StatusInternalServerError, msgInternal
	case services.KindValidation:
		return http.StatusUnprocessableEntity, msgValidation
	case services.KindEmailAlreadyRegistered:
		return http.StatusBadRequest, msgEmailAlreadyRegistered
	case services.KindInvalidCredentials:
		return http.StatusUnauthorized, msgInvalidCredentials
	case services.KindInvalidRefreshToken:
		return http.StatusUnauthorized, msgInvalidRefreshToken
	case services.KindInvalidToken:
		return http.StatusUnauthorized, msgInvalidToken
	case services.KindCurrentPasswordIncorrect:
		return http.StatusBadRequest, msgCurrentPasswordIncorrect
	case services.KindResetInvalidOrExpired:
		return http.StatusBadRequest, msgResetInvalidOrExpired
	}
	return http.StatusInternalServerError, msgInternal
}

// writeServiceError пишет ответ по виду ошибки. Детали внутренних ошибок остаются в логах и Sentry.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status, msg := statusFor(kind)

	switch kind {
	case services.KindValidation:
		var fields map[string]string
		var se *services.Error
		if errors.As(err, &se) {
			fields = se.Fields
		}
		helpers.ValidationError(w, status, msg, fields)
		return
	case services.KindInternal:
		logger.WithCtx(r.Context()).Error("Внутренняя ошибка", zap.String("path", r.URL.Path), zap.Error(err))
		sentry.CaptureException(err)
	case services.KindInvalidCredentials, services.KindInvalidToken, services.KindInvalidRefreshToken:
		w.Header().Set("WWW-Authenticate", "Bearer")
	case services.KindEmailAlreadyRegistered, services.KindCurrentPasswordIncorrect, services.KindResetInvalidOrExpired:
	}

	helpers.Error(w, status, msg)
}

// writeBadBody: тело не разобралось, это ошибка валидации входа.
func writeBadBody(w http.ResponseWriter, r *http.Request, err error) {
	logger.WithCtx(r.Context()).Warn("Невалидный JSON", zap.String("path", r.URL.Path), zap.Error(err))
	helpers.ValidationError(w, http.StatusUnprocessableEntity, msgValidation, map[string]string{"body": "must be a valid JSON object"})
}
