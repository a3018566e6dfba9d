package middleware

import (
	"context"
	"net/http"
	"strings"

	"authsystem/internal/logger"
	"authsystem/internal/reqctx"
	helpers "authsystem/internal/utils/helpres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const msgInvalidToken = "Could not validate credentials"

// TokenVerifier: проверка access-токена (AuthService.Authenticate).
type TokenVerifier interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// JWTAuth пропускает дальше только запросы с валидным Bearer access-токеном.
// Любая причина отказа даёт один и тот же 401.
func JWTAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			log := logger.WithCtx(r.Context())

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				log.Warn("JWTAuth: отсутствует access token")
				unauthorized(w)
				return
			}

			userID, err := verifier.Authenticate(r.Context(), token)
			if err != nil {
				log.Warn("JWTAuth: неверный или просроченный токен", zap.Error(err))
				unauthorized(w)
				return
			}

			ctx := reqctx.WithUserID(r.Context(), userID)
			logger.WithCtx(ctx).Debug("JWTAuth: токен валиден")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	helpers.Error(w, http.StatusUnauthorized, msgInvalidToken)
}
