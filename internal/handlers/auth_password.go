package handlers

import (
	"net/http"

	"authsystem/internal/logger"
	"authsystem/internal/reqctx"
	"authsystem/internal/services"
	helpers "authsystem/internal/utils/helpres"

	"go.uber.org/zap"
)

const (
	msgPasswordChanged = "Password updated successfully"
	msgPasswordReset   = "Password has been reset successfully"
)

type messageResponse struct {
	Message string `json:"message"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ChangePassword godoc
// @Summary Смена пароля (авторизованный пользователь)
// @Description Смена пароля по текущему паролю. Требуется JWT-токен.
// @Tags password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body changePasswordRequest true "Текущий и новый пароль"
// @Success 200 {object} messageResponse
// @Failure 400 {object} helpers.Response
// @Failure 401 {object} helpers.Response
// @Failure 422 {object} helpers.Response
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.GetUserID(r.Context())
	if !ok {
		writeServiceError(w, r, services.ErrInvalidToken)
		return
	}

	var req changePasswordRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info("Пароль изменён")
	helpers.JSON(w, http.StatusOK, messageResponse{Message: msgPasswordChanged})
}

// ForgotPassword godoc
// @Summary Запрос восстановления пароля
// @Description Отправляет письмо со ссылкой для сброса пароля. Ответ всегда одинаковый, даже если e-mail не найден.
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotRequest true "Email пользователя"
// @Success 200 {object} messageResponse
// @Failure 422 {object} helpers.Response
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	helpers.JSON(w, http.StatusOK, messageResponse{Message: services.ForgotPasswordMessage})
}

// ResetPassword godoc
// @Summary Сброс пароля по токену
// @Description Устанавливает новый пароль по одноразовому токену из письма.
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetRequest true "Токен и новый пароль"
// @Success 200 {object} messageResponse
// @Failure 400 {object} helpers.Response
// @Failure 422 {object} helpers.Response
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req resetRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		log.Info("Сброс пароля отклонён", zap.String("kind", services.KindOf(err).String()))
		writeServiceError(w, r, err)
		return
	}

	helpers.JSON(w, http.StatusOK, messageResponse{Message: msgPasswordReset})
}
