package handlers

import (
	"net/http"

	"authsystem/internal/reqctx"
	"authsystem/internal/services"
	helpers "authsystem/internal/utils/helpres"
)

// Me godoc
// @Summary Профиль текущего пользователя
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} helpers.Response
// @Router /api/v1/users/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := reqctx.GetUserID(r.Context())
	if !ok {
		writeServiceError(w, r, services.ErrInvalidToken)
		return
	}

	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	helpers.JSON(w, http.StatusOK, user.Response())
}
