package handlers

import (
	"context"
	"net/http"

	"authsystem/internal/logger"
	"authsystem/internal/models"
	"authsystem/internal/services"
	helpers "authsystem/internal/utils/helpres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthAPI: операции AuthService, нужные HTTP-слою.
type AuthAPI interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type AuthHandler struct {
	auth AuthAPI
}

func NewAuthHandler(auth AuthAPI) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Description Создаёт пользователя. Пароль: от 8 символов, заглавная, строчная буква и цифра.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body registerRequest true "Данные пользователя"
// @Success 201 {object} models.UserResponse
// @Failure 400 {object} helpers.Response
// @Failure 422 {object} helpers.Response
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.WithCtx(r.Context())

	var req registerRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("Пользователь зарегистрирован", zap.String("user_id", user.ID.String()))
	helpers.JSON(w, http.StatusCreated, user.Response())
}

// Login godoc
// @Summary Вход по email и паролю
// @Description Возвращает пару access/refresh токенов.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body loginRequest true "Учётные данные"
// @Success 200 {object} models.TokenPair
// @Failure 401 {object} helpers.Response
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	helpers.JSON(w, http.StatusOK, pair)
}

// Refresh godoc
// @Summary Обновление access-токена
// @Tags auth
// @Accept json
// @Produce json
// @Param input body refreshRequest true "Refresh-токен"
// @Success 200 {object} models.AccessToken
// @Failure 401 {object} helpers.Response
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w, r, err)
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	helpers.JSON(w, http.StatusOK, access)
}
