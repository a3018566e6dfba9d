package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"authsystem/internal/logger"
	"authsystem/internal/models"
	"authsystem/internal/repository"
	"authsystem/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *models.User) error
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, now time.Time) error
}

type TokenIssuer interface {
	IssueAccessToken(userID uuid.UUID) (string, time.Time, error)
	IssueRefreshToken(userID uuid.UUID) (string, time.Time, error)
	Verify(token string, expected utils.TokenKind) (uuid.UUID, error)
}

type ResetTokens interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Consume(ctx context.Context, token, newPasswordHash string) (uuid.UUID, error)
}

type ResetMailer interface {
	SendPasswordReset(ctx context.Context, user *models.User, resetLink string) error
}

type AuthDeps struct {
	Users       UserRepo
	Hasher      utils.PasswordHasher
	Tokens      TokenIssuer
	Resets      ResetTokens
	Validator   *utils.Validator
	Mailer      ResetMailer
	FrontendURL string
	Now         func() time.Time
}

type AuthService struct {
	users       UserRepo
	hasher      utils.PasswordHasher
	tokens      TokenIssuer
	resets      ResetTokens
	validator   *utils.Validator
	mailer      ResetMailer
	frontendURL string
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(d AuthDeps) *AuthService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	v := d.Validator
	if v == nil {
		v = utils.NewValidator()
	}
	return &AuthService{
		users:       d.Users,
		hasher:      d.Hasher,
		tokens:      d.Tokens,
		resets:      d.Resets,
		validator:   v,
		mailer:      d.Mailer,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		now:         now,
	}
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Password string `json:"password" validate:"required,strongpwd"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создаёт пользователя. Валидация идёт до любых обращений к БД.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	log := logger.WithCtx(ctx)
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	if err := s.validate(in); err != nil {
		log.Debug("Регистрация: ошибка валидации (service)", zap.Error(err))
		return nil, err
	}

	taken, err := s.users.IsEmailTaken(ctx, in.Email)
	if err != nil {
		return nil, internal(err)
	}
	if taken {
		log.Info("Регистрация: email уже занят (service)")
		return nil, ErrEmailAlreadyRegistered
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal(err)
	}

	user := &models.User{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, internal(err)
	}

	log.Info("Пользователь зарегистрирован (service)", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login возвращает ErrInvalidCredentials и для неизвестного email, и для неактивного пользователя, и для неверного пароля.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	log := logger.WithCtx(ctx)
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// хеш всё равно считаем, чтобы ответ по времени не отличался
		s.hasher.Verify(password, s.dummyPasswordHash())
		log.Info("Вход: неверные учётные данные (service)")
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, internal(err)
	}

	ok := s.hasher.Verify(password, user.PasswordHash)
	if !ok || !user.IsActive {
		log.Info("Вход: неверные учётные данные (service)", zap.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}

	access, accessExp, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, internal(err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, internal(err)
	}

	log.Info("Вход выполнен (service)", zap.String("user_id", user.ID.String()))
	return &models.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        models.TokenTypeBearer,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh выпускает только новый access-токен, refresh-токен не ротируется.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error) {
	userID, err := s.tokens.Verify(refreshToken, utils.KindRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrInvalidRefreshToken
	case err != nil:
		return nil, internal(err)
	case !user.IsActive:
		return nil, ErrInvalidRefreshToken
	}

	access, exp, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, internal(err)
	}

	logger.WithCtx(ctx).Debug("Access-токен обновлён (service)", zap.String("user_id", user.ID.String()))
	return &models.AccessToken{AccessToken: access, TokenType: models.TokenTypeBearer, ExpiresAt: exp}, nil
}

// Authenticate проверяет access-токен для защищённых маршрутов.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (uuid.UUID, error) {
	userID, err := s.tokens.Verify(accessToken, utils.KindAccess)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}

// Profile: текущий пользователь по subject access-токена.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.activeUser(ctx, userID)
}

func (s *AuthService) activeUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, internal(err)
	case !user.IsActive:
		return nil, ErrInvalidToken
	}
	return user, nil
}

func (s *AuthService) validate(v interface{}) error {
	err := s.validator.Struct(v)
	if err == nil {
		return nil
	}
	var fe utils.FieldErrors
	if errors.As(err, &fe) {
		return validation(fe)
	}
	return internal(err)
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
