package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"authsystem/internal/models"
)

var (
	ErrLoading          = errors.New("session is still loading")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Session: единственный источник правды о токенах и текущем пользователе.
type Session struct {
	api   *APIClient
	store TokenStore

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	user         *models.UserResponse
	theme        Theme
	loading      bool

	bootOnce  sync.Once
	bootErr   error
	refreshMu sync.Mutex
}

// NewSession: защищённые вызовы api пойдут через BearerTransport этой сессии.
func NewSession(api *APIClient, store TokenStore) *Session {
	s := &Session{store: store, loading: true}
	s.api = api.WithAuthTransport(&BearerTransport{Base: api.Transport(), Source: s})
	return s
}

// Bootstrap восстанавливает сессию из хранилища. Выполняется ровно один раз:
// повторные вызовы возвращают результат первого.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.bootOnce.Do(func() {
		s.bootErr = s.bootstrap(ctx)
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	})
	return s.bootErr
}

func (s *Session) bootstrap(ctx context.Context) error {
	st, err := s.store.Load()
	if err != nil {
		return s.clear(st.Theme)
	}

	s.mu.Lock()
	s.theme = st.Theme
	s.mu.Unlock()

	if st.AccessToken == "" {
		return nil
	}

	user, err := s.api.MeWithToken(ctx, st.AccessToken)
	if err != nil {
		// при любом сбое сессии нет
		return s.clear(st.Theme)
	}

	s.mu.Lock()
	s.accessToken = st.AccessToken
	s.refreshToken = st.RefreshToken
	s.user = user
	s.mu.Unlock()
	return nil
}

func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.accessToken != ""
}

func (s *Session) CurrentUser() *models.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Authorize защищает маршрут: пока идёт загрузка или нет сессии, доступ закрыт.
func (s *Session) Authorize() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.loading {
		return ErrLoading
	}
	if s.user == nil || s.accessToken == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// Login выполняется целиком или никак, токены принимаются только после успешного чтения профиля.
func (s *Session) Login(ctx context.Context, email, password string) error {
	pair, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}

	user, err := s.api.MeWithToken(ctx, pair.AccessToken)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	next := State{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, Theme: s.theme}
	s.mu.Unlock()

	if err := s.store.Save(next); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	s.user = user
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Logout только локальный. Сервер сессий не хранит, токены живут до своего exp.
func (s *Session) Logout() error {
	s.mu.RLock()
	theme := s.theme
	s.mu.RUnlock()
	return s.clear(theme)
}

func (s *Session) clear(theme Theme) error {
	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil
	s.mu.Unlock()
	return s.store.Save(State{Theme: theme})
}

func (s *Session) Register(ctx context.Context, in RegisterRequest) (*models.UserResponse, error) {
	return s.api.Register(ctx, in)
}

// Reload перечитывает профиль через защищённый клиент.
func (s *Session) Reload(ctx context.Context) (*models.UserResponse, error) {
	user, err := s.api.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.accessToken != "" {
		s.user = user
	}
	s.mu.Unlock()
	return user, nil
}

func (s *Session) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	return s.api.ChangePassword(ctx, currentPassword, newPassword)
}

func (s *Session) ForgotPassword(ctx context.Context, email string) (string, error) {
	return s.api.ForgotPassword(ctx, email)
}

// ResetPassword не трогает текущую сессию.
func (s *Session) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	return s.api.ResetPassword(ctx, token, newPassword)
}

func (s *Session) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme.OrDefault()
}

func (s *Session) ToggleTheme() (Theme, error) {
	s.mu.Lock()
	s.theme = s.theme.OrDefault().Toggle()
	st := State{AccessToken: s.accessToken, RefreshToken: s.refreshToken, Theme: s.theme}
	s.mu.Unlock()
	return st.Theme, s.store.Save(st)
}

// AccessToken: текущий токен для BearerTransport.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshAccess обновляет access-токен, если stale всё ещё текущий.
// При отказе сервера сессия очищается.
func (s *Session) RefreshAccess(ctx context.Context, stale string) (string, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.RLock()
	current, refresh, theme := s.accessToken, s.refreshToken, s.theme
	s.mu.RUnlock()

	if current != "" && current != stale {
		return current, nil
	}
	if refresh == "" {
		return "", ErrNotAuthenticated
	}

	access, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		if status := StatusOf(err); status == http.StatusUnauthorized {
			_ = s.clear(theme)
		}
		return "", err
	}

	s.mu.Lock()
	s.accessToken = access.AccessToken
	st := State{AccessToken: s.accessToken, RefreshToken: s.refreshToken, Theme: s.theme}
	s.mu.Unlock()

	if err := s.store.Save(st); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}
	return access.AccessToken, nil
}
