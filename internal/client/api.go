package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"authsystem/internal/models"
)

// DefaultTimeout: предел одного запроса к API.
const DefaultTimeout = 10 * time.Second

// APIError ошибка из конверта {"error": ..., "fields": ...}.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Fields)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// StatusOf возвращает HTTP-статус APIError или 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// APIClient: типизированные вызовы /api/v1.
// Публичные ручки идут через public, защищённые через authed (обычно с BearerTransport).
type APIClient struct {
	baseURL string
	public  *http.Client
	authed  *http.Client
}

func NewAPIClient(baseURL string, transport http.RoundTripper) *APIClient {
	if transport == nil {
		transport = http.DefaultTransport
	}
	hc := &http.Client{Timeout: DefaultTimeout, Transport: transport}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		public:  hc,
		authed:  hc,
	}
}

// WithAuthTransport возвращает копию клиента, у которой защищённые вызовы идут через rt.
func (c *APIClient) WithAuthTransport(rt http.RoundTripper) *APIClient {
	cp := *c
	cp.authed = &http.Client{Timeout: c.public.Timeout, Transport: rt}
	return &cp
}

// Transport: базовый транспорт публичного клиента.
func (c *APIClient) Transport() http.RoundTripper {
	return c.public.Transport
}

func (c *APIClient) Register(ctx context.Context, in RegisterRequest) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/register", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	var out models.TokenPair
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) Refresh(ctx context.Context, refreshToken string) (*models.AccessToken, error) {
	var out models.AccessToken
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/refresh", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me: профиль через защищённый клиент.
func (c *APIClient) Me(ctx context.Context) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.do(ctx, c.authed, http.MethodGet, "/users/me", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MeWithToken: профиль с явным токеном, без обновления; нужен до того, как токен принят сессией.
func (c *APIClient) MeWithToken(ctx context.Context, accessToken string) (*models.UserResponse, error) {
	var out models.UserResponse
	if err := c.do(ctx, c.public, http.MethodGet, "/users/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	var out messageResponse
	in := map[string]string{"current_password": currentPassword, "new_password": newPassword}
	if err := c.do(ctx, c.authed, http.MethodPost, "/auth/change-password", "", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *APIClient) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": email}, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *APIClient) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	var out messageResponse
	in := map[string]string{"token": token, "new_password": newPassword}
	if err := c.do(ctx, c.public, http.MethodPost, "/auth/reset-password", "", in, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *APIClient) do(ctx context.Context, hc *http.Client, method, path, bearer string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		apiErr := &APIError{Status: resp.StatusCode}
		if readErr == nil && json.Unmarshal(raw, &eb) == nil {
			apiErr.Message, apiErr.Fields = eb.Error, eb.Fields
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if readErr != nil {
		return fmt.Errorf("read response: %w", readErr)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
