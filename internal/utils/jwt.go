package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLen: минимальная длина ключа HS256.
const MinSecretLen = 32

// TokenKind хранится в обязательном claim "type", access-токен нельзя предъявить вместо refresh и наоборот.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// ErrInvalidToken: единственная ошибка Verify. Причину (подпись, срок, тип) наружу не отдаём.
var ErrInvalidToken = errors.New("invalid token")

type tokenClaims struct {
	Type TokenKind `json:"type"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokenOption func(*TokenService)

// WithClock подменяет часы (тесты, граница истечения).
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLen)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	s := &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *TokenService) IssueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	return s.issue(userID, KindAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(userID uuid.UUID) (string, time.Time, error) {
	return s.issue(userID, KindRefresh, s.refreshTTL)
}

func (s *TokenService) issue(userID uuid.UUID, kind TokenKind, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	// exp в JWT хранится в секундах, возвращаем ровно тот момент, что попал в токен
	expiresAt := now.Add(ttl).Truncate(jwt.TimePrecision)

	claims := tokenClaims{
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify проверяет подпись, срок (момент exp уже считается истёкшим) и тип токена.
func (s *TokenService) Verify(tokenString string, expected TokenKind) (uuid.UUID, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
