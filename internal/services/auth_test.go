package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"authsystem/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, err := e.svc.Register(ctx, RegisterInput{Email: "  A@B.com ", FullName: " Jo ", Password: "Weakpw12"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, "Jo", u.FullName)
	assert.True(t, u.IsActive)
	assert.NotEqual(t, "Weakpw12", e.users.hash(u.ID), "password must be stored hashed")

	_, err = e.svc.Register(ctx, RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "Weakpw12"})
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		in     RegisterInput
		fields []string
	}{
		{name: "password 7 chars", in: RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "Weakpw1"}, fields: []string{"password"}},
		{name: "no upper", in: RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "weakpw12"}, fields: []string{"password"}},
		{name: "no lower", in: RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "WEAKPW12"}, fields: []string{"password"}},
		{name: "no digit", in: RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "Weakpwdd"}, fields: []string{"password"}},
		{name: "bad email", in: RegisterInput{Email: "a-at-b", FullName: "Jo", Password: "Weakpw12"}, fields: []string{"email"}},
		{name: "short name after trim", in: RegisterInput{Email: "a@b.com", FullName: "  J  ", Password: "Weakpw12"}, fields: []string{"full_name"}},
		{name: "long name", in: RegisterInput{Email: "a@b.com", FullName: strings.Repeat("n", 256), Password: "Weakpw12"}, fields: []string{"full_name"}},
		{name: "everything", in: RegisterInput{}, fields: []string{"email", "full_name", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.users.failAll = errors.New("db must not be touched")

			_, err := e.svc.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, ErrValidation)

			var se *Error
			require.ErrorAs(t, err, &se)
			for _, f := range tt.fields {
				assert.Contains(t, se.Fields, f)
			}
		})
	}
}

func TestRegister_Exactly8CharsAccepted(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "Abcdef12"})
	assert.NoError(t, err)
}

func TestRegister_PasswordByteLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.Register(ctx, RegisterInput{Email: "max@b.com", FullName: "Jo", Password: "Aa1" + strings.Repeat("x", 69)})
	require.NoError(t, err)

	_, err = e.svc.Register(ctx, RegisterInput{Email: "over@b.com", FullName: "Jo", Password: "Aa1" + strings.Repeat("x", 70)})
	require.ErrorIs(t, err, ErrValidation)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "must be at most 72 bytes", se.Fields["password"])
}

func TestRegister_InternalError(t *testing.T) {
	e := newEnv(t)
	e.users.failAll = errors.New("connection refused")
	_, err := e.svc.Register(context.Background(), RegisterInput{Email: "a@b.com", FullName: "Jo", Password: "Weakpw12"})
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestLogin_TokensVerifyToUser(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "a@b.com", "Weakpw12")

	pair, err := e.svc.Login(context.Background(), "A@b.com", "Weakpw12")
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, e.clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)

	id, err := e.tokens.Verify(pair.AccessToken, utils.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	id, err = e.tokens.Verify(pair.RefreshToken, utils.KindRefresh)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestLogin_UniformFailure(t *testing.T) {
	e := newEnv(t)
	e.register(t, "a@b.com", "Weakpw12")
	inactive := e.register(t, "off@b.com", "Weakpw12")
	e.users.setActive(inactive.ID, false)

	cases := map[string][2]string{
		"unknown email":  {"nobody@b.com", "Weakpw12"},
		"wrong password": {"a@b.com", "Wrongpw12"},
		"inactive":       {"off@b.com", "Weakpw12"},
		"empty password": {"a@b.com", ""},
	}

	var messages []string
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			pair, err := e.svc.Login(context.Background(), c[0], c[1])
			assert.Nil(t, pair)
			assert.Same(t, ErrInvalidCredentials, err)
			messages = append(messages, err.Error())
		})
	}
	for _, m := range messages {
		assert.Equal(t, messages[0], m)
	}
}

func TestRefresh(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "a@b.com", "Weakpw12")
	pair, err := e.svc.Login(context.Background(), "a@b.com", "Weakpw12")
	require.NoError(t, err)

	e.clock.Advance(time.Minute)
	at, err := e.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "bearer", at.TokenType)
	id, err := e.tokens.Verify(at.AccessToken, utils.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := e.svc.Refresh(context.Background(), pair.AccessToken)
		assert.Same(t, ErrInvalidRefreshToken, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := e.svc.Refresh(context.Background(), "nope")
		assert.Same(t, ErrInvalidRefreshToken, err)
	})

	t.Run("inactive user", func(t *testing.T) {
		e.users.setActive(u.ID, false)
		defer e.users.setActive(u.ID, true)
		_, err := e.svc.Refresh(context.Background(), pair.RefreshToken)
		assert.Same(t, ErrInvalidRefreshToken, err)
	})

	t.Run("missing user", func(t *testing.T) {
		ghost, _, err := e.tokens.IssueRefreshToken(uuid.New())
		require.NoError(t, err)
		_, err = e.svc.Refresh(context.Background(), ghost)
		assert.Same(t, ErrInvalidRefreshToken, err)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		e.clock.Advance(7 * 24 * time.Hour)
		_, err := e.svc.Refresh(context.Background(), pair.RefreshToken)
		assert.Same(t, ErrInvalidRefreshToken, err)
	})
}

func TestAuthenticateAndProfile(t *testing.T) {
	e := newEnv(t)
	u := e.register(t, "a@b.com", "Weakpw12")
	pair, err := e.svc.Login(context.Background(), "a@b.com", "Weakpw12")
	require.NoError(t, err)

	id, err := e.svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = e.svc.Authenticate(context.Background(), pair.RefreshToken)
	assert.Same(t, ErrInvalidToken, err)

	p, err := e.svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", p.Email)

	e.users.setActive(u.ID, false)
	_, err = e.svc.Profile(context.Background(), id)
	assert.Same(t, ErrInvalidToken, err)

	_, err = e.svc.Profile(context.Background(), uuid.New())
	assert.Same(t, ErrInvalidToken, err)
}

func TestAccessTokenExpiresAtBoundary(t *testing.T) {
	e := newEnv(t)
	e.register(t, "a@b.com", "Weakpw12")
	pair, err := e.svc.Login(context.Background(), "a@b.com", "Weakpw12")
	require.NoError(t, err)

	e.clock.Advance(15 * time.Minute)
	_, err = e.svc.Authenticate(context.Background(), pair.AccessToken)
	assert.Same(t, ErrInvalidToken, err)
}
