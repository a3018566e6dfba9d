package client

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_NoStoredToken(t *testing.T) {
	_, s := newTestSession(t, NewMemoryStore(State{}))

	assert.True(t, s.IsLoading())
	assert.ErrorIs(t, s.Authorize(), ErrLoading)

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsAuthenticated())
	assert.ErrorIs(t, s.Authorize(), ErrNotAuthenticated)
}

func TestBootstrap_ValidTokenRunsOnce(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.validAccess["stored"] = true
	store := NewMemoryStore(State{AccessToken: "stored", RefreshToken: "r", Theme: ThemeDark})
	s := NewSession(NewAPIClient(srv.URL+"/api/v1", nil), store)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Bootstrap(context.Background())
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, f.meCalls.Load())
	assert.True(t, s.IsAuthenticated())
	assert.NoError(t, s.Authorize())
	assert.Equal(t, "me@x.io", s.CurrentUser().Email)
	assert.Equal(t, ThemeDark, s.Theme())
}

func TestBootstrap_InvalidTokenClears(t *testing.T) {
	store := NewMemoryStore(State{AccessToken: "expired", RefreshToken: "r", Theme: ThemeDark})
	_, s := newTestSession(t, store)

	require.NoError(t, s.Bootstrap(context.Background()))
	assert.False(t, s.IsLoading())
	assert.False(t, s.IsAuthenticated())

	st, _ := store.Load()
	assert.Equal(t, State{Theme: ThemeDark}, st)
}

func TestLogin(t *testing.T) {
	store := NewMemoryStore(State{})
	_, s := newTestSession(t, store)
	require.NoError(t, s.Bootstrap(context.Background()))

	err := s.Login(context.Background(), "me@x.io", "wrong")
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.False(t, s.IsAuthenticated())

	require.NoError(t, s.Login(context.Background(), "me@x.io", "Secret123"))
	assert.True(t, s.IsAuthenticated())
	assert.NoError(t, s.Authorize())

	st, _ := store.Load()
	assert.NotEmpty(t, st.AccessToken)
	assert.Equal(t, "refresh-1", st.RefreshToken)
}

func TestLogin_ProfileFailureLeavesNoSession(t *testing.T) {
	store := NewMemoryStore(State{})
	f, s := newTestSession(t, store)
	require.NoError(t, s.Bootstrap(context.Background()))
	f.failProfile = true

	err := s.Login(context.Background(), "me@x.io", "Secret123")
	require.Error(t, err)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.AccessToken())

	st, _ := store.Load()
	assert.Empty(t, st.AccessToken)
	assert.Empty(t, st.RefreshToken)
}

func TestLogout_IsLocal(t *testing.T) {
	store := NewMemoryStore(State{})
	f, s := newTestSession(t, store)
	require.NoError(t, s.Login(context.Background(), "me@x.io", "Secret123"))
	token := s.AccessToken()
	_, _ = s.ToggleTheme()

	require.NoError(t, s.Logout())
	assert.False(t, s.IsAuthenticated())
	st, _ := store.Load()
	assert.Equal(t, State{Theme: ThemeDark}, st)

	// сервер про logout не знает: токен всё ещё принимается
	assert.True(t, f.validAccess[token])
}

func TestTransport_RefreshesOnceAndRetries(t *testing.T) {
	store := NewMemoryStore(State{})
	f, s := newTestSession(t, store)
	require.NoError(t, s.Login(context.Background(), "me@x.io", "Secret123"))
	old := s.AccessToken()

	f.expireAccess()

	msg, err := s.ChangePassword(context.Background(), "Secret123", "Newpass12")
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully", msg)

	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.EqualValues(t, 2, f.changeCalls.Load())
	assert.NotEqual(t, old, s.AccessToken())
	assert.Equal(t, "Bearer "+s.AccessToken(), f.lastChangeTok)

	st, _ := store.Load()
	assert.Equal(t, s.AccessToken(), st.AccessToken)
}

func TestTransport_RefreshFailureClearsSession(t *testing.T) {
	store := NewMemoryStore(State{})
	f, s := newTestSession(t, store)
	require.NoError(t, s.Login(context.Background(), "me@x.io", "Secret123"))

	f.expireAccess()
	f.revokeRefresh()

	_, err := s.Reload(context.Background())
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.EqualValues(t, 1, f.refreshCalls.Load())
	assert.False(t, s.IsAuthenticated())
	assert.ErrorIs(t, s.Authorize(), ErrNotAuthenticated)
}

func TestPassThroughs(t *testing.T) {
	_, s := newTestSession(t, NewMemoryStore(State{}))
	ctx := context.Background()

	user, err := s.Register(ctx, RegisterRequest{Email: "n@x.io", FullName: "New", Password: "Weakpw12"})
	require.NoError(t, err)
	assert.Equal(t, "n@x.io", user.Email)
	assert.False(t, s.IsAuthenticated())

	_, err = s.Register(ctx, RegisterRequest{Email: "n@x.io", FullName: "New", Password: "short"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "too short", apiErr.Fields["password"])

	msg, err := s.ForgotPassword(ctx, "anyone@x.io")
	require.NoError(t, err)
	assert.Equal(t, "If the email exists, a reset link has been sent.", msg)

	_, err = s.ResetPassword(ctx, "used", "Newpass12")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid or expired reset token", apiErr.Message)
}

func TestToggleTheme_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	_, s := newTestSession(t, NewFileStore(path))
	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Equal(t, ThemeLight, s.Theme())

	theme, err := s.ToggleTheme()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, theme)

	st, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, st.Theme)
}
