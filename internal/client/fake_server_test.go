package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"authsystem/internal/models"

	"github.com/google/uuid"
)

// fakeAPI: сервер с телами как у API (ошибки в {"error"}) и управляемыми токенами.
type fakeAPI struct {
	mu            sync.Mutex
	user          models.UserResponse
	password      string
	validAccess   map[string]bool
	validRefresh  map[string]bool
	issued        int
	failProfile   bool
	meCalls       atomic.Int32
	refreshCalls  atomic.Int32
	changeCalls   atomic.Int32
	lastChangeTok string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{
		user: models.UserResponse{
			ID: uuid.New(), Email: "me@x.io", FullName: "Me", IsActive: true,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		password:     "Secret123",
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{},
	}
	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": msg, "fields": fields})
}

func (f *fakeAPI) bearer(r *http.Request) bool {
	tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validAccess[tok]
}

func (f *fakeAPI) issueAccess() string {
	f.issued++
	tok := "access-" + string(rune('a'+f.issued))
	f.validAccess[tok] = true
	return tok
}

// expireAccess делает все выданные access-токены невалидными.
func (f *fakeAPI) expireAccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validAccess = map[string]bool{}
}

func (f *fakeAPI) revokeRefresh() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validRefresh = map[string]bool{}
}

func (f *fakeAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["email"] != f.user.Email || in["password"] != f.password {
			writeErr(w, http.StatusUnauthorized, "Incorrect email or password", nil)
			return
		}
		f.mu.Lock()
		access := f.issueAccess()
		f.validRefresh["refresh-1"] = true
		f.mu.Unlock()
		writeData(w, http.StatusOK, models.TokenPair{AccessToken: access, RefreshToken: "refresh-1", TokenType: "bearer"})
	})

	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		ok := f.validRefresh[in["refresh_token"]]
		var access string
		if ok {
			access = f.issueAccess()
		}
		f.mu.Unlock()
		if !ok {
			writeErr(w, http.StatusUnauthorized, "Invalid or expired refresh token", nil)
			return
		}
		writeData(w, http.StatusOK, models.AccessToken{AccessToken: access, TokenType: "bearer"})
	})

	mux.HandleFunc("GET /api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		f.mu.Lock()
		fail := f.failProfile
		f.mu.Unlock()
		if fail {
			writeErr(w, http.StatusInternalServerError, "Internal server error", nil)
			return
		}
		if !f.bearer(r) {
			writeErr(w, http.StatusUnauthorized, "Could not validate credentials", nil)
			return
		}
		writeData(w, http.StatusOK, f.user)
	})

	mux.HandleFunc("POST /api/v1/auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		f.changeCalls.Add(1)
		if !f.bearer(r) {
			writeErr(w, http.StatusUnauthorized, "Could not validate credentials", nil)
			return
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.lastChangeTok = r.Header.Get("Authorization")
		f.mu.Unlock()
		if in["current_password"] != f.password {
			writeErr(w, http.StatusBadRequest, "Current password is incorrect", nil)
			return
		}
		writeData(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
	})

	mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		if len(in.Password) < 8 {
			writeErr(w, http.StatusUnprocessableEntity, "Validation failed", map[string]string{"password": "too short"})
			return
		}
		writeData(w, http.StatusCreated, models.UserResponse{ID: uuid.New(), Email: in.Email, FullName: in.FullName, IsActive: true})
	})

	mux.HandleFunc("POST /api/v1/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"message": "If the email exists, a reset link has been sent."})
	})

	mux.HandleFunc("POST /api/v1/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusBadRequest, "Invalid or expired reset token", nil)
	})

	return mux
}

func newTestSession(t *testing.T, store TokenStore) (*fakeAPI, *Session) {
	t.Helper()
	f, srv := newFakeAPI(t)
	return f, NewSession(NewAPIClient(srv.URL+"/api/v1", srv.Client().Transport), store)
}
