package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"authsystem/internal/models"
	"authsystem/internal/repository"
	"authsystem/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Мок-репозиторий пользователей в памяти
type memUsers struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.User
	failAll error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*models.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) IsEmailTaken(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	for _, u := range m.byID {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

func (m *memUsers) setActive(id uuid.UUID, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id].IsActive = active
}

func (m *memUsers) hash(id uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].PasswordHash
}

// memResets повторяет условный UPDATE ... RETURNING под одной блокировкой
type memResets struct {
	mu     sync.Mutex
	users  *memUsers
	tokens map[string]*models.PasswordResetToken
}

func newMemResets(users *memUsers) *memResets {
	return &memResets{users: users, tokens: map[string]*models.PasswordResetToken{}}
}

func (m *memResets) Create(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[tokenHash] = &models.PasswordResetToken{ID: uuid.New(), UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (m *memResets) ConsumeAndSetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenHash]
	if !ok || t.Used || !now.Before(t.ExpiresAt) {
		return uuid.Nil, repository.ErrResetTokenInvalid
	}
	if err := m.users.UpdatePassword(ctx, t.UserID, passwordHash, now); err != nil {
		return uuid.Nil, repository.ErrResetTokenInvalid
	}
	t.Used = true
	usedAt := now
	t.UsedAt = &usedAt
	return t.UserID, nil
}

func (m *memResets) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.Used || !now.Before(t.ExpiresAt) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

type sentReset struct {
	email string
	link  string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentReset
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, u *models.User, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentReset{email: u.Email, link: link})
	return nil
}

func (f *fakeMailer) last(t *testing.T) sentReset {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no reset email sent")
	return f.sent[len(f.sent)-1]
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	svc    *AuthService
	users  *memUsers
	resets *memResets
	store  *ResetTokenStore
	mailer *fakeMailer
	tokens *utils.TokenService
	clock  *testClock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	users := newMemUsers()
	resets := newMemResets(users)
	store := NewResetTokenStore(resets, time.Hour, clock.Now)
	tokens, err := utils.NewTokenService(strings.Repeat("x", utils.MinSecretLen), 15*time.Minute, 7*24*time.Hour, utils.WithClock(clock.Now))
	require.NoError(t, err)
	mailer := &fakeMailer{}

	svc := NewAuthService(AuthDeps{
		Users:       users,
		Hasher:      utils.NewBcryptHasher(bcrypt.MinCost),
		Tokens:      tokens,
		Resets:      store,
		Validator:   utils.NewValidator(),
		Mailer:      mailer,
		FrontendURL: "http://localhost:5173/",
		Now:         clock.Now,
	})
	return &env{svc: svc, users: users, resets: resets, store: store, mailer: mailer, tokens: tokens, clock: clock}
}

func (e *env) register(t *testing.T, email, password string) *models.User {
	t.Helper()
	u, err := e.svc.Register(context.Background(), RegisterInput{Email: email, FullName: "Test User", Password: password})
	require.NoError(t, err)
	return u
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	_, token, ok := strings.Cut(link, "token=")
	require.True(t, ok, "link without token: %s", link)
	return token
}
