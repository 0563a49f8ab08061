package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"

	"accounts-api/internal/domain"
	"accounts-api/internal/email"
	"accounts-api/internal/repository"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	updates      int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) List(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) Update(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.usersByID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.usersByID[user.ID] = user
	m.updates++
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return nil
}

type mockTokenRepo struct {
	mu       sync.Mutex
	byKey    map[string]domain.Token
	byUserID map[string]string
	created  int
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{
		byKey:    make(map[string]domain.Token),
		byUserID: make(map[string]string),
	}
}

func (m *mockTokenRepo) GetByKey(_ context.Context, key string) (domain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.byKey[key]
	if !ok {
		return domain.Token{}, pgx.ErrNoRows
	}
	return token, nil
}

func (m *mockTokenRepo) GetOrCreate(_ context.Context, candidate domain.Token) (domain.Token, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key, ok := m.byUserID[candidate.UserID]; ok {
		return m.byKey[key], false, nil
	}
	m.byKey[candidate.Key] = candidate
	m.byUserID[candidate.UserID] = candidate.Key
	m.created++
	return candidate, true, nil
}

type mockEmailSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (m *mockEmailSender) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *mockEmailSender) last(t *testing.T) email.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type allowAll struct{}

func (allowAll) Allow(context.Context, LinkKind, string) bool { return true }

type fixture struct {
	users        *mockUserRepo
	tokens       *mockTokenRepo
	sender       *mockEmailSender
	registry     *TokenRegistry
	auth         *AuthService
	verification *VerificationService
	accounts     *AccountService
}

func newFixture(limiter LinkRateLimiter) *fixture {
	users := newMockUserRepo()
	tokens := newMockTokenRepo()
	sender := &mockEmailSender{}
	hasher := NewPasswordHasher(4)
	registry := NewTokenRegistry(tokens, users)
	if limiter == nil {
		limiter = allowAll{}
	}
	verification := NewVerificationService(nil, users, registry, hasher, sender, limiter, "http://testserver/")
	return &fixture{
		users:        users,
		tokens:       tokens,
		sender:       sender,
		registry:     registry,
		auth:         NewAuthService(nil, users, registry, hasher),
		verification: verification,
		accounts:     NewAccountService(nil, users, hasher, verification),
	}
}

func (f *fixture) register(t *testing.T, emailAddr, password string) RegisterResult {
	t.Helper()
	res, err := f.accounts.Register(context.Background(), RegisterInput{
		Email:           emailAddr,
		Password:        password,
		ConfirmPassword: password,
		FirstName:       "Ada",
		LastName:        "Lovelace",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return res
}

// linkKey extrae la clave del token del link incluido en el cuerpo del email.
func linkKey(t *testing.T, body, path string) string {
	t.Helper()
	idx := strings.Index(body, path)
	if idx < 0 {
		t.Fatalf("expected %s link in body %q", path, body)
	}
	rest := body[idx+len(path):]
	end := strings.Index(rest, "/")
	if end < 0 {
		t.Fatalf("malformed link in body %q", body)
	}
	return rest[:end]
}
