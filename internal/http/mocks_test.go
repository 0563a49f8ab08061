package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"accounts-api/internal/domain"
	"accounts-api/internal/email"
	"accounts-api/internal/repository"
	"accounts-api/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
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

func (m *mockEmailSender) lastKey(t *testing.T, path string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	body := m.sent[len(m.sent)-1].Body
	idx := strings.Index(body, path)
	if idx < 0 {
		t.Fatalf("expected %s link in %q", path, body)
	}
	rest := body[idx+len(path):]
	return rest[:strings.Index(rest, "/")]
}

type testAPI struct {
	router *gin.Engine
	users  *mockUserRepo
	sender *mockEmailSender
	auth   *service.AuthService
}

func newTestAPI(limiter service.LinkRateLimiter, maskUnknownEmail bool) *testAPI {
	gin.SetMode(gin.TestMode)
	users := newMockUserRepo()
	tokens := newMockTokenRepo()
	sender := &mockEmailSender{}
	hasher := service.NewPasswordHasher(4)
	registry := service.NewTokenRegistry(tokens, users)
	if limiter == nil {
		limiter = service.NewLinkRateLimiter(0, 1000)
	}

	logger := zap.NewNop()
	authSvc := service.NewAuthService(logger, users, registry, hasher)
	verificationSvc := service.NewVerificationService(logger, users, registry, hasher, sender, limiter, "http://testserver")
	accountSvc := service.NewAccountService(logger, users, hasher, verificationSvc)

	router := NewRouter(
		logger,
		NewUserHandler(logger, accountSvc),
		NewAuthHandler(logger, authSvc, verificationSvc, maskUnknownEmail),
		authSvc,
	)
	return &testAPI{router: router, users: users, sender: sender, auth: authSvc}
}

func performRequest(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func (api *testAPI) register(t *testing.T, emailAddr, password string) {
	t.Helper()
	rec := performRequest(api.router, http.MethodPost, "/register/", map[string]string{
		"email":            emailAddr,
		"password":         password,
		"confirm_password": password,
		"first_name":       "Ada",
		"last_name":        "Lovelace",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

// registerVerified registra, verifica y hace login; devuelve el token.
func (api *testAPI) registerVerified(t *testing.T, emailAddr, password string) string {
	t.Helper()
	api.register(t, emailAddr, password)
	key := api.sender.lastKey(t, "/verify-email/")
	rec := performRequest(api.router, http.MethodGet, "/verify-email/"+key+"/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected verify 200, got %d", rec.Code)
	}
	return key
}
