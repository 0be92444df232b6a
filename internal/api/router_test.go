package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/raptiye/blog-api/internal/core/domain"
	"github.com/raptiye/blog-api/internal/core/password"
	"github.com/raptiye/blog-api/internal/core/token"
	"github.com/raptiye/blog-api/internal/infrastructure/config"
)

const testSecret = "router-test-secret"

type memoryUserRepo struct {
	users map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := r.users[username]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, ok := r.users[username]
	return ok, nil
}

func (r *memoryUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := r.users[user.Username]; ok {
		return nil, domain.ErrUsernameTaken
	}
	clone := *user
	clone.ID = user.Username
	r.users[clone.Username] = &clone
	result := clone
	return &result, nil
}

type memoryAuditRepo struct {
	events []domain.AuthEvent
}

func (r *memoryAuditRepo) Insert(_ context.Context, event domain.AuthEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *memoryAuditRepo) Recent(_ context.Context, limit int64) ([]domain.AuthEvent, error) {
	if int64(len(r.events)) < limit {
		limit = int64(len(r.events))
	}
	return r.events[:limit], nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:         "0",
		JWTSecret:    testSecret,
		TokenTTL:     time.Hour,
		BcryptCost:   bcrypt.MinCost,
		StoreTimeout: time.Second,
	}
}

func newTestRouter(t *testing.T, repo *memoryUserRepo, audit *memoryAuditRepo) http.Handler {
	t.Helper()
	deps := Dependencies{
		Users:   repo,
		Metrics: prometheus.NewRegistry(),
		Logger:  zerolog.Nop(),
	}
	if audit != nil {
		deps.Audit = audit
	}
	e, err := NewRouter(testConfig(), deps)
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return e
}

func doJSON(h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEndToEnd_RegisterThenAuthenticate(t *testing.T) {
	h := newTestRouter(t, newMemoryUserRepo(), nil)

	rec := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}

	var reg struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if reg.Username != "alice" || reg.Role != domain.RoleUser || reg.Token == "" {
		t.Fatalf("unexpected register response: %+v", reg)
	}

	claims, err := token.NewCodec(testSecret, time.Hour).Verify(reg.Token, time.Now().UTC())
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != "alice" {
		t.Fatalf("expected subject alice, got %q", claims.Subject)
	}

	rec = doJSON(h, http.MethodGet, "/api/auth/me", "", "Bearer "+reg.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var principal domain.Principal
	if err := json.Unmarshal(rec.Body.Bytes(), &principal); err != nil {
		t.Fatalf("decode principal: %v", err)
	}
	if principal.Username != "alice" || principal.Role != domain.RoleUser {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestEndToEnd_WrongSchemeIsNotAnError(t *testing.T) {
	h := newTestRouter(t, newMemoryUserRepo(), nil)

	// The pipeline proceeds unauthenticated: public routes answer normally.
	rec := doJSON(h, http.MethodGet, "/health", "", "Basic xyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("health with Basic header: expected 200, got %d", rec.Code)
	}

	// Guarded routes reject as unauthenticated, not as a server error.
	rec = doJSON(h, http.MethodGet, "/api/auth/me", "", "Basic xyz")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me with Basic header: expected 401, got %d", rec.Code)
	}
}

func TestEndToEnd_ExpiredToken(t *testing.T) {
	repo := newMemoryUserRepo()
	repo.users["alice"] = &domain.User{Username: "alice", Role: domain.RoleUser, Enabled: true}
	h := newTestRouter(t, repo, nil)

	// One second ttl, verified two seconds after issuance.
	expired, err := token.NewCodec(testSecret, time.Second).
		Issue("alice", domain.RoleUser, time.Now().UTC().Add(-2*time.Second))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := doJSON(h, http.MethodGet, "/api/auth/me", "", "Bearer "+expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}

func TestEndToEnd_LoginFailuresIdentical(t *testing.T) {
	h := newTestRouter(t, newMemoryUserRepo(), nil)

	rec := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"dave","email":"dave@example.com","password":"goodpass"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	wrongPass := doJSON(h, http.MethodPost, "/api/auth/login",
		`{"username":"dave","password":"badpass"}`, "")
	noUser := doJSON(h, http.MethodPost, "/api/auth/login",
		`{"username":"ghost","password":"whatever"}`, "")

	if wrongPass.Code != http.StatusUnauthorized || noUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, noUser.Code)
	}
	if wrongPass.Body.String() != noUser.Body.String() {
		t.Fatalf("failure responses must be identical: %s vs %s", wrongPass.Body, noUser.Body)
	}
}

func TestEndToEnd_DuplicateRegistration(t *testing.T) {
	h := newTestRouter(t, newMemoryUserRepo(), nil)

	first := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"bob","email":"bob@example.com","password":"pass123"}`, "")
	if first.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", first.Code)
	}

	dupUsername := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"bob","email":"other@example.com","password":"pass123"}`, "")
	if dupUsername.Code != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", dupUsername.Code)
	}

	dupEmail := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"robert","email":"bob@example.com","password":"pass123"}`, "")
	if dupEmail.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", dupEmail.Code)
	}
}

func TestEndToEnd_RegistrationValidation(t *testing.T) {
	h := newTestRouter(t, newMemoryUserRepo(), nil)

	rec := doJSON(h, http.MethodPost, "/api/auth/register",
		`{"username":"al","email":"not-an-email","password":"x"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}
}

func TestEndToEnd_AdminAudit(t *testing.T) {
	repo := newMemoryUserRepo()
	hasher := password.NewHasher(bcrypt.MinCost)
	adminHash, err := hasher.Hash("adminpass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo.users["root"] = &domain.User{
		Username: "root", Email: "root@example.com",
		PasswordHash: adminHash, Role: domain.RoleAdmin, Enabled: true,
	}
	audit := &memoryAuditRepo{events: []domain.AuthEvent{
		{Username: "alice", Action: domain.AuditLogin, Success: true, At: time.Now().UTC()},
	}}
	h := newTestRouter(t, repo, audit)

	adminToken, err := token.NewCodec(testSecret, time.Hour).Issue("root", domain.RoleAdmin, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userToken, err := token.NewCodec(testSecret, time.Hour).Issue("alice", domain.RoleUser, time.Now().UTC())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	repo.users["alice"] = &domain.User{Username: "alice", Role: domain.RoleUser, Enabled: true}

	rec := doJSON(h, http.MethodGet, "/api/admin/audit", "", "Bearer "+adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin audit: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var events []domain.AuthEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].Username != "alice" {
		t.Fatalf("unexpected events: %+v", events)
	}

	rec = doJSON(h, http.MethodGet, "/api/admin/audit", "", "Bearer "+userToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: expected 403, got %d", rec.Code)
	}
}
