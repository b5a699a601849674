package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
	orgs  map[string]*domain.Organization
}

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users: make(map[string]*domain.User),
		orgs:  make(map[string]*domain.Organization),
	}
}

var errStoreNotFound = errors.New("not found")

func (m *memUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errStoreNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errStoreNotFound
}

func (m *memUserStore) Create(_ context.Context, u *domain.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return "", errors.New("email already registered")
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return u.ID, nil
}

func (m *memUserStore) UpdateLastLogin(_ context.Context, id string) error { return nil }

func (m *memUserStore) CreateOrganization(_ context.Context, org *domain.Organization) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *org
	m.orgs[org.ID] = &cp
	return org.ID, nil
}

func (m *memUserStore) DeleteOrganization(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orgs, id)
	return nil
}

func authCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:      "test-secret",
		TokenTTLHours:  1,
		BcryptCost:     bcrypt.MinCost,
		MaxLoginPerMin: 60,
	}
}

func seedUser(t *testing.T, store *memUserStore, email, password string, active bool) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		ID:             "u-" + email,
		OrganizationID: "org1",
		Email:          email,
		Name:           "Test User",
		PasswordHash:   string(hash),
		Role:           domain.RoleAdmin,
		Active:         active,
	}
	_, err = store.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func TestLogin(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", true)
	svc := auth.NewService(store, authCfg())

	res, err := svc.Login(context.Background(), "Op@Example.com ", "hunter22!")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "org1", res.User.OrganizationID)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.Subject)
	assert.Equal(t, "org1", claims.OrganizationID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", true)
	svc := auth.NewService(store, authCfg())

	_, err := svc.Login(context.Background(), "op@example.com", "wrong")
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))

	_, err = svc.Login(context.Background(), "nobody@example.com", "hunter22!")
	assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
}

func TestLoginDisabledAccount(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", false)
	svc := auth.NewService(store, authCfg())

	_, err := svc.Login(context.Background(), "op@example.com", "hunter22!")
	assert.True(t, errors.Is(err, auth.ErrAccountDisabled))
}

func TestLoginRateLimited(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", true)
	cfg := authCfg()
	cfg.MaxLoginPerMin = 2
	svc := auth.NewService(store, cfg)

	for i := 0; i < 2; i++ {
		_, err := svc.Login(context.Background(), "op@example.com", "wrong")
		assert.True(t, errors.Is(err, auth.ErrInvalidCredentials))
	}
	_, err := svc.Login(context.Background(), "op@example.com", "hunter22!")
	assert.True(t, errors.Is(err, auth.ErrTooManyAttempts))
}

func TestRegister(t *testing.T) {
	store := newMemUserStore()
	svc := auth.NewService(store, authCfg())

	res, err := svc.Register(context.Background(), auth.RegisterInput{
		OrganizationName: "Lumen Local",
		Email:            "Owner@Example.com",
		Name:             "Owner",
		Password:         "longenough",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, res.User.Role)
	assert.Equal(t, "owner@example.com", res.User.Email)
	assert.NotEmpty(t, res.User.OrganizationID)
	assert.NotEqual(t, "longenough", res.User.PasswordHash)

	// The fresh token works.
	_, err = svc.ValidateToken(res.Token)
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmailRemovesOrganization(t *testing.T) {
	store := newMemUserStore()
	svc := auth.NewService(store, authCfg())

	in := auth.RegisterInput{
		OrganizationName: "Lumen Local",
		Email:            "owner@example.com",
		Name:             "Owner",
		Password:         "longenough",
	}
	_, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	in.OrganizationName = "Second Try"
	_, err = svc.Register(context.Background(), in)
	require.Error(t, err)

	// The failed registration must not leave an unowned org behind.
	assert.Len(t, store.orgs, 1)
	assert.Len(t, store.users, 1)
}

func TestRegisterValidation(t *testing.T) {
	svc := auth.NewService(newMemUserStore(), authCfg())

	cases := []auth.RegisterInput{
		{Email: "a@b.com", Password: "longenough"},
		{OrganizationName: "X", Email: "not-an-email", Password: "longenough"},
		{OrganizationName: "X", Email: "a@b.com", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.Error(t, err)
	}
}

func TestValidateTokenRejectsForged(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", true)
	svc := auth.NewService(store, authCfg())

	res, err := svc.Login(context.Background(), "op@example.com", "hunter22!")
	require.NoError(t, err)

	otherCfg := authCfg()
	otherCfg.JWTSecret = "different-secret"
	other := auth.NewService(store, otherCfg)

	_, err = other.ValidateToken(res.Token)
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))

	_, err = svc.ValidateToken("not.a.token")
	assert.True(t, errors.Is(err, auth.ErrInvalidToken))
}

func TestMiddleware(t *testing.T) {
	store := newMemUserStore()
	seedUser(t, store, "op@example.com", "hunter22!", true)
	svc := auth.NewService(store, authCfg())

	res, err := svc.Login(context.Background(), "op@example.com", "hunter22!")
	require.NoError(t, err)

	var gotUser, gotOrg string
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.UserID(r.Context())
		gotOrg = auth.OrgID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/websites", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.User.ID, gotUser)
	assert.Equal(t, "org1", gotOrg)

	// No token.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/websites", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodGet, "/websites", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	store := newMemUserStore()
	u := seedUser(t, store, "op@example.com", "hunter22!", true) // admin
	svc := auth.NewService(store, authCfg())

	res, err := svc.Login(context.Background(), u.Email, "hunter22!")
	require.NoError(t, err)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	adminOnly := svc.Middleware(auth.RequireRole(domain.RoleAdmin)(ok))
	ownerOnly := svc.Middleware(auth.RequireRole(domain.RoleOwner)(ok))

	req := httptest.NewRequest(http.MethodDelete, "/api-keys/k1", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)

	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ownerOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
