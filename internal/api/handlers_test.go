package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lumenlocal/rankdesk/internal/api"
	"github.com/lumenlocal/rankdesk/internal/auth"
	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/repository/postgres"
	"github.com/lumenlocal/rankdesk/internal/service/lead"
	"github.com/lumenlocal/rankdesk/internal/service/task"
	"github.com/lumenlocal/rankdesk/internal/service/website"
	"github.com/lumenlocal/rankdesk/internal/video"
)

// --- in-memory doubles ---

var errMemNotFound = errors.New("not found")

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

func (m *memUserStore) Get(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errMemNotFound
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
	return nil, errMemNotFound
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

func (m *memUserStore) UpdateLastLogin(_ context.Context, _ string) error { return nil }

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

type memWebsiteRepo struct {
	mu    sync.Mutex
	sites map[string]*domain.Website
}

func newMemWebsiteRepo() *memWebsiteRepo {
	return &memWebsiteRepo{sites: make(map[string]*domain.Website)}
}

func (m *memWebsiteRepo) Get(_ context.Context, orgID, id string) (*domain.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok || w.OrganizationID != orgID {
		return nil, website.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWebsiteRepo) Lookup(_ context.Context, id string) (*domain.Website, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok {
		return nil, website.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWebsiteRepo) List(_ context.Context, orgID string, f website.ListFilter) ([]domain.Website, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Website
	for _, w := range m.sites {
		if w.OrganizationID != orgID {
			continue
		}
		if f.Status != "" && string(w.Status) != f.Status {
			continue
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, len(out), nil
}

func (m *memWebsiteRepo) Create(_ context.Context, w *domain.Website) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sites {
		if existing.OrganizationID == w.OrganizationID && existing.Domain == w.Domain {
			return "", website.ErrDomainTaken
		}
	}
	cp := *w
	m.sites[w.ID] = &cp
	return w.ID, nil
}

func (m *memWebsiteRepo) Update(_ context.Context, orgID, id string, u website.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok || w.OrganizationID != orgID {
		return website.ErrNotFound
	}
	if u.Notes != nil {
		w.Notes = *u.Notes
	}
	if u.Status != nil {
		w.Status = *u.Status
	}
	return nil
}

func (m *memWebsiteRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok || w.OrganizationID != orgID {
		return website.ErrNotFound
	}
	delete(m.sites, id)
	return nil
}

func (m *memWebsiteRepo) Rent(_ context.Context, orgID, id, clientID string, monthlyRent float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok || w.OrganizationID != orgID {
		return website.ErrNotFound
	}
	now := time.Now()
	w.Status = domain.WebsiteRented
	w.ClientID = &clientID
	w.MonthlyRent = monthlyRent
	w.RentedAt = &now
	return nil
}

func (m *memWebsiteRepo) Unrent(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.sites[id]
	if !ok || w.OrganizationID != orgID {
		return website.ErrNotFound
	}
	w.Status = domain.WebsiteRanking
	w.ClientID = nil
	w.RentedAt = nil
	return nil
}

func (m *memWebsiteRepo) PortfolioStats(_ context.Context, orgID string) (*website.PortfolioStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &website.PortfolioStats{ByStatus: make(map[domain.WebsiteStatus]int)}
	for _, w := range m.sites {
		if w.OrganizationID != orgID {
			continue
		}
		stats.ByStatus[w.Status]++
		if w.Status == domain.WebsiteRented {
			stats.MonthlyRentRoll += w.MonthlyRent
		}
	}
	return stats, nil
}

type memLeadRepo struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead
}

func newMemLeadRepo() *memLeadRepo {
	return &memLeadRepo{leads: make(map[string]*domain.Lead)}
}

func (m *memLeadRepo) Get(_ context.Context, orgID, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.OrganizationID != orgID {
		return nil, lead.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memLeadRepo) List(_ context.Context, orgID string, f lead.ListFilter) ([]domain.Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lead
	for _, l := range m.leads {
		if l.OrganizationID != orgID {
			continue
		}
		if f.WebsiteID != "" && l.WebsiteID != f.WebsiteID {
			continue
		}
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *memLeadRepo) Create(_ context.Context, l *domain.Lead) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.leads[l.ID] = &cp
	return l.ID, nil
}

func (m *memLeadRepo) Update(_ context.Context, orgID, id string, u lead.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.OrganizationID != orgID {
		return lead.ErrNotFound
	}
	if u.Name != nil {
		l.Name = *u.Name
	}
	return nil
}

func (m *memLeadRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.OrganizationID != orgID {
		return lead.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *memLeadRepo) UpdateStatus(_ context.Context, orgID, id string, status domain.LeadStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.OrganizationID != orgID {
		return lead.ErrNotFound
	}
	l.Status = status
	return nil
}

func (m *memLeadRepo) CountByStatus(_ context.Context, orgID string) (map[domain.LeadStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.LeadStatus]int)
	for _, l := range m.leads {
		if l.OrganizationID == orgID {
			counts[l.Status]++
		}
	}
	return counts, nil
}

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (m *memTaskRepo) Get(_ context.Context, orgID, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, task.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTaskRepo) List(_ context.Context, orgID string, _ task.ListFilter) ([]domain.Task, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.OrganizationID == orgID {
			out = append(out, *t)
		}
	}
	return out, len(out), nil
}

func (m *memTaskRepo) Create(_ context.Context, t *domain.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return t.ID, nil
}

func (m *memTaskRepo) Update(_ context.Context, orgID, id string, _ task.UpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	return nil
}

func (m *memTaskRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTaskRepo) UpdateStatus(_ context.Context, orgID, id string, status domain.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return task.ErrNotFound
	}
	t.Status = status
	if status == domain.TaskDone {
		now := time.Now()
		t.CompletedAt = &now
	}
	return nil
}

func (m *memTaskRepo) ListDueBefore(_ context.Context, orgID string, cutoff time.Time) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.OrganizationID != orgID || t.IsTerminal() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(cutoff) {
			out = append(out, *t)
		}
	}
	return out, nil
}

type memClientStore struct {
	mu      sync.Mutex
	clients map[string]*domain.Client
	rented  map[string]int // client id -> rented website count
}

func newMemClientStore() *memClientStore {
	return &memClientStore{
		clients: make(map[string]*domain.Client),
		rented:  make(map[string]int),
	}
}

func (m *memClientStore) Get(_ context.Context, orgID, id string) (*domain.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return nil, postgres.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memClientStore) List(_ context.Context, orgID string, _ postgres.ClientListFilter) ([]domain.Client, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Client
	for _, c := range m.clients {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (m *memClientStore) Create(_ context.Context, c *domain.Client) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = fmt.Sprintf("client-%d", len(m.clients)+1)
	}
	cp := *c
	m.clients[c.ID] = &cp
	return c.ID, nil
}

func (m *memClientStore) Update(_ context.Context, orgID, id string, u postgres.ClientUpdateFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return postgres.ErrNotFound
	}
	if u.BusinessName != nil {
		c.BusinessName = *u.BusinessName
	}
	return nil
}

func (m *memClientStore) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return postgres.ErrNotFound
	}
	if m.rented[id] > 0 {
		return postgres.ErrClientHasWebsites
	}
	delete(m.clients, id)
	return nil
}

type memVideoRepo struct {
	mu     sync.Mutex
	videos map[string]*domain.Video
}

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{videos: make(map[string]*domain.Video)}
}

func (m *memVideoRepo) Get(_ context.Context, orgID, id string) (*domain.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok || v.OrganizationID != orgID {
		return nil, video.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVideoRepo) List(_ context.Context, orgID string, _ video.ListFilter) ([]domain.Video, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Video
	for _, v := range m.videos {
		if v.OrganizationID == orgID {
			out = append(out, *v)
		}
	}
	return out, len(out), nil
}

func (m *memVideoRepo) Create(_ context.Context, v *domain.Video) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.videos[v.ID] = &cp
	return v.ID, nil
}

func (m *memVideoRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok || v.OrganizationID != orgID {
		return video.ErrNotFound
	}
	delete(m.videos, id)
	return nil
}

func (m *memVideoRepo) ClaimNextPending(_ context.Context, _ int) (*domain.Video, error) {
	return nil, video.ErrNoPending
}

func (m *memVideoRepo) MarkReady(_ context.Context, id string, _ video.ProcessedMeta) error {
	return nil
}

func (m *memVideoRepo) MarkFailed(_ context.Context, id, _ string, _ bool) error {
	return nil
}

type memMediaStore struct{}

func (memMediaStore) Put(_ context.Context, _, _ string, body io.Reader) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func (memMediaStore) Delete(_ context.Context, _ string) error { return nil }

func (memMediaStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://media.example.com/" + key, nil
}

// --- harness ---

type testEnv struct {
	router   http.Handler
	users    *memUserStore
	websites *memWebsiteRepo
	leads    *memLeadRepo
	tasks    *memTaskRepo
	clients  *memClientStore
	videos   *memVideoRepo
	authSvc  *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newMemUserStore(),
		websites: newMemWebsiteRepo(),
		leads:    newMemLeadRepo(),
		tasks:    newMemTaskRepo(),
		clients:  newMemClientStore(),
		videos:   newMemVideoRepo(),
	}
	env.authSvc = auth.NewService(env.users, config.AuthConfig{
		JWTSecret:      "test-secret",
		TokenTTLHours:  1,
		BcryptCost:     bcrypt.MinCost,
		MaxLoginPerMin: 100,
	})

	h := api.NewHandlers(
		env.authSvc,
		website.NewService(env.websites),
		lead.NewService(env.leads),
		task.NewService(env.tasks),
		env.clients,
		nil, // phones
		video.NewService(env.videos, memMediaStore{}, t.TempDir(), 1),
		nil, // keywords
		nil, // api keys
		nil, // cache
	)
	env.router = api.SetupRoutes(h, nil)
	return env
}

// registerOwner creates an org through the public endpoint and returns
// the session token and organization ID.
func (e *testEnv) registerOwner(t *testing.T, email string) (token, orgID string) {
	t.Helper()

	res := e.do(t, http.MethodPost, "/auth/register", "", map[string]interface{}{
		"organization_name": "Acme Rentals",
		"email":             email,
		"name":              "Owner",
		"password":          "hunter22pass",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var body struct {
		Token string `json:"token"`
		User  struct {
			OrganizationID string `json:"organization_id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body.Token, body.User.OrganizationID
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestHealthAndAuthGate(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = env.do(t, http.MethodGet, "/api/websites/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = env.do(t, http.MethodGet, "/api/websites/", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRegisterAndMe(t *testing.T) {
	env := newTestEnv(t)
	token, orgID := env.registerOwner(t, "owner@acme.test")

	res := env.do(t, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, res.Code)

	var me map[string]string
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &me))
	assert.Equal(t, orgID, me["organization_id"])
	assert.Equal(t, "owner", me["role"])
}

func TestWebsiteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerOwner(t, "owner@acme.test")

	res := env.do(t, http.MethodPost, "/api/websites/", token, map[string]interface{}{
		"domain": "plumbers-austin.com",
		"niche":  "plumbing",
		"city":   "Austin",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	var site domain.Website
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &site))
	assert.Equal(t, domain.WebsiteDraft, site.Status)

	// Duplicate domain is refused.
	res = env.do(t, http.MethodPost, "/api/websites/", token, map[string]interface{}{
		"domain": "plumbers-austin.com",
		"niche":  "plumbing",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	// Rent it out.
	res = env.do(t, http.MethodPost, "/api/clients/", token, map[string]interface{}{
		"business_name": "Austin Plumbing Co",
		"monthly_rate":  900,
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var client domain.Client
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &client))

	res = env.do(t, http.MethodPost, "/api/websites/"+site.ID+"/rent", token, map[string]interface{}{
		"client_id":    client.ID,
		"monthly_rent": 900,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	var rented domain.Website
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &rented))
	assert.Equal(t, domain.WebsiteRented, rented.Status)
	require.NotNil(t, rented.ClientID)
	assert.Equal(t, client.ID, *rented.ClientID)

	// List wraps results in the pagination envelope.
	res = env.do(t, http.MethodGet, "/api/websites/?page=1&limit=10", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var listed struct {
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listed))
	assert.Equal(t, 1, listed.Pagination.Total)
}

func TestPublicLeadCapture(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerOwner(t, "owner@acme.test")

	res := env.do(t, http.MethodPost, "/api/websites/", token, map[string]interface{}{
		"domain": "roofers-dallas.com",
		"niche":  "roofing",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var site domain.Website
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &site))

	// No auth header: the capture endpoint is public.
	res = env.do(t, http.MethodPost, "/capture/"+site.ID, "", map[string]interface{}{
		"name":    "Jordan Smith",
		"phone":   "+15551230000",
		"message": "need a roof quote",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	res = env.do(t, http.MethodGet, "/api/leads/?website_id="+site.ID, token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var listed struct {
		Data []domain.Lead `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, domain.LeadSourceForm, listed.Data[0].Source)
	assert.Equal(t, domain.LeadNew, listed.Data[0].Status)

	res = env.do(t, http.MethodPost, "/capture/no-such-site", "", map[string]interface{}{
		"name":  "Nobody",
		"phone": "+15550000000",
	})
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestLeadTransitions(t *testing.T) {
	env := newTestEnv(t)
	token, orgID := env.registerOwner(t, "owner@acme.test")

	l := &domain.Lead{
		ID:             "lead-1",
		OrganizationID: orgID,
		WebsiteID:      "site-1",
		Name:           "Prospect",
		Status:         domain.LeadNew,
	}
	_, err := env.leads.Create(context.Background(), l)
	require.NoError(t, err)

	res := env.do(t, http.MethodPost, "/api/leads/lead-1/status", token, map[string]string{
		"status": "contacted",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	// Backwards move is refused.
	res = env.do(t, http.MethodPost, "/api/leads/lead-1/status", token, map[string]string{
		"status": "new",
	})
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestTaskCompleteAndDue(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerOwner(t, "owner@acme.test")

	due := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	res := env.do(t, http.MethodPost, "/api/tasks/", token, map[string]interface{}{
		"title":    "Write city page",
		"priority": "high",
		"due_date": due,
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created domain.Task
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))

	res = env.do(t, http.MethodGet, "/api/tasks/due?hours=48", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var dueList struct {
		Data []domain.Task `json:"data"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &dueList))
	require.Len(t, dueList.Data, 1)

	res = env.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, res.Code)

	// Completing a closed task conflicts.
	res = env.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/complete", token, nil)
	assert.Equal(t, http.StatusConflict, res.Code)
}

func TestClientDeleteGuard(t *testing.T) {
	env := newTestEnv(t)
	token, orgID := env.registerOwner(t, "owner@acme.test")

	id, err := env.clients.Create(context.Background(), &domain.Client{
		OrganizationID: orgID,
		BusinessName:   "Busy Client",
	})
	require.NoError(t, err)
	env.clients.rented[id] = 1

	res := env.do(t, http.MethodDelete, "/api/clients/"+id, token, nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	env.clients.rented[id] = 0
	res = env.do(t, http.MethodDelete, "/api/clients/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestAdminOnlyKeyPool(t *testing.T) {
	env := newTestEnv(t)
	_, orgID := env.registerOwner(t, "owner@acme.test")

	hash, err := bcrypt.GenerateFromPassword([]byte("memberpass1"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = env.users.Create(context.Background(), &domain.User{
		ID:             "member-1",
		OrganizationID: orgID,
		Email:          "member@acme.test",
		Name:           "Member",
		PasswordHash:   string(hash),
		Role:           domain.RoleMember,
		Active:         true,
	})
	require.NoError(t, err)

	login := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "member@acme.test",
		"password": "memberpass1",
	})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &result))

	res := env.do(t, http.MethodGet, "/api/seo-keys/", result.Token, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	tokenA, _ := env.registerOwner(t, "a@acme.test")
	tokenB, _ := env.registerOwner(t, "b@other.test")

	res := env.do(t, http.MethodPost, "/api/websites/", tokenA, map[string]interface{}{
		"domain": "hvac-houston.com",
		"niche":  "hvac",
	})
	require.Equal(t, http.StatusCreated, res.Code)
	var site domain.Website
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &site))

	// Org B cannot see org A's site.
	res = env.do(t, http.MethodGet, "/api/websites/"+site.ID, tokenB, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = env.do(t, http.MethodGet, "/api/websites/"+site.ID, tokenA, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func multipartUpload(t *testing.T, title string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("title", title))
	fw, err := mw.CreateFormFile("file", "clip.mp4")
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadVideo(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerOwner(t, "owner@acme.test")

	body, ctype := multipartUpload(t, "site walkthrough", []byte("tiny clip"))
	req := httptest.NewRequest(http.MethodPost, "/api/videos/", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var v domain.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, domain.VideoPending, v.Status)
	assert.Equal(t, "clip.mp4", v.OriginalName)
}

func TestUploadVideoOversizeCutOffAtCap(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerOwner(t, "owner@acme.test")

	// 8 MiB against the 1 MiB test limit. The request must be refused
	// without the body being read to the end, so the counter stays near
	// the cap instead of the full payload size.
	big, ctype := multipartUpload(t, "too big", bytes.Repeat([]byte("x"), 8<<20))
	counted := &countingReader{r: big}
	req := httptest.NewRequest(http.MethodPost, "/api/videos/", counted)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Less(t, counted.n, int64(4<<20))
	assert.Empty(t, env.videos.videos)
}
