package keywords_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/keywords"
	"github.com/lumenlocal/rankdesk/internal/metrics"
	"github.com/lumenlocal/rankdesk/internal/seoapi"
)

type memKeywordRepo struct {
	mu      sync.Mutex
	kws     map[string]*domain.Keyword
	snaps   []domain.RankSnapshot
	targets []keywords.TrackTarget
}

func newMemKeywordRepo() *memKeywordRepo {
	return &memKeywordRepo{kws: make(map[string]*domain.Keyword)}
}

func (m *memKeywordRepo) Get(_ context.Context, orgID, id string) (*domain.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.kws[id]
	if !ok || k.OrganizationID != orgID {
		return nil, keywords.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (m *memKeywordRepo) ListByWebsite(_ context.Context, orgID, websiteID string) ([]domain.Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Keyword
	for _, k := range m.kws {
		if k.OrganizationID == orgID && k.WebsiteID == websiteID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (m *memKeywordRepo) Create(_ context.Context, k *domain.Keyword) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.kws {
		if existing.WebsiteID == k.WebsiteID && existing.Phrase == k.Phrase &&
			existing.LocationCode == k.LocationCode && existing.LanguageCode == k.LanguageCode {
			return "", keywords.ErrDuplicate
		}
	}
	cp := *k
	m.kws[k.ID] = &cp
	return k.ID, nil
}

func (m *memKeywordRepo) Delete(_ context.Context, orgID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.kws[id]
	if !ok || k.OrganizationID != orgID {
		return keywords.ErrNotFound
	}
	delete(m.kws, id)
	return nil
}

func (m *memKeywordRepo) SetActive(_ context.Context, orgID, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.kws[id]
	if !ok || k.OrganizationID != orgID {
		return keywords.ErrNotFound
	}
	k.Active = active
	return nil
}

func (m *memKeywordRepo) ListTrackTargets(_ context.Context) ([]keywords.TrackTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.targets, nil
}

func (m *memKeywordRepo) SaveSnapshots(_ context.Context, snaps []domain.RankSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snaps...)
	return nil
}

func (m *memKeywordRepo) Movements(context.Context, string, string) ([]domain.RankMovement, error) {
	return nil, nil
}

func (m *memKeywordRepo) History(context.Context, string, string, time.Time) ([]domain.RankSnapshot, error) {
	return nil, nil
}

// stubSERP completes every task on the nth poll.
type stubSERP struct {
	mu         sync.Mutex
	readyAfter int
	polls      map[string]int
	postErr    error
	postErrOn  int // 1-based call the error fires on; 0 = every call
	postCalls  int
	posted     [][]seoapi.RankTask
	positions  map[string]int // phrase -> position
}

func newStubSERP() *stubSERP {
	return &stubSERP{polls: make(map[string]int), positions: make(map[string]int)}
}

func (s *stubSERP) PostTasks(_ context.Context, _ *domain.SEOAPIKey, tasks []seoapi.RankTask) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postCalls++
	if s.postErr != nil && (s.postErrOn == 0 || s.postCalls == s.postErrOn) {
		return nil, s.postErr
	}
	s.posted = append(s.posted, tasks)
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = "task:" + t.Phrase
	}
	return ids, nil
}

func (s *stubSERP) GetTaskResult(_ context.Context, _ *domain.SEOAPIKey, taskID, _ string) (*seoapi.RankResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[taskID]++
	if s.polls[taskID] <= s.readyAfter {
		return nil, seoapi.ErrTaskNotReady
	}
	phrase := taskID[len("task:"):]
	return &seoapi.RankResult{
		Position:  s.positions[phrase],
		FoundURL:  "https://example.com/",
		CheckedAt: time.Now().UTC(),
	}, nil
}

type stubPool struct {
	mu       sync.Mutex
	err      error
	refunded int
}

func (p *stubPool) Checkout(_ context.Context, _ int) (*domain.SEOAPIKey, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domain.SEOAPIKey{ID: "k1", Login: "a", Secret: "b", DailyLimit: 1000}, nil
}

func (p *stubPool) Refund(_ context.Context, _ string, lookups int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunded += lookups
}

type grantLock struct{ grant bool }

func (l *grantLock) Acquire(context.Context) (bool, error) { return l.grant, nil }
func (l *grantLock) Release(context.Context) error         { return nil }

func newTestService(repo *memKeywordRepo, serp *stubSERP, pool *stubPool, lock *grantLock) *keywords.Service {
	svc := keywords.NewService(repo, serp, pool, lock, config.TrackingConfig{WebsiteParallel: 2})
	svc.PollInterval = time.Millisecond
	return svc
}

func TestAddDefaults(t *testing.T) {
	repo := newMemKeywordRepo()
	svc := newTestService(repo, newStubSERP(), &stubPool{}, &grantLock{grant: true})

	k, err := svc.Add(context.Background(), "org1", keywords.AddInput{
		WebsiteID: "w1",
		Phrase:    "  Plumber Denver  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "plumber denver", k.Phrase)
	assert.Equal(t, keywords.DefaultLocationCode, k.LocationCode)
	assert.Equal(t, keywords.DefaultLanguageCode, k.LanguageCode)
	assert.True(t, k.Active)
}

func TestAddValidation(t *testing.T) {
	svc := newTestService(newMemKeywordRepo(), newStubSERP(), &stubPool{}, &grantLock{grant: true})

	_, err := svc.Add(context.Background(), "org1", keywords.AddInput{Phrase: "x"})
	require.Error(t, err)

	_, err = svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: "   "})
	require.Error(t, err)
}

func TestAddDuplicate(t *testing.T) {
	repo := newMemKeywordRepo()
	svc := newTestService(repo, newStubSERP(), &stubPool{}, &grantLock{grant: true})

	_, err := svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: "plumber denver"})
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: "Plumber Denver"})
	assert.True(t, errors.Is(err, keywords.ErrDuplicate))
}

func cycleTarget(kws ...domain.Keyword) keywords.TrackTarget {
	return keywords.TrackTarget{
		OrganizationID: "org1",
		WebsiteID:      "w1",
		Domain:         "example.com",
		Keywords:       kws,
	}
}

func TestRunCycleSavesSnapshots(t *testing.T) {
	repo := newMemKeywordRepo()
	repo.targets = []keywords.TrackTarget{cycleTarget(
		domain.Keyword{ID: "kw1", Phrase: "plumber denver", LocationCode: 2840, LanguageCode: "en", Active: true},
		domain.Keyword{ID: "kw2", Phrase: "drain cleaning denver", LocationCode: 2840, LanguageCode: "en", Active: true},
	)}
	serp := newStubSERP()
	serp.positions["plumber denver"] = 4
	serp.positions["drain cleaning denver"] = 0

	okBefore := testutil.ToFloat64(metrics.RankChecks.WithLabelValues("ok"))

	svc := newTestService(repo, serp, &stubPool{}, &grantLock{grant: true})
	require.NoError(t, svc.RunCycle(context.Background()))

	assert.Equal(t, okBefore+2, testutil.ToFloat64(metrics.RankChecks.WithLabelValues("ok")))
	require.Len(t, repo.snaps, 2)
	byKw := map[string]int{}
	for _, s := range repo.snaps {
		byKw[s.KeywordID] = s.Position
	}
	assert.Equal(t, 4, byKw["kw1"])
	assert.Equal(t, 0, byKw["kw2"])
}

func TestRunCyclePollsUntilReady(t *testing.T) {
	repo := newMemKeywordRepo()
	repo.targets = []keywords.TrackTarget{cycleTarget(
		domain.Keyword{ID: "kw1", Phrase: "plumber denver", Active: true},
	)}
	serp := newStubSERP()
	serp.readyAfter = 3
	serp.positions["plumber denver"] = 9

	svc := newTestService(repo, serp, &stubPool{}, &grantLock{grant: true})
	require.NoError(t, svc.RunCycle(context.Background()))

	require.Len(t, repo.snaps, 1)
	assert.Equal(t, 9, repo.snaps[0].Position)
	assert.Equal(t, 4, serp.polls["task:plumber denver"])
}

func TestRunCycleRefundsOnPostFailure(t *testing.T) {
	repo := newMemKeywordRepo()
	repo.targets = []keywords.TrackTarget{cycleTarget(
		domain.Keyword{ID: "kw1", Phrase: "a", Active: true},
		domain.Keyword{ID: "kw2", Phrase: "b", Active: true},
	)}
	serp := newStubSERP()
	serp.postErr = errors.New("provider down")
	pool := &stubPool{}

	svc := newTestService(repo, serp, pool, &grantLock{grant: true})
	// The cycle itself succeeds; the failing site is logged and skipped.
	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Equal(t, 2, pool.refunded)
	assert.Empty(t, repo.snaps)
}

func TestRunCycleSkippedWhenLockHeld(t *testing.T) {
	repo := newMemKeywordRepo()
	repo.targets = []keywords.TrackTarget{cycleTarget(
		domain.Keyword{ID: "kw1", Phrase: "a", Active: true},
	)}
	serp := newStubSERP()

	svc := newTestService(repo, serp, &stubPool{}, &grantLock{grant: false})
	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Empty(t, serp.posted)
	assert.Empty(t, repo.snaps)
}

func TestTrackWebsiteBatchesTaskPosts(t *testing.T) {
	repo := newMemKeywordRepo()
	serp := newStubSERP()
	svc := keywords.NewService(repo, serp, &stubPool{}, &grantLock{grant: true},
		config.TrackingConfig{WebsiteParallel: 1, BatchSize: 2})
	svc.PollInterval = time.Millisecond

	for _, phrase := range []string{"a", "b", "c", "d", "e"} {
		_, err := svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: phrase})
		require.NoError(t, err)
	}
	require.NoError(t, svc.TrackWebsite(context.Background(), "org1", "w1", "example.com"))

	require.Len(t, serp.posted, 3)
	assert.Len(t, serp.posted[0], 2)
	assert.Len(t, serp.posted[1], 2)
	assert.Len(t, serp.posted[2], 1)
	assert.Len(t, repo.snaps, 5)
}

func TestTrackWebsitePartialBatchRefundsRemainder(t *testing.T) {
	repo := newMemKeywordRepo()
	serp := newStubSERP()
	serp.postErr = errors.New("quota hit")
	serp.postErrOn = 2
	pool := &stubPool{}
	svc := keywords.NewService(repo, serp, pool, &grantLock{grant: true},
		config.TrackingConfig{WebsiteParallel: 1, BatchSize: 2})
	svc.PollInterval = time.Millisecond

	for _, phrase := range []string{"a", "b", "c", "d", "e"} {
		_, err := svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: phrase})
		require.NoError(t, err)
	}
	// The first batch posts fine, so its results still come back.
	require.NoError(t, svc.TrackWebsite(context.Background(), "org1", "w1", "example.com"))

	assert.Len(t, repo.snaps, 2)
	assert.Equal(t, 3, pool.refunded)
}

func TestTrackWebsiteSkipsInactive(t *testing.T) {
	repo := newMemKeywordRepo()
	svc := newTestService(repo, newStubSERP(), &stubPool{}, &grantLock{grant: true})

	k, err := svc.Add(context.Background(), "org1", keywords.AddInput{WebsiteID: "w1", Phrase: "plumber denver"})
	require.NoError(t, err)
	require.NoError(t, svc.SetActive(context.Background(), "org1", k.ID, false))

	require.NoError(t, svc.TrackWebsite(context.Background(), "org1", "w1", "example.com"))
	assert.Empty(t, repo.snaps)
}
