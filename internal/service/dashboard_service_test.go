package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
	appErrors "github.com/noah-isme/lab-assessment-api/pkg/errors"
)

type memoryCache struct {
	data   map[string][]byte
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

type dashboardRepoStub struct {
	calls int
}

func (d *dashboardRepoStub) Stats(ctx context.Context) (*models.DashboardStats, error) {
	d.calls++
	return &models.DashboardStats{TotalStudents: 10, TotalTeachers: 2, TotalBatches: 3, TotalSubjects: 4, TotalAllocations: 5}, nil
}

func TestDashboardServiceCachesStats(t *testing.T) {
	repo := &dashboardRepoStub{}
	cache := NewCacheService(newMemoryCache(), NewMetricsService(), time.Minute, zap.NewNop(), true)
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())
	ctx := context.Background()

	stats, hit, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10, stats.TotalStudents)

	stats, hit, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 5, stats.TotalAllocations)
	assert.Equal(t, 1, repo.calls)

	svc.Invalidate(ctx)
	_, hit, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.calls)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	repo := &dashboardRepoStub{}
	svc := NewDashboardService(repo, nil, 0, nil)

	_, hit, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	svc.Invalidate(context.Background())
	_, _, _ = svc.Stats(context.Background())
	assert.Equal(t, 2, repo.calls)
}

func TestCacheServiceBackendErrorIsMiss(t *testing.T) {
	backend := newMemoryCache()
	backend.getErr = errors.New("connection refused")
	cache := NewCacheService(backend, nil, 0, nil, true)

	var out models.DashboardStats
	assert.False(t, cache.Get(context.Background(), "k", &out))

	disabled := NewCacheService(backend, nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
}
