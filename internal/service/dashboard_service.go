package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lab-assessment-api/internal/models"
)

const (
	dashboardCacheKey     = "dash:admin:stats"
	dashboardCachePattern = "dash:admin:*"
)

type dashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// DashboardService serves admin dashboard counters with a read-through cache.
type DashboardService struct {
	repo   dashboardRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService. A nil cache disables caching.
func NewDashboardService(repo dashboardRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns the dashboard counters and whether they came from cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if s.cache.Get(ctx, dashboardCacheKey, &cached) {
		return &cached, true, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, internal(err, "failed to load dashboard stats")
	}
	s.cache.Set(ctx, dashboardCacheKey, stats, s.ttl)
	return stats, false, nil
}

// Invalidate drops cached dashboard payloads.
func (s *DashboardService) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, dashboardCachePattern)
}
