package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService owns the roster cache key space. Mutating services call
// InvalidateExam after commit; read paths go through GetRoster/SetRoster.
type CacheService struct {
	store  cacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewCacheService constructs a cache service with the given roster TTL.
func NewCacheService(store cacheStore, ttl time.Duration, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{store: store, ttl: ttl, logger: logger}
}

func rosterKey(examID string) string {
	return fmt.Sprintf("roster:exam:%s", examID)
}

// GetRoster loads a cached roster into dest. Returns ErrCacheMiss when absent.
func (s *CacheService) GetRoster(ctx context.Context, examID string, dest interface{}) error {
	return s.store.Get(ctx, rosterKey(examID), dest)
}

// SetRoster caches the roster for the configured TTL.
func (s *CacheService) SetRoster(ctx context.Context, examID string, roster interface{}) {
	if err := s.store.Set(ctx, rosterKey(examID), roster, s.ttl); err != nil {
		s.logger.Warn("failed to cache roster", zap.String("exam_id", examID), zap.Error(err))
	}
}

// InvalidateExam drops the exam's cached roster.
func (s *CacheService) InvalidateExam(ctx context.Context, examID string) {
	if s == nil {
		return
	}
	if err := s.store.DeleteByPattern(ctx, rosterKey(examID)); err != nil {
		s.logger.Warn("failed to invalidate roster cache", zap.String("exam_id", examID), zap.Error(err))
	}
}
