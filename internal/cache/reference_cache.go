package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/litschool/admissions-portal/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ReferenceSource fetches programs, cohorts and centres
type ReferenceSource interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	ListCohorts(ctx context.Context) ([]models.Cohort, error)
	ListCentres(ctx context.Context) ([]models.Centre, error)
}

const (
	catalogKey       = "reference:catalog"
	cacheName        = "reference_catalog"
	cacheCheckPeriod = time.Minute
	maxRetries       = 3
	initialRetryWait = 2 * time.Second
	refreshTimeout   = 30 * time.Second
)

// ReferenceCache holds the current Catalog and swaps it on refresh.
// Readers never block on the admissions API.
type ReferenceCache struct {
	cache      *gocache.Cache
	source     ReferenceSource
	mu         sync.RWMutex
	refreshing bool
	ready      bool
	ttl        time.Duration
	retryWait  time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewReferenceCache creates a cache that refreshes every ttl once initialized.
// A zero ttl disables the background refresh.
func NewReferenceCache(source ReferenceSource, ttl time.Duration) *ReferenceCache {
	return &ReferenceCache{
		cache:     gocache.New(gocache.NoExpiration, cacheCheckPeriod),
		source:    source,
		ttl:       ttl,
		retryWait: initialRetryWait,
		stop:      make(chan struct{}),
	}
}

// Initialize performs the initial load (synchronous, blocks until ready).
// Should be called during startup before accepting requests.
func (rc *ReferenceCache) Initialize(ctx context.Context) error {
	logger.Info("Initializing reference cache...")
	startTime := time.Now()

	if err := rc.refreshWithRetry(ctx); err != nil {
		logger.Error("Failed to initialize reference cache", zap.Error(err))
		return err
	}

	rc.mu.Lock()
	rc.ready = true
	rc.mu.Unlock()

	logger.Info("Reference cache initialized successfully",
		zap.Duration("duration", time.Since(startTime)))

	if rc.ttl > 0 {
		go rc.schedulePeriodicRefresh()
	}
	return nil
}

// IsReady returns true if the cache has been successfully initialized
func (rc *ReferenceCache) IsReady() bool {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.ready
}

// Catalog returns the current snapshot
func (rc *ReferenceCache) Catalog() (*Catalog, error) {
	if !rc.IsReady() {
		return nil, fmt.Errorf("reference cache not initialized")
	}

	data, found := rc.cache.Get(catalogKey)
	if !found {
		metrics.CacheMisses.WithLabelValues(cacheName).Inc()
		return nil, fmt.Errorf("reference catalog missing")
	}

	catalog, ok := data.(*Catalog)
	if !ok {
		logger.Error("Invalid reference cache data type")
		metrics.CacheMisses.WithLabelValues(cacheName).Inc()
		return nil, fmt.Errorf("invalid cache data type")
	}

	metrics.CacheHits.WithLabelValues(cacheName).Inc()
	return catalog, nil
}

// Refresh reloads the reference data. Concurrent calls collapse into one.
func (rc *ReferenceCache) Refresh(ctx context.Context) error {
	rc.mu.Lock()
	if rc.refreshing {
		rc.mu.Unlock()
		logger.Debug("Reference refresh already in progress, skipping")
		return nil
	}
	rc.refreshing = true
	rc.mu.Unlock()

	defer func() {
		rc.mu.Lock()
		rc.refreshing = false
		rc.mu.Unlock()
	}()

	return rc.load(ctx)
}

// Stop ends the background refresh
func (rc *ReferenceCache) Stop() {
	rc.stopOnce.Do(func() { close(rc.stop) })
}

func (rc *ReferenceCache) load(ctx context.Context) error {
	programs, err := rc.source.ListPrograms(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch programs: %w", err)
	}
	cohorts, err := rc.source.ListCohorts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch cohorts: %w", err)
	}
	centres, err := rc.source.ListCentres(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch centres: %w", err)
	}

	catalog := NewCatalog(programs, cohorts, centres)
	if dropped := catalog.Dropped(); len(dropped) > 0 {
		logger.Warn("Dropped cohorts with inconsistent seat counts",
			zap.Strings("cohort_ids", dropped))
	}

	rc.cache.Set(catalogKey, catalog, gocache.NoExpiration)
	metrics.CacheSize.WithLabelValues("programs").Set(float64(len(catalog.programs)))
	metrics.CacheSize.WithLabelValues("cohorts").Set(float64(len(catalog.cohorts)))
	metrics.CacheSize.WithLabelValues("centres").Set(float64(len(catalog.centres)))

	logger.Info("Reference cache refreshed",
		zap.Int("programs", len(catalog.programs)),
		zap.Int("cohorts", len(catalog.cohorts)),
		zap.Int("centres", len(catalog.centres)))
	return nil
}

func (rc *ReferenceCache) refreshWithRetry(ctx context.Context) error {
	var lastErr error
	wait := rc.retryWait

	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = rc.Refresh(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		logger.Warn("Reference cache load failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(lastErr))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	return fmt.Errorf("reference cache load failed after %d attempts: %w", maxRetries, lastErr)
}

func (rc *ReferenceCache) schedulePeriodicRefresh() {
	ticker := time.NewTicker(rc.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-rc.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
			// a failed refresh keeps serving the previous snapshot
			if err := rc.Refresh(ctx); err != nil {
				logger.Error("Background reference refresh failed", zap.Error(err))
			}
			cancel()
		}
	}
}
