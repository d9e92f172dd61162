package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

// GridServiceConfig carries the grid geometry and caching knobs.
type GridServiceConfig struct {
	Grid     GridConfig
	Location *time.Location
	CacheTTL time.Duration
}

// GridService lays out schedule grids on the server for JSON, PDF and export
// consumers. Each build runs a short-lived view over the local store.
type GridService struct {
	store   ScheduleStore
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	config  GridServiceConfig
}

// NewGridService constructs a GridService. cache and metrics may be nil.
func NewGridService(store ScheduleStore, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg GridServiceConfig) *GridService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Grid.Day.SlotCount == 0 && cfg.Grid.Week.SlotCount == 0 {
		cfg.Grid = DefaultGridConfig()
	}
	return &GridService{store: store, cache: cache, metrics: metrics, logger: logger, config: cfg}
}

// Today is the current date in the configured time zone.
func (s *GridService) Today() caldate.Date {
	return caldate.Today(s.config.Location)
}

// Window describes the window anchored at anchor after moving steps views.
// A zero anchor means today.
func (s *GridService) Window(anchor caldate.Date, granularity models.Granularity, steps int) models.WindowInfo {
	window := Step(s.normalize(models.ViewWindow{AnchorDate: anchor, Granularity: granularity}), steps)
	return DescribeWindow(window)
}

// Build returns the laid out grid for window and selection, from cache when
// possible.
func (s *GridService) Build(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) (*models.GridView, error) {
	grid, _, err := s.BuildCached(ctx, session, window, selection)
	return grid, err
}

// BuildCached is Build that also reports the cache entry behind the grid.
func (s *GridService) BuildCached(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) (*models.GridView, models.CacheStatus, error) {
	window = s.normalize(window)
	status := models.CacheStatus{
		Key: cacheKey(cachePrefixGrid, window.Granularity, window.AnchorDate, selection),
		TTL: s.config.CacheTTL,
	}
	var cached models.GridView
	if hit, err := s.cache.Get(ctx, status.Key, &cached); err == nil && hit {
		status.Hit = true
		return &cached, status, nil
	}

	start := time.Now()
	view := s.newView(session, window, selection)
	if err := view.Refresh(ctx); err != nil {
		return nil, status, err
	}
	grid := view.Grid()
	s.metrics.ObserveGridBuild(window.Granularity, time.Since(start))

	if grid.Summary.InvalidTimes > 0 || grid.Summary.UnknownColumn > 0 {
		s.logger.Debug("grid skipped appointments",
			zap.String("anchor", window.AnchorDate.String()),
			zap.Int("invalid_times", grid.Summary.InvalidTimes),
			zap.Int("unknown_column", grid.Summary.UnknownColumn))
	}
	_ = s.cache.Set(ctx, status.Key, grid, status.TTL)
	return &grid, status, nil
}

// Appointments returns the appointments visible in window and selection.
func (s *GridService) Appointments(ctx context.Context, session models.Session, window models.ViewWindow, selection models.ResourceSelection) ([]models.Appointment, []models.Resource, error) {
	view := s.newView(session, s.normalize(window), selection)
	if err := view.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	return view.Visible(), SelectResources(view.Resources(), selection), nil
}

func (s *GridService) normalize(window models.ViewWindow) models.ViewWindow {
	if window.AnchorDate.IsZero() {
		window.AnchorDate = s.Today()
	}
	if window.Granularity == "" {
		window.Granularity = models.GranularityWeek
	}
	return window
}

func (s *GridService) newView(session models.Session, window models.ViewWindow, selection models.ResourceSelection) *ScheduleViewController {
	return NewScheduleViewController(s.store, session, ViewControllerOptions{
		Grid:        s.config.Grid,
		Granularity: window.Granularity,
		Anchor:      window.AnchorDate,
		Selection:   &selection,
		Location:    s.config.Location,
		Logger:      s.logger,
		Metrics:     s.metrics,
	})
}
