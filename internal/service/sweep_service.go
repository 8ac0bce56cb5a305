package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type sweepStorage interface {
	Sweep(minAge time.Duration, keep func(name string) bool) ([]string, error)
}

type filenameSource interface {
	StoredFilenames(ctx context.Context) (map[string]struct{}, error)
}

// SweepService removes media files that no photo row references. Files younger
// than the grace period are left alone so uploads awaiting their insert survive.
type SweepService struct {
	storage  sweepStorage
	repo     filenameSource
	metrics  *MetricsService
	logger   *zap.Logger
	schedule string
	grace    time.Duration
	cron     *cron.Cron
}

// NewSweepService constructs a sweeper running on a cron schedule such as "@every 6h".
func NewSweepService(storage sweepStorage, repo filenameSource, metrics *MetricsService, logger *zap.Logger, schedule string, grace time.Duration) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if grace <= 0 {
		grace = time.Hour
	}
	return &SweepService{storage: storage, repo: repo, metrics: metrics, logger: logger, schedule: schedule, grace: grace}
}

// Start registers the sweep on its schedule. An empty schedule disables it.
func (s *SweepService) Start(ctx context.Context) error {
	if s.schedule == "" {
		return nil
	}
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Run(ctx); err != nil {
			s.logger.Error("media sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule media sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("media sweeper scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *SweepService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Run performs one sweep and returns the removed file names.
func (s *SweepService) Run(ctx context.Context) ([]string, error) {
	stored, err := s.repo.StoredFilenames(ctx)
	if err != nil {
		return nil, err
	}
	thumbs := make(map[string]struct{}, len(stored))
	for name := range stored {
		thumbs[ThumbnailName(name)] = struct{}{}
	}
	removed, err := s.storage.Sweep(s.grace, func(name string) bool {
		if _, ok := stored[name]; ok {
			return true
		}
		_, ok := thumbs[name]
		return ok
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSweep(len(removed))
	if len(removed) > 0 {
		s.logger.Info("orphaned media removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}
