package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/pkg/jobs"
)

const thumbnailJobType = "photo.thumbnail"

type thumbnailStorage interface {
	Open(name string) (io.ReadCloser, error)
	Create(name string) (io.WriteCloser, error)
}

type thumbnailRepository interface {
	UpdateThumbnail(ctx context.Context, photoID, thumbnailURL string) error
}

// ThumbnailConfig sizes generated thumbnails and the worker pool.
type ThumbnailConfig struct {
	Width      int
	Height     int
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	PublicPath string
}

// ThumbnailService renders JPEG thumbnails for stored photos on a background queue.
type ThumbnailService struct {
	storage thumbnailStorage
	repo    thumbnailRepository
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ThumbnailConfig
	onReady func(ctx context.Context, photo models.Photo)
}

// NewThumbnailService builds the service and its queue. onReady, when set, runs
// after a thumbnail URL has been recorded.
func NewThumbnailService(storage thumbnailStorage, repo thumbnailRepository, metrics *MetricsService, logger *zap.Logger, cfg ThumbnailConfig, onReady func(context.Context, models.Photo)) *ThumbnailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Width <= 0 {
		cfg.Width = 600
	}
	if cfg.Height <= 0 {
		cfg.Height = 400
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/media"
	}
	s := &ThumbnailService{storage: storage, repo: repo, metrics: metrics, logger: logger, cfg: cfg, onReady: onReady}
	s.queue = jobs.NewQueue("thumbnails", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnOutcome: func(job jobs.Job, err error) {
			metrics.RecordThumbnail(err, time.Since(job.Enqueued))
		},
	})
	return s
}

// Start launches the workers.
func (s *ThumbnailService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for in-flight jobs to exit.
func (s *ThumbnailService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues a thumbnail job per photo. Enqueue failures are logged; the
// photo simply keeps an empty thumbnail URL.
func (s *ThumbnailService) Schedule(ctx context.Context, photos []models.Photo) {
	if s == nil {
		return
	}
	for _, photo := range photos {
		job := jobs.Job{ID: photo.ID, Type: thumbnailJobType, Payload: photo}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("failed to enqueue thumbnail", zap.String("filename", photo.Filename), zap.Error(err))
		}
	}
}

// Render writes the thumbnail for photo and returns the stored thumbnail name.
func (s *ThumbnailService) Render(photo models.Photo) (string, error) {
	src, err := s.storage.Open(photo.Filename)
	if err != nil {
		return "", err
	}
	defer src.Close() //nolint:errcheck

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", photo.Filename, err)
	}
	thumb := imaging.Fit(img, s.cfg.Width, s.cfg.Height, imaging.Lanczos)

	name := ThumbnailName(photo.Filename)
	out, err := s.storage.Create(name)
	if err != nil {
		return "", fmt.Errorf("create thumbnail %s: %w", name, err)
	}
	if err := imaging.Encode(out, thumb, imaging.JPEG, imaging.JPEGQuality(82)); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("encode thumbnail %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close thumbnail %s: %w", name, err)
	}
	return name, nil
}

func (s *ThumbnailService) handle(ctx context.Context, job jobs.Job) error {
	photo, ok := job.Payload.(models.Photo)
	if !ok {
		return fmt.Errorf("unexpected thumbnail payload %T", job.Payload)
	}
	name, err := s.Render(photo)
	if err != nil {
		return err
	}
	url := s.cfg.PublicPath + "/" + name
	if err := s.repo.UpdateThumbnail(ctx, photo.ID, url); err != nil {
		return err
	}
	photo.ThumbnailURL = url
	s.logger.Debug("thumbnail generated", zap.String("filename", photo.Filename), zap.String("thumbnail", name))
	if s.onReady != nil {
		s.onReady(ctx, photo)
	}
	return nil
}
