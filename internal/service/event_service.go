package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/dto"
	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

// EventRepository is the persistence surface used by EventService.
type EventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, evt *models.Event) error
	UpdateWithPhotos(ctx context.Context, evt *models.Event, photos []models.Photo) ([]models.Photo, error)
	Delete(ctx context.Context, id string) error
	AddPhotos(ctx context.Context, eventID string, photos []models.Photo) ([]models.Photo, error)
	DeletePhotos(ctx context.Context, eventID string, filenames []string) ([]models.Photo, error)
}

// PhotoStore writes and removes photo binaries.
type PhotoStore interface {
	Save(ctx context.Context, uploads []PhotoUpload) ([]models.Photo, error)
	Remove(photos []models.Photo)
}

// ThumbnailScheduler queues thumbnail generation for freshly stored photos.
type ThumbnailScheduler interface {
	Schedule(ctx context.Context, photos []models.Photo)
}

// ChangePublisher fans change notices out to stream subscribers.
type ChangePublisher interface {
	Publish(notice models.ChangeNotice)
}

// EventServiceConfig bounds event mutations.
type EventServiceConfig struct {
	MaxPhotosPerEvent int
}

// EventService implements the gallery REST use cases.
type EventService struct {
	repo      EventRepository
	photos    PhotoStore
	thumbs    ThumbnailScheduler
	cache     *CacheService
	publisher ChangePublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EventServiceConfig
}

// NewEventService constructs an EventService. thumbs, cache, publisher and
// metrics may be nil.
func NewEventService(repo EventRepository, photos PhotoStore, thumbs ThumbnailScheduler, cache *CacheService, publisher ChangePublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
		_ = models.RegisterValidations(validate)
	}
	return &EventService{
		repo:      repo,
		photos:    photos,
		thumbs:    thumbs,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// List returns events matching filter.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, _, err := s.ListCached(ctx, filter)
	return events, err
}

// ListCached returns events matching filter and whether they came from cache.
func (s *EventService) ListCached(ctx context.Context, filter models.EventFilter) ([]models.Event, bool, error) {
	if filter.Type != "" {
		t, ok := models.ParseEventType(string(filter.Type))
		if !ok {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", filter.Type))
		}
		filter.Type = t
	}
	if err := s.validator.Struct(filter); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event filter")
	}
	filter.From = models.CanonicalDate(filter.From)
	filter.To = models.CanonicalDate(filter.To)

	key := eventListKeyPrefix + filter.CacheKey()
	var cached []models.Event
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list events")
	}
	s.cache.Set(ctx, key, events, 0)
	return events, false, nil
}

// Get fetches one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	evt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Internal(err, "failed to load event")
	}
	return evt, nil
}

// Create stores a new event with at least one photo.
func (s *EventService) Create(ctx context.Context, req dto.EventRequest, uploads []PhotoUpload) (*models.Event, error) {
	req = req.Normalized()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one photo is required")
	}
	if err := s.checkPhotoLimit(0, len(uploads)); err != nil {
		return nil, err
	}
	if req.ID != "" {
		exists, err := s.repo.Exists(ctx, req.ID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check event id")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "event id already exists")
		}
	}

	saved, err := s.photos.Save(ctx, uploads)
	if err != nil {
		return nil, err
	}
	evt := &models.Event{ID: req.ID, Photos: saved}
	req.Apply(evt)
	if err := s.repo.Create(ctx, evt); err != nil {
		s.photos.Remove(saved)
		return nil, appErrors.Internal(err, "failed to create event")
	}

	s.scheduleThumbnails(ctx, evt.Photos)
	s.changed(ctx, evt.ID, models.ChangeCreated)
	s.logger.Info("event created", zap.String("event_id", evt.ID), zap.Int("photos", len(evt.Photos)))
	return evt, nil
}

// Update replaces the scalar fields of an event and appends any uploaded photos.
func (s *EventService) Update(ctx context.Context, id string, req dto.EventRequest, uploads []PhotoUpload) (*models.Event, error) {
	req = req.Normalized()
	req.ID = id
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	evt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPhotoLimit(len(evt.Photos), len(uploads)); err != nil {
		return nil, err
	}

	var saved []models.Photo
	if len(uploads) > 0 {
		if saved, err = s.photos.Save(ctx, uploads); err != nil {
			return nil, err
		}
	}

	req.Apply(evt)
	added, err := s.repo.UpdateWithPhotos(ctx, evt, saved)
	if err != nil {
		s.photos.Remove(saved)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Internal(err, "failed to update event")
	}
	if len(added) > 0 {
		evt.AddPhotos(added...)
		s.scheduleThumbnails(ctx, added)
	}

	s.changed(ctx, id, models.ChangeUpdated)
	s.logger.Info("event updated", zap.String("event_id", id), zap.Int("new_photos", len(saved)))
	return evt, nil
}

// Delete removes an event together with its photo files.
func (s *EventService) Delete(ctx context.Context, id string) error {
	evt, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Internal(err, "failed to delete event")
	}
	s.photos.Remove(evt.Photos)
	s.changed(ctx, id, models.ChangeDeleted)
	s.logger.Info("event deleted", zap.String("event_id", id), zap.Int("photos", len(evt.Photos)))
	return nil
}

// AddPhotos appends uploads to an event and returns the stored photos.
func (s *EventService) AddPhotos(ctx context.Context, id string, uploads []PhotoUpload) ([]models.Photo, error) {
	if len(uploads) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no photos uploaded")
	}
	evt, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkPhotoLimit(len(evt.Photos), len(uploads)); err != nil {
		return nil, err
	}

	saved, err := s.photos.Save(ctx, uploads)
	if err != nil {
		return nil, err
	}
	added, err := s.repo.AddPhotos(ctx, id, saved)
	if err != nil {
		s.photos.Remove(saved)
		return nil, appErrors.Internal(err, "failed to attach photos")
	}

	s.scheduleThumbnails(ctx, added)
	s.changed(ctx, id, models.ChangePhotosAdded)
	s.logger.Info("photos added", zap.String("event_id", id), zap.Int("count", len(added)))
	return added, nil
}

// DeletePhotos detaches the named photos. Filenames the event does not carry are
// ignored; the filenames actually removed are returned.
func (s *EventService) DeletePhotos(ctx context.Context, id string, req dto.DeletePhotosRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "filenames are required")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	removed, err := s.repo.DeletePhotos(ctx, id, uniqueStrings(req.Filenames))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to delete photos")
	}
	names := make([]string, 0, len(removed))
	for _, photo := range removed {
		names = append(names, photo.Filename)
	}
	if len(removed) > 0 {
		s.photos.Remove(removed)
		s.changed(ctx, id, models.ChangePhotosDeleted)
	}
	s.logger.Info("photos deleted", zap.String("event_id", id), zap.Int("requested", len(req.Filenames)), zap.Int("removed", len(names)))
	return names, nil
}

// InvalidateCache drops every cached listing.
func (s *EventService) InvalidateCache(ctx context.Context) {
	s.cache.Invalidate(ctx, eventListKeyPattern)
}

func (s *EventService) checkPhotoLimit(existing, incoming int) error {
	if s.cfg.MaxPhotosPerEvent > 0 && existing+incoming > s.cfg.MaxPhotosPerEvent {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("an event holds at most %d photos", s.cfg.MaxPhotosPerEvent))
	}
	return nil
}

func (s *EventService) scheduleThumbnails(ctx context.Context, photos []models.Photo) {
	if s.thumbs == nil || len(photos) == 0 {
		return
	}
	// Jobs outlive the request that enqueued them.
	s.thumbs.Schedule(context.WithoutCancel(ctx), photos)
}

func (s *EventService) changed(ctx context.Context, id string, kind models.ChangeKind) {
	s.InvalidateCache(ctx)
	s.metrics.RecordMutation(kind)
	if s.publisher != nil {
		s.publisher.Publish(models.NewChangeNotice(id, kind))
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
