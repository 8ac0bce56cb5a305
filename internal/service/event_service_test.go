package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/dto"
	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

type eventRepoStub struct {
	events    map[string]*models.Event
	listCalls int
	createErr error
	updateErr error
}

func newEventRepoStub(events ...*models.Event) *eventRepoStub {
	repo := &eventRepoStub{events: map[string]*models.Event{}}
	for _, evt := range events {
		repo.events[evt.ID] = evt
	}
	return repo
}

func (r *eventRepoStub) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	r.listCalls++
	out := make([]models.Event, 0, len(r.events))
	for _, evt := range r.events {
		if filter.Type != "" && evt.Type != filter.Type {
			continue
		}
		out = append(out, evt.Clone())
	}
	return out, nil
}

func (r *eventRepoStub) FindByID(ctx context.Context, id string) (*models.Event, error) {
	evt, ok := r.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := evt.Clone()
	return &c, nil
}

func (r *eventRepoStub) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.events[id]
	return ok, nil
}

func (r *eventRepoStub) Create(ctx context.Context, evt *models.Event) error {
	if r.createErr != nil {
		return r.createErr
	}
	if evt.ID == "" {
		evt.ID = "generated"
	}
	c := evt.Clone()
	r.events[evt.ID] = &c
	return nil
}

func (r *eventRepoStub) UpdateWithPhotos(ctx context.Context, evt *models.Event, photos []models.Photo) ([]models.Photo, error) {
	stored, ok := r.events[evt.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	c := evt.Clone()
	c.Photos = stored.Photos
	added := c.AddPhotos(photos...)
	r.events[evt.ID] = &c
	return added, nil
}

func (r *eventRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.events, id)
	return nil
}

func (r *eventRepoStub) AddPhotos(ctx context.Context, eventID string, photos []models.Photo) ([]models.Photo, error) {
	return r.events[eventID].AddPhotos(photos...), nil
}

func (r *eventRepoStub) DeletePhotos(ctx context.Context, eventID string, filenames []string) ([]models.Photo, error) {
	evt := r.events[eventID]
	want := map[string]bool{}
	for _, name := range filenames {
		want[name] = true
	}
	var removed []models.Photo
	kept := evt.Photos[:0]
	for _, p := range evt.Photos {
		if want[p.Filename] {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	evt.Photos = kept
	return removed, nil
}

type photoStoreStub struct {
	saveErr error
	removed []string
}

func (p *photoStoreStub) Save(ctx context.Context, uploads []PhotoUpload) ([]models.Photo, error) {
	if p.saveErr != nil {
		return nil, p.saveErr
	}
	out := make([]models.Photo, 0, len(uploads))
	for _, u := range uploads {
		name := "stored-" + u.Filename
		out = append(out, models.Photo{ID: name, Filename: name, URL: "/media/" + name})
	}
	return out, nil
}

func (p *photoStoreStub) Remove(photos []models.Photo) {
	for _, photo := range photos {
		p.removed = append(p.removed, photo.Filename)
	}
}

type publisherStub struct {
	mu      sync.Mutex
	notices []models.ChangeNotice
}

func (p *publisherStub) Publish(n models.ChangeNotice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, n)
}

type schedulerStub struct{ photos []models.Photo }

func (s *schedulerStub) Schedule(ctx context.Context, photos []models.Photo) {
	s.photos = append(s.photos, photos...)
}

type memoryCache struct {
	data    map[string][]byte
	deleted []string
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if _, ok := m.data[key]; !ok {
		return appErrors.ErrCacheMiss
	}
	// Only []models.Event is cached by these tests.
	*(dest.(*[]models.Event)) = []models.Event{{ID: string(m.data[key])}}
	return nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	events := value.([]models.Event)
	id := ""
	if len(events) > 0 {
		id = events[0].ID
	}
	m.data[key] = []byte(id)
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	m.data = map[string][]byte{}
	return nil
}

type eventFixture struct {
	svc       *EventService
	repo      *eventRepoStub
	photos    *photoStoreStub
	publisher *publisherStub
	thumbs    *schedulerStub
	cache     *memoryCache
}

func newEventFixture(t *testing.T, events ...*models.Event) eventFixture {
	t.Helper()
	v := validator.New()
	require.NoError(t, models.RegisterValidations(v))
	f := eventFixture{
		repo:      newEventRepoStub(events...),
		photos:    &photoStoreStub{},
		publisher: &publisherStub{},
		thumbs:    &schedulerStub{},
		cache:     &memoryCache{data: map[string][]byte{}},
	}
	cache := NewCacheService(f.cache, nil, time.Minute, nil, true)
	f.svc = NewEventService(f.repo, f.photos, f.thumbs, cache, f.publisher, nil, v, nil, EventServiceConfig{MaxPhotosPerEvent: 3})
	return f
}

func upload(name string) PhotoUpload {
	return PhotoUpload{Filename: name, Size: 4, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("data")), nil
	}}
}

func validRequest() dto.EventRequest {
	return dto.EventRequest{Title: "Keynote", Speaker: "Ada", Date: "May 1, 2024", Type: "technical-talk"}
}

func TestEventServiceCreateNormalizesAndPublishes(t *testing.T) {
	f := newEventFixture(t)

	evt, err := f.svc.Create(context.Background(), validRequest(), []PhotoUpload{upload("a.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", evt.Date)
	assert.Equal(t, models.EventTypeTechTalk, evt.Type)
	assert.Equal(t, []string{"stored-a.jpg"}, evt.Filenames())
	assert.Len(t, f.thumbs.photos, 1)
	require.Len(t, f.publisher.notices, 1)
	assert.Equal(t, models.ChangeCreated, f.publisher.notices[0].Change)
	assert.Equal(t, []string{eventListKeyPattern}, f.cache.deleted)
}

func TestEventServiceCreateRequiresPhoto(t *testing.T) {
	f := newEventFixture(t)

	_, err := f.svc.Create(context.Background(), validRequest(), nil)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.publisher.notices)
}

func TestEventServiceCreateRejectsInvalidPayload(t *testing.T) {
	f := newEventFixture(t)
	req := validRequest()
	req.YouTubeID = "abc"

	_, err := f.svc.Create(context.Background(), req, []PhotoUpload{upload("a.jpg")})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	req = validRequest()
	req.Type = "Party"
	_, err = f.svc.Create(context.Background(), req, []PhotoUpload{upload("a.jpg")})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventServiceCreateDuplicateID(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1"})
	req := validRequest()
	req.ID = "e1"

	_, err := f.svc.Create(context.Background(), req, []PhotoUpload{upload("a.jpg")})
	require.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestEventServiceCreateRemovesFilesOnInsertFailure(t *testing.T) {
	f := newEventFixture(t)
	f.repo.createErr = sql.ErrConnDone

	_, err := f.svc.Create(context.Background(), validRequest(), []PhotoUpload{upload("a.jpg")})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, []string{"stored-a.jpg"}, f.photos.removed)
}

func TestEventServiceListUsesCache(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Type: models.EventTypeWorkshop})

	first, err := f.svc.List(context.Background(), models.EventFilter{Type: "workshop"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	second, hit, err := f.svc.ListCached(context.Background(), models.EventFilter{Type: "Workshop"})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "e1", second[0].ID)
	assert.Equal(t, 1, f.repo.listCalls)

	_, err = f.svc.List(context.Background(), models.EventFilter{Type: "party"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventServiceUpdateAppendsPhotos(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Title: "Old", Photos: []models.Photo{{Filename: "a.jpg"}}})

	evt, err := f.svc.Update(context.Background(), "e1", validRequest(), []PhotoUpload{upload("b.jpg")})
	require.NoError(t, err)
	assert.Equal(t, "Keynote", evt.Title)
	assert.Equal(t, []string{"a.jpg", "stored-b.jpg"}, evt.Filenames())
	assert.Equal(t, models.ChangeUpdated, f.publisher.notices[0].Change)
}

func TestEventServiceUpdateFailureLeavesEventAndCacheUntouched(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Title: "Old", Photos: []models.Photo{{Filename: "a.jpg"}}})
	_, _, err := f.svc.ListCached(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, f.cache.data)
	f.repo.updateErr = errors.New("insert photo failed")

	_, err = f.svc.Update(context.Background(), "e1", validRequest(), []PhotoUpload{upload("b.jpg")})
	require.ErrorIs(t, err, appErrors.ErrInternal)

	stored := f.repo.events["e1"]
	assert.Equal(t, "Old", stored.Title)
	assert.Equal(t, []string{"a.jpg"}, stored.Filenames())
	assert.Equal(t, []string{"stored-b.jpg"}, f.photos.removed)
	assert.Empty(t, f.publisher.notices)
	assert.NotEmpty(t, f.cache.data)
	assert.Empty(t, f.cache.deleted)
}

func TestEventServiceUpdateEnforcesPhotoLimit(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Photos: []models.Photo{{Filename: "a"}, {Filename: "b"}, {Filename: "c"}}})

	_, err := f.svc.AddPhotos(context.Background(), "e1", []PhotoUpload{upload("d.jpg")})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestEventServiceDeleteRemovesFiles(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Photos: []models.Photo{{Filename: "a.jpg"}}})

	require.NoError(t, f.svc.Delete(context.Background(), "e1"))
	assert.Equal(t, []string{"a.jpg"}, f.photos.removed)
	assert.Equal(t, models.ChangeDeleted, f.publisher.notices[0].Change)

	require.ErrorIs(t, f.svc.Delete(context.Background(), "e1"), appErrors.ErrNotFound)
}

func TestEventServiceDeletePhotosIgnoresAbsent(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1", Photos: []models.Photo{{Filename: "a.jpg"}, {Filename: "b.jpg"}}})

	removed, err := f.svc.DeletePhotos(context.Background(), "e1", dto.DeletePhotosRequest{Filenames: []string{"a.jpg", "a.jpg", "zzz.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, removed)
	assert.Len(t, f.publisher.notices, 1)

	removed, err = f.svc.DeletePhotos(context.Background(), "e1", dto.DeletePhotosRequest{Filenames: []string{"zzz.jpg"}})
	require.NoError(t, err)
	assert.NotNil(t, removed)
	assert.Empty(t, removed)
	assert.Len(t, f.publisher.notices, 1)
}

func TestEventServiceDeletePhotosValidation(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1"})

	_, err := f.svc.DeletePhotos(context.Background(), "e1", dto.DeletePhotosRequest{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = f.svc.DeletePhotos(context.Background(), "missing", dto.DeletePhotosRequest{Filenames: []string{"a.jpg"}})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestEventServiceAddPhotosRequiresUploads(t *testing.T) {
	f := newEventFixture(t, &models.Event{ID: "e1"})

	_, err := f.svc.AddPhotos(context.Background(), "e1", nil)
	require.ErrorIs(t, err, appErrors.ErrValidation)

	added, err := f.svc.AddPhotos(context.Background(), "e1", []PhotoUpload{upload("x.jpg")})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, models.ChangePhotosAdded, f.publisher.notices[0].Change)
}
