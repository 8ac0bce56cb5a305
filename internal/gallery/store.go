package gallery

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
)

// HighlightsLimit caps the highlights view.
const HighlightsLimit = 6

const fetchFailedMessage = "Failed to fetch events"

// Snapshot is an immutable view of the store. A new value replaces the old one on
// every change; slices inside a published snapshot are never modified.
type Snapshot struct {
	Events      []models.Event
	Upcoming    []models.Event
	Past        []models.Event
	Highlights  []models.Event
	Loading     bool
	Error       string
	Initialized bool
	Version     uint64
	FetchedAt   time.Time
	// Provisional is set while local patches are waiting for the next fetch.
	Provisional bool
}

// Event looks up an event by id.
func (s Snapshot) Event(id string) (models.Event, bool) {
	for _, evt := range s.Events {
		if evt.ID == id {
			return evt, true
		}
	}
	return models.Event{}, false
}

// Lister loads the event collection.
type Lister interface {
	ListEvents(ctx context.Context) Result[[]models.Event]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for the upcoming/past split.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLogger attaches a logger.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the single in-memory source of truth for fetched events.
type Store struct {
	lister Lister
	now    func() time.Time
	logger *zap.Logger

	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]func(Snapshot)
	nextID int

	// deliverMu serialises delivery; delivered is the last version handed out.
	deliverMu sync.Mutex
	delivered uint64
}

// NewStore builds an empty, uninitialised store.
func NewStore(lister Lister, opts ...StoreOption) *Store {
	s := &Store{
		lister: lister,
		now:    time.Now,
		logger: zap.NewNop(),
		subs:   make(map[int]func(Snapshot)),
		snap: Snapshot{
			Events:     []models.Event{},
			Upcoming:   []models.Event{},
			Past:       []models.Event{},
			Highlights: []models.Event{},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn for every future snapshot and returns its cancel func.
// fn runs on the goroutine that changed the store. It may read the store but must
// not mutate it synchronously. Snapshots superseded before delivery are skipped.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Fetch loads events unless a load is in flight, or the store is already
// initialised with data and force is false. It reports whether a request was made.
func (s *Store) Fetch(ctx context.Context, force bool) bool {
	s.mu.Lock()
	if s.snap.Loading || (!force && s.snap.Initialized && len(s.snap.Events) > 0) {
		s.mu.Unlock()
		return false
	}
	next := s.snap
	next.Loading = true
	next.Error = ""
	s.publishLocked(next)

	res := s.lister.ListEvents(ctx)

	s.mu.Lock()
	next = s.snap
	next.Loading = false
	if res.Success {
		next = s.withEventsLocked(next, res.Data)
		next.Initialized = true
		next.Provisional = false
		next.FetchedAt = s.now()
	} else {
		next.Error = res.Message
		if next.Error == "" {
			next.Error = fetchFailedMessage
		}
		s.logger.Warn("event fetch failed", zap.String("error", next.Error))
	}
	s.publishLocked(next)
	return true
}

// Refresh forces a fetch, reconciling local patches with the server.
func (s *Store) Refresh(ctx context.Context) bool {
	return s.Fetch(ctx, true)
}

// Retry re-runs the fetch after a failure.
func (s *Store) Retry(ctx context.Context) bool {
	return s.Fetch(ctx, true)
}

// ApplyPhotosAdded appends photos to eventID locally. Reports whether the event
// was found.
func (s *Store) ApplyPhotosAdded(eventID string, photos []models.Photo) bool {
	return s.patchEvent(eventID, func(evt *models.Event) {
		evt.AddPhotos(photos...)
	})
}

// ApplyPhotosDeleted drops filenames from eventID locally.
func (s *Store) ApplyPhotosDeleted(eventID string, filenames []string) bool {
	return s.patchEvent(eventID, func(evt *models.Event) {
		evt.RemovePhotos(filenames...)
	})
}

// ApplyEventRemoved removes id from the local collection.
func (s *Store) ApplyEventRemoved(id string) bool {
	s.mu.Lock()
	events := make([]models.Event, 0, len(s.snap.Events))
	found := false
	for _, evt := range s.snap.Events {
		if evt.ID == id {
			found = true
			continue
		}
		events = append(events, evt)
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	next := s.withEventsLocked(s.snap, events)
	next.Provisional = true
	s.publishLocked(next)
	return true
}

// ApplyEventSaved inserts or replaces evt locally.
func (s *Store) ApplyEventSaved(evt models.Event) {
	s.mu.Lock()
	events := make([]models.Event, 0, len(s.snap.Events)+1)
	replaced := false
	for _, existing := range s.snap.Events {
		if existing.ID == evt.ID {
			events = append(events, evt)
			replaced = true
			continue
		}
		events = append(events, existing)
	}
	if !replaced {
		events = append(events, evt)
	}
	next := s.withEventsLocked(s.snap, events)
	next.Provisional = true
	s.publishLocked(next)
}

func (s *Store) patchEvent(id string, patch func(*models.Event)) bool {
	s.mu.Lock()
	idx := -1
	for i, evt := range s.snap.Events {
		if evt.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	events := make([]models.Event, len(s.snap.Events))
	copy(events, s.snap.Events)
	evt := events[idx].Clone()
	patch(&evt)
	events[idx] = evt
	next := s.withEventsLocked(s.snap, events)
	next.Provisional = true
	s.publishLocked(next)
	return true
}

// withEventsLocked assigns events and recomputes every derived view in one step.
func (s *Store) withEventsLocked(next Snapshot, events []models.Event) Snapshot {
	base := make([]models.Event, len(events))
	for i := range events {
		base[i] = events[i].Clone()
		base[i].Day()
	}
	next.Events = base
	next.Upcoming, next.Past = Partition(base, s.now())
	next.Highlights = Highlights(base, HighlightsLimit)
	return next
}

// publishLocked installs next, releases mu and delivers next to subscribers.
// mu is released before deliverMu is taken so subscribers may read the store.
// A snapshot older than one already delivered is dropped, keeping delivery in
// version order.
func (s *Store) publishLocked(next Snapshot) {
	next.Version = s.snap.Version + 1
	s.snap = next
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if next.Version <= s.delivered {
		return
	}
	s.delivered = next.Version
	for _, fn := range subs {
		fn(next)
	}
}

// Partition splits events into those strictly after now and the rest. Events
// whose date cannot be parsed count as past.
func Partition(events []models.Event, now time.Time) (upcoming, past []models.Event) {
	upcoming = make([]models.Event, 0, len(events))
	past = make([]models.Event, 0, len(events))
	for i := range events {
		evt := events[i]
		if day, ok := evt.Day(); ok && day.After(now) {
			upcoming = append(upcoming, evt)
			continue
		}
		past = append(past, evt)
	}
	return upcoming, past
}

// Highlights returns up to limit events ordered by date, newest first. Ties keep
// their original order and events is left untouched.
func Highlights(events []models.Event, limit int) []models.Event {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, _ := sorted[i].Day()
		dj, _ := sorted[j].Day()
		return di.After(dj)
	})
	if limit >= 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
