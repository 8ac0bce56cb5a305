package gallery

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/models"
)

type scriptedLister struct {
	mu      sync.Mutex
	results []Result[[]models.Event]
	calls   int32
	gate    chan struct{}
}

func (l *scriptedLister) ListEvents(ctx context.Context) Result[[]models.Event] {
	atomic.AddInt32(&l.calls, 1)
	if l.gate != nil {
		<-l.gate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.results) == 0 {
		return Result[[]models.Event]{Success: true, Data: []models.Event{}}
	}
	res := l.results[0]
	if len(l.results) > 1 {
		l.results = l.results[1:]
	}
	return res
}

func listed(events ...models.Event) Result[[]models.Event] {
	return Result[[]models.Event]{Success: true, Data: events}
}

func evt(id, date string, photos ...string) models.Event {
	e := models.Event{ID: id, Title: "Event " + id, Date: date, Type: models.EventTypeSeminar}
	for _, p := range photos {
		e.Photos = append(e.Photos, models.Photo{Filename: p, URL: "/media/" + p})
	}
	return e
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(l Lister) *Store {
	return NewStore(l, WithClock(func() time.Time { return fixedNow }))
}

func ids(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestStoreDerivedViews(t *testing.T) {
	events := []models.Event{
		evt("a", "2024-01-10"),
		evt("b", "2024-06-15"), // today counts as past
		evt("c", "2024-06-16"),
		evt("d", "not a date"),
		evt("e", "2024-12-01"),
		evt("f", "2023-05-05"),
		evt("g", "2024-06-16"),
		evt("h", "2022-01-01"),
	}
	lister := &scriptedLister{results: []Result[[]models.Event]{listed(events...)}}
	s := newTestStore(lister)

	require.True(t, s.Fetch(context.Background(), false))
	snap := s.Snapshot()

	require.Equal(t, []string{"c", "e", "g"}, ids(snap.Upcoming))
	require.Equal(t, []string{"a", "b", "d", "f", "h"}, ids(snap.Past))
	require.Len(t, snap.Upcoming, len(snap.Events)-len(snap.Past))

	inUpcoming := map[string]bool{}
	for _, e := range snap.Upcoming {
		inUpcoming[e.ID] = true
	}
	for _, e := range snap.Past {
		require.False(t, inUpcoming[e.ID], "event %s in both views", e.ID)
	}

	require.Equal(t, []string{"e", "c", "g", "b", "a", "f"}, ids(snap.Highlights))
	require.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, ids(snap.Events), "base order untouched")
}

func TestHighlightsStableForTies(t *testing.T) {
	events := []models.Event{evt("x", "2024-01-01"), evt("y", "2024-01-01"), evt("z", "2024-01-01")}
	require.Equal(t, []string{"x", "y", "z"}, ids(Highlights(events, HighlightsLimit)))
	require.Len(t, Highlights(events, 2), 2)
	require.Empty(t, Highlights(nil, HighlightsLimit))
}

func TestStoreFetchGuard(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{listed(evt("a", "2024-01-01"))}}
	s := newTestStore(lister)
	ctx := context.Background()

	require.True(t, s.Fetch(ctx, false))
	require.False(t, s.Fetch(ctx, false))
	require.EqualValues(t, 1, atomic.LoadInt32(&lister.calls))

	require.True(t, s.Refresh(ctx))
	require.EqualValues(t, 2, atomic.LoadInt32(&lister.calls))
}

func TestStoreFetchSkippedWhileLoading(t *testing.T) {
	lister := &scriptedLister{gate: make(chan struct{})}
	s := newTestStore(lister)

	done := make(chan bool)
	go func() { done <- s.Fetch(context.Background(), true) }()

	require.Eventually(t, func() bool { return s.Snapshot().Loading }, time.Second, time.Millisecond)
	require.False(t, s.Fetch(context.Background(), true))

	close(lister.gate)
	require.True(t, <-done)
	require.False(t, s.Snapshot().Loading)
	require.EqualValues(t, 1, atomic.LoadInt32(&lister.calls))
}

func TestStoreFailureThenRetry(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{
		{Success: false, Data: []models.Event{}},
		listed(evt("a", "2024-01-01")),
	}}
	s := newTestStore(lister)
	ctx := context.Background()

	require.True(t, s.Fetch(ctx, false))
	snap := s.Snapshot()
	require.Equal(t, "Failed to fetch events", snap.Error)
	require.Empty(t, snap.Events)
	require.False(t, snap.Initialized)

	require.True(t, s.Retry(ctx))
	require.EqualValues(t, 2, atomic.LoadInt32(&lister.calls))
	snap = s.Snapshot()
	require.Empty(t, snap.Error)
	require.True(t, snap.Initialized)
	require.Equal(t, []string{"a"}, ids(snap.Events))
}

func TestStoreFailureKeepsEvents(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{
		listed(evt("a", "2024-01-01")),
		{Success: false, Message: "database unavailable"},
	}}
	s := newTestStore(lister)
	ctx := context.Background()

	s.Fetch(ctx, false)
	s.Refresh(ctx)
	snap := s.Snapshot()
	require.Equal(t, "database unavailable", snap.Error)
	require.Equal(t, []string{"a"}, ids(snap.Events))
}

func TestStoreSubscribe(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{listed(evt("a", "2024-01-01"))}}
	s := newTestStore(lister)

	var mu sync.Mutex
	var versions []uint64
	var loading []bool
	cancel := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		versions = append(versions, snap.Version)
		loading = append(loading, snap.Loading)
		mu.Unlock()
	})

	s.Fetch(context.Background(), false)
	cancel()
	cancel()
	s.Refresh(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []uint64{1, 2}, versions)
	require.Equal(t, []bool{true, false}, loading)
}

func TestStoreProvisionalPatches(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{
		listed(evt("a", "2024-01-01", "a.jpg", "b.jpg", "c.jpg"), evt("b", "2024-07-01")),
	}}
	s := newTestStore(lister)
	ctx := context.Background()
	s.Fetch(ctx, false)
	before := s.Snapshot()

	require.True(t, s.ApplyPhotosDeleted("a", []string{"a.jpg", "b.jpg"}))
	snap := s.Snapshot()
	require.True(t, snap.Provisional)
	got, _ := snap.Event("a")
	require.Equal(t, []string{"c.jpg"}, got.Filenames())
	orig, _ := before.Event("a")
	require.Len(t, orig.Photos, 3, "published snapshots are immutable")

	require.True(t, s.ApplyPhotosDeleted("a", []string{"missing.jpg"}))
	got, _ = s.Snapshot().Event("a")
	require.Equal(t, []string{"c.jpg"}, got.Filenames())

	require.True(t, s.ApplyPhotosAdded("a", []models.Photo{{Filename: "c.jpg"}, {Filename: "d.jpg"}}))
	got, _ = s.Snapshot().Event("a")
	require.Equal(t, []string{"c.jpg", "d.jpg"}, got.Filenames())

	require.False(t, s.ApplyPhotosAdded("nope", nil))

	require.True(t, s.ApplyEventRemoved("b"))
	snap = s.Snapshot()
	require.Equal(t, []string{"a"}, ids(snap.Events))
	require.Empty(t, snap.Upcoming)

	s.ApplyEventSaved(evt("n", "2025-01-01"))
	snap = s.Snapshot()
	require.Equal(t, []string{"n"}, ids(snap.Upcoming))
	require.Equal(t, "n", snap.Highlights[0].ID)

	s.Refresh(ctx)
	snap = s.Snapshot()
	require.False(t, snap.Provisional)
}

func TestStoreSubscriberReadsDuringConcurrentMutations(t *testing.T) {
	lister := &scriptedLister{results: []Result[[]models.Event]{listed(evt("a", "2024-01-01", "seed.jpg"))}}
	s := newTestStore(lister)
	ctx := context.Background()
	s.Fetch(ctx, false)

	var last uint64
	var outOfOrder int32
	cancel := s.Subscribe(func(snap Snapshot) {
		current := s.Snapshot()
		if current.Version < snap.Version {
			atomic.AddInt32(&outOfOrder, 1)
		}
		if snap.Version <= atomic.LoadUint64(&last) {
			atomic.AddInt32(&outOfOrder, 1)
		}
		atomic.StoreUint64(&last, snap.Version)
	})
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(3)
			go func() {
				defer wg.Done()
				s.ApplyPhotosAdded("a", []models.Photo{{Filename: "x.jpg"}})
			}()
			go func() {
				defer wg.Done()
				s.ApplyPhotosDeleted("a", []string{"x.jpg"})
			}()
			go func() {
				defer wg.Done()
				s.Refresh(ctx)
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutations with a reading subscriber did not finish")
	}
	require.Zero(t, atomic.LoadInt32(&outOfOrder))
	require.Equal(t, s.Snapshot().Version, atomic.LoadUint64(&last))
}
