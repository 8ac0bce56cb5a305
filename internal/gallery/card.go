package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chapterhub/event-gallery/internal/models"
)

// CardState is the presentation state of one event card.
type CardState int

const (
	CardClosed CardState = iota
	CardModalOpen
	CardFullscreen
)

func (s CardState) String() string {
	switch s {
	case CardClosed:
		return "closed"
	case CardModalOpen:
		return "modal-open"
	case CardFullscreen:
		return "fullscreen"
	default:
		return fmt.Sprintf("CardState(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for a state change the card does not allow.
var ErrInvalidTransition = errors.New("gallery: invalid card transition")

// UpdateFunc tells other views an event changed locally.
type UpdateFunc func(eventID string, change models.ChangeKind)

// Card drives the closed → modal → fullscreen lifecycle of an event and owns the
// local copy of the event shown inside the modal.
type Card struct {
	svc       PhotoService
	onUpdated UpdateFunc

	mu        sync.Mutex
	state     CardState
	event     models.Event
	slide     int
	uploading bool
	grid      *PhotoGrid
}

// NewCard builds a closed card for evt. onUpdated may be nil.
func NewCard(evt models.Event, svc PhotoService, onUpdated UpdateFunc) *Card {
	c := &Card{svc: svc, onUpdated: onUpdated, event: evt.Clone()}
	c.grid = NewPhotoGrid(evt.ID, evt.Photos, svc, c.photosDeleted)
	return c
}

// State returns the current state.
func (c *Card) State() CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Event returns the card's local copy of the event.
func (c *Card) Event() models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.event.Clone()
}

// Grid exposes the photo selection grid shown in the modal.
func (c *Card) Grid() *PhotoGrid { return c.grid }

// Open shows the modal.
func (c *Card) Open() error {
	return c.transition(CardClosed, CardModalOpen)
}

// Close hides the modal. The fullscreen slider has to be closed first.
func (c *Card) Close() error {
	return c.transition(CardModalOpen, CardClosed)
}

// OpenFullscreen opens the slider on the photo at photoIndex.
func (c *Card) OpenFullscreen(photoIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CardModalOpen {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, CardFullscreen)
	}
	if photoIndex < 0 || photoIndex >= len(c.event.Photos) {
		return fmt.Errorf("photo index %d out of range [0,%d)", photoIndex, len(c.event.Photos))
	}
	c.slide = SlideIndexForPhoto(c.event, photoIndex)
	c.state = CardFullscreen
	return nil
}

// CloseFullscreen returns to the modal.
func (c *Card) CloseFullscreen() error {
	return c.transition(CardFullscreen, CardModalOpen)
}

// Slider returns a slider over the local event, positioned on the fullscreen
// slide when fullscreen is open and on the first slide otherwise.
func (c *Card) Slider() *Slider {
	c.mu.Lock()
	defer c.mu.Unlock()
	initial := 0
	if c.state == CardFullscreen {
		initial = c.slide
	}
	return NewSlider(c.event, initial)
}

// Uploading reports whether an upload is in flight.
func (c *Card) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// AddPhotos uploads files from the open modal. Returned photos are merged into the
// local event by filename and onUpdated is told about it. An empty file list is a
// no-op.
func (c *Card) AddPhotos(ctx context.Context, files []Upload) (Result[[]models.Photo], error) {
	c.mu.Lock()
	if c.state == CardClosed {
		c.mu.Unlock()
		return Result[[]models.Photo]{}, fmt.Errorf("%w: add photos while closed", ErrInvalidTransition)
	}
	if c.uploading {
		c.mu.Unlock()
		return Result[[]models.Photo]{}, ErrBusy
	}
	if len(files) == 0 {
		c.mu.Unlock()
		return Result[[]models.Photo]{Success: true, Data: []models.Photo{}}, nil
	}
	c.uploading = true
	id := c.event.ID
	c.mu.Unlock()

	res := c.svc.AddPhotos(ctx, id, files)

	c.mu.Lock()
	c.uploading = false
	if !res.Success {
		c.mu.Unlock()
		return res, nil
	}
	c.event.AddPhotos(res.Data...)
	photos := c.event.Photos
	c.mu.Unlock()

	c.grid.SetPhotos(photos)
	if c.onUpdated != nil {
		c.onUpdated(id, models.ChangePhotosAdded)
	}
	return res, nil
}

func (c *Card) photosDeleted(filenames []string) {
	c.mu.Lock()
	c.event.RemovePhotos(filenames...)
	id := c.event.ID
	c.mu.Unlock()
	if c.onUpdated != nil {
		c.onUpdated(id, models.ChangePhotosDeleted)
	}
}

func (c *Card) transition(from, to CardState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
	}
	c.state = to
	return nil
}
