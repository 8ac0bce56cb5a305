package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chapterhub/event-gallery/internal/models"
)

var (
	// ErrBusy is returned while a previous upload or deletion is still in flight.
	ErrBusy = errors.New("gallery: operation already in progress")
	// ErrNothingSelected is returned by DeleteSelected with an empty selection.
	ErrNothingSelected = errors.New("gallery: no photos selected")
	// ErrDeclined is returned when the user does not confirm a destructive action.
	ErrDeclined = errors.New("gallery: action not confirmed")
)

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm answers yes without asking.
var AlwaysConfirm = ConfirmFunc(func(string) bool { return true })

// PhotoService is the subset of the event service the media views call.
type PhotoService interface {
	AddPhotos(ctx context.Context, eventID string, files []Upload) Result[[]models.Photo]
	DeletePhotos(ctx context.Context, eventID string, filenames []string) Result[Ack]
}

// DeletePrompt is the confirmation text for deleting n photos.
func DeletePrompt(n int) string {
	return fmt.Sprintf("Delete %d selected photo(s)? This cannot be undone.", n)
}

// PhotoGrid tracks a local selection over an event's photos. The selection is
// independent of server state until DeleteSelected succeeds.
type PhotoGrid struct {
	eventID   string
	svc       PhotoService
	onDeleted func(filenames []string)

	mu       sync.Mutex
	photos   []models.Photo
	selected []string
	deleting bool
}

// NewPhotoGrid builds a grid over photos. onDeleted may be nil.
func NewPhotoGrid(eventID string, photos []models.Photo, svc PhotoService, onDeleted func([]string)) *PhotoGrid {
	g := &PhotoGrid{eventID: eventID, svc: svc, onDeleted: onDeleted}
	g.SetPhotos(photos)
	return g
}

// SetPhotos replaces the photo list and drops selections that no longer exist.
func (g *PhotoGrid) SetPhotos(photos []models.Photo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.photos = append([]models.Photo(nil), photos...)
	present := g.filenameSetLocked()
	kept := g.selected[:0:0]
	for _, name := range g.selected {
		if _, ok := present[name]; ok {
			kept = append(kept, name)
		}
	}
	g.selected = kept
}

// Photos returns the current photo list.
func (g *PhotoGrid) Photos() []models.Photo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Photo(nil), g.photos...)
}

// Toggle flips the selection of filename. Unknown filenames are ignored.
func (g *PhotoGrid) Toggle(filename string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.filenameSetLocked()[filename]; !ok {
		return
	}
	for i, name := range g.selected {
		if name == filename {
			g.selected = append(g.selected[:i:i], g.selected[i+1:]...)
			return
		}
	}
	g.selected = append(g.selected, filename)
}

// SelectAll selects every photo, or clears the selection when all are selected.
func (g *PhotoGrid) SelectAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.allSelectedLocked() {
		g.selected = nil
		return
	}
	g.selected = make([]string, 0, len(g.photos))
	for _, p := range g.photos {
		g.selected = append(g.selected, p.Filename)
	}
}

// AllSelected reports whether every photo is selected.
func (g *PhotoGrid) AllSelected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allSelectedLocked()
}

// Clear empties the selection.
func (g *PhotoGrid) Clear() {
	g.mu.Lock()
	g.selected = nil
	g.mu.Unlock()
}

// Selected returns selected filenames in the order they were picked.
func (g *PhotoGrid) Selected() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.selected...)
}

// IsSelected reports whether filename is selected.
func (g *PhotoGrid) IsSelected(filename string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.selected {
		if name == filename {
			return true
		}
	}
	return false
}

// Deleting reports whether a deletion is in flight.
func (g *PhotoGrid) Deleting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.deleting
}

// DeleteSelected asks confirm, then deletes the selected photos on the server. On
// success the local list drops exactly the deleted filenames, the selection is
// cleared and onDeleted is called. On failure local state is left as it was.
func (g *PhotoGrid) DeleteSelected(ctx context.Context, confirm Confirmer) (Result[Ack], error) {
	g.mu.Lock()
	if g.deleting {
		g.mu.Unlock()
		return Result[Ack]{}, ErrBusy
	}
	if len(g.selected) == 0 {
		g.mu.Unlock()
		return Result[Ack]{}, ErrNothingSelected
	}
	targets := append([]string(nil), g.selected...)
	g.mu.Unlock()

	if confirm == nil || !confirm.Confirm(DeletePrompt(len(targets))) {
		return Result[Ack]{}, ErrDeclined
	}

	g.mu.Lock()
	if g.deleting {
		g.mu.Unlock()
		return Result[Ack]{}, ErrBusy
	}
	g.deleting = true
	g.mu.Unlock()

	res := g.svc.DeletePhotos(ctx, g.eventID, targets)

	g.mu.Lock()
	g.deleting = false
	if !res.Success {
		g.mu.Unlock()
		return res, nil
	}
	evt := models.Event{Photos: g.photos}
	evt.RemovePhotos(targets...)
	g.photos = evt.Photos
	g.selected = nil
	g.mu.Unlock()

	if g.onDeleted != nil {
		g.onDeleted(targets)
	}
	return res, nil
}

func (g *PhotoGrid) filenameSetLocked() map[string]struct{} {
	set := make(map[string]struct{}, len(g.photos))
	for _, p := range g.photos {
		set[p.Filename] = struct{}{}
	}
	return set
}

func (g *PhotoGrid) allSelectedLocked() bool {
	if len(g.photos) == 0 || len(g.selected) != len(g.photos) {
		return false
	}
	selected := make(map[string]struct{}, len(g.selected))
	for _, name := range g.selected {
		selected[name] = struct{}{}
	}
	for _, p := range g.photos {
		if _, ok := selected[p.Filename]; !ok {
			return false
		}
	}
	return true
}
