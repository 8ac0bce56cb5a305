package dto

import (
	"strings"

	"github.com/chapterhub/event-gallery/internal/models"
)

// EventRequest carries the scalar fields of a create or update submission. Photo
// files travel alongside it in the same multipart body.
type EventRequest struct {
	ID          string `form:"id" validate:"omitempty,max=64"`
	Title       string `form:"title" validate:"required,max=200"`
	Speaker     string `form:"speaker" validate:"required,max=200"`
	Date        string `form:"date" validate:"required,calendar_date"`
	Type        string `form:"type" validate:"required,event_type"`
	Location    string `form:"location" validate:"max=200"`
	YouTubeID   string `form:"youtubeId" validate:"omitempty,youtube_id"`
	Description string `form:"description" validate:"max=5000"`
}

// Normalized trims every field and canonicalizes the date and type so that
// slugs and alternate date layouts validate.
func (r EventRequest) Normalized() EventRequest {
	out := EventRequest{
		ID:          strings.TrimSpace(r.ID),
		Title:       strings.TrimSpace(r.Title),
		Speaker:     strings.TrimSpace(r.Speaker),
		Date:        models.CanonicalDate(strings.TrimSpace(r.Date)),
		Type:        strings.TrimSpace(r.Type),
		Location:    strings.TrimSpace(r.Location),
		YouTubeID:   strings.TrimSpace(r.YouTubeID),
		Description: strings.TrimSpace(r.Description),
	}
	if t, ok := models.ParseEventType(out.Type); ok {
		out.Type = string(t)
	}
	return out
}

// Apply copies the request onto evt.
func (r EventRequest) Apply(evt *models.Event) {
	evt.Title = r.Title
	evt.Speaker = r.Speaker
	evt.Date = r.Date
	evt.Type = models.EventType(r.Type)
	evt.Location = r.Location
	evt.YouTubeID = r.YouTubeID
	evt.Description = r.Description
}

// DeletePhotosRequest names the photos to detach from an event.
type DeletePhotosRequest struct {
	Filenames []string `json:"filenames" validate:"required,min=1,dive,required"`
}

// AddPhotosResponse is returned by POST /events/:id/photos.
type AddPhotosResponse struct {
	NewPhotos []models.Photo `json:"newPhotos"`
}

// DeleteEventResponse acknowledges DELETE /events/:id.
type DeleteEventResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// DeletePhotosResponse acknowledges DELETE /events/:id/photos.
type DeletePhotosResponse struct {
	ID      string   `json:"id"`
	Removed []string `json:"removed"`
}

// ExportQuery selects the catalogue export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
	models.EventFilter
}
