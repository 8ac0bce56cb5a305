package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/client"
	"github.com/chapterhub/event-gallery/internal/models"
)

// Result is the uniform outcome of every service call. Failures never surface as
// Go errors; callers branch on Success.
type Result[T any] struct {
	Success bool
	Data    T
	Message string
}

// Ack is the server acknowledgment for delete operations.
type Ack struct {
	ID      string   `json:"id,omitempty"`
	Deleted bool     `json:"deleted,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Upload is a photo file to send. Body is consumed once.
type Upload struct {
	Name string
	Body io.Reader
}

// EventPayload carries the form fields of a create or update request.
type EventPayload struct {
	ID          string
	Title       string
	Speaker     string
	Date        string
	Type        models.EventType
	Location    string
	YouTubeID   string
	Description string
	Photos      []Upload
}

func (p EventPayload) form() *client.Form {
	f := &client.Form{}
	f.Set("title", p.Title)
	f.Set("speaker", p.Speaker)
	f.Set("date", p.Date)
	f.Set("type", string(p.Type))
	f.Set("location", p.Location)
	f.Set("youtubeId", p.YouTubeID)
	f.Set("description", p.Description)
	f.Set("id", p.ID)
	for _, photo := range p.Photos {
		f.AddFile("photos", photo.Name, photo.Body)
	}
	return f
}

// API is the transport the event service needs.
type API interface {
	DoJSON(ctx context.Context, method, path string, body, out interface{}) error
	DoMultipart(ctx context.Context, method, path string, form *client.Form, out interface{}) error
	MediaBaseURL() string
}

// EventService maps gallery operations onto API calls.
type EventService struct {
	api      API
	notifier Notifier
	logger   *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(api API, notifier Notifier, logger *zap.Logger) *EventService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{api: api, notifier: notifier, logger: logger}
}

// Toast IDs group the loading/success/error notifications of one operation.
const (
	toastListEvents   = "events:list"
	toastCreateEvent  = "events:create"
	toastUpdateEvent  = "events:update"
	toastDeleteEvent  = "events:delete"
	toastAddPhotos    = "photos:add"
	toastDeletePhotos = "photos:delete"
)

// ListEvents fetches the whole collection. It is silent on the way in so the store
// can call it in the background.
func (s *EventService) ListEvents(ctx context.Context) Result[[]models.Event] {
	var events []models.Event
	if err := s.api.DoJSON(ctx, http.MethodGet, "/events", nil, &events); err != nil {
		msg := s.fail(toastListEvents, "Failed to fetch events", err)
		return Result[[]models.Event]{Success: false, Data: []models.Event{}, Message: msg}
	}
	if events == nil {
		events = []models.Event{}
	}
	return Result[[]models.Event]{Success: true, Data: models.NormalizeEvents(events, s.api.MediaBaseURL())}
}

// CreateEvent submits a new event with its photos.
func (s *EventService) CreateEvent(ctx context.Context, payload EventPayload) Result[*models.Event] {
	s.notifier.Notify(Notification{ID: toastCreateEvent, Level: LevelLoading, Message: "Creating event..."})
	var created models.Event
	if err := s.api.DoMultipart(ctx, http.MethodPost, "/events", payload.form(), &created); err != nil {
		return Result[*models.Event]{Message: s.fail(toastCreateEvent, "Failed to create event", err)}
	}
	evt := created.Normalize(s.api.MediaBaseURL())
	s.succeed(toastCreateEvent, "Event created successfully!")
	return Result[*models.Event]{Success: true, Data: &evt}
}

// UpdateEvent replaces the fields of id; photos in payload are appended.
func (s *EventService) UpdateEvent(ctx context.Context, id string, payload EventPayload) Result[*models.Event] {
	s.notifier.Notify(Notification{ID: toastUpdateEvent, Level: LevelLoading, Message: "Updating event..."})
	var updated models.Event
	if err := s.api.DoMultipart(ctx, http.MethodPut, eventPath(id), payload.form(), &updated); err != nil {
		return Result[*models.Event]{Message: s.fail(toastUpdateEvent, "Failed to update event", err)}
	}
	evt := updated.Normalize(s.api.MediaBaseURL())
	s.succeed(toastUpdateEvent, "Event updated successfully!")
	return Result[*models.Event]{Success: true, Data: &evt}
}

// DeleteEvent removes id and its photos.
func (s *EventService) DeleteEvent(ctx context.Context, id string) Result[Ack] {
	s.notifier.Notify(Notification{ID: toastDeleteEvent, Level: LevelLoading, Message: "Deleting event..."})
	var ack Ack
	if err := s.api.DoJSON(ctx, http.MethodDelete, eventPath(id), nil, &ack); err != nil {
		return Result[Ack]{Message: s.fail(toastDeleteEvent, "Failed to delete event", err)}
	}
	if ack.ID == "" {
		ack.ID = id
	}
	s.succeed(toastDeleteEvent, "Event deleted successfully!")
	return Result[Ack]{Success: true, Data: ack}
}

// AddPhotos uploads files to eventID and returns the stored descriptors.
func (s *EventService) AddPhotos(ctx context.Context, eventID string, files []Upload) Result[[]models.Photo] {
	s.notifier.Notify(Notification{ID: toastAddPhotos, Level: LevelLoading, Message: "Uploading photos..."})
	form := &client.Form{}
	for _, file := range files {
		form.AddFile("photos", file.Name, file.Body)
	}
	var out struct {
		NewPhotos []models.Photo `json:"newPhotos"`
	}
	if err := s.api.DoMultipart(ctx, http.MethodPost, eventPath(eventID)+"/photos", form, &out); err != nil {
		return Result[[]models.Photo]{Data: []models.Photo{}, Message: s.fail(toastAddPhotos, "Failed to add photos", err)}
	}
	s.succeed(toastAddPhotos, "Photos added successfully!")
	return Result[[]models.Photo]{Success: true, Data: models.NormalizePhotos(out.NewPhotos, s.api.MediaBaseURL())}
}

// DeletePhotos removes filenames from eventID.
func (s *EventService) DeletePhotos(ctx context.Context, eventID string, filenames []string) Result[Ack] {
	s.notifier.Notify(Notification{ID: toastDeletePhotos, Level: LevelLoading, Message: "Deleting photos..."})
	body := struct {
		Filenames []string `json:"filenames"`
	}{Filenames: filenames}
	var ack Ack
	if err := s.api.DoJSON(ctx, http.MethodDelete, eventPath(eventID)+"/photos", body, &ack); err != nil {
		return Result[Ack]{Message: s.fail(toastDeletePhotos, "Failed to delete photos", err)}
	}
	if ack.ID == "" {
		ack.ID = eventID
	}
	s.succeed(toastDeletePhotos, fmt.Sprintf("%d photo(s) deleted successfully!", len(filenames)))
	return Result[Ack]{Success: true, Data: ack}
}

func (s *EventService) succeed(toast, message string) {
	s.notifier.Notify(Notification{ID: toast, Level: LevelSuccess, Message: message})
}

// fail logs err, emits the error notification and returns the message shown.
// Server-supplied messages win over the generic fallback.
func (s *EventService) fail(toast, fallback string, err error) string {
	msg := fallback
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Message != http.StatusText(apiErr.Status) {
		msg = apiErr.Message
	}
	s.logger.Error("event service call failed",
		zap.String("operation", toast),
		zap.Bool("timeout", client.IsTimeout(err)),
		zap.Error(err))
	s.notifier.Notify(Notification{ID: toast, Level: LevelError, Message: msg})
	return msg
}

func eventPath(id string) string {
	return "/events/" + url.PathEscape(id)
}
