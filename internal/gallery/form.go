package gallery

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chapterhub/event-gallery/internal/models"
)

// FormMode selects the rules applied by EventForm.Validate.
type FormMode int

const (
	FormCreate FormMode = iota
	FormUpdate
)

// EventForm holds the editable fields of an event before submission.
type EventForm struct {
	ID          string   `form:"id"`
	Title       string   `form:"title" validate:"required,max=200"`
	Speaker     string   `form:"speaker" validate:"required,max=200"`
	Date        string   `form:"date" validate:"required,calendar_date"`
	Type        string   `form:"type" validate:"required,event_type"`
	Location    string   `form:"location" validate:"max=200"`
	YouTubeID   string   `form:"youtubeId" validate:"omitempty,youtube_id"`
	Description string   `form:"description" validate:"max=5000"`
	Photos      []Upload `form:"photos" validate:"-"`
}

// FormFromEvent pre-fills a form for editing evt.
func FormFromEvent(evt models.Event) EventForm {
	return EventForm{
		ID:          evt.ID,
		Title:       evt.Title,
		Speaker:     evt.Speaker,
		Date:        models.CanonicalDate(evt.Date),
		Type:        string(evt.Type),
		Location:    evt.Location,
		YouTubeID:   evt.YouTubeID,
		Description: evt.Description,
	}
}

// FieldErrors maps a form field name to a human readable message.
type FieldErrors map[string]string

// Error lists the messages sorted by field.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return strings.Join(parts, "; ")
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := models.RegisterValidations(v); err != nil {
		panic(err)
	}
	return v
}

// Validate checks the form synchronously. A nil result means the form may be
// submitted. Creating an event requires at least one photo.
func (f EventForm) Validate(mode FormMode) FieldErrors {
	errs := FieldErrors{}
	f.trim()
	if err := formValidator.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs["form"] = err.Error()
			return errs
		}
		for _, fe := range verrs {
			if _, seen := errs[fe.Field()]; !seen {
				errs[fe.Field()] = fieldMessage(fe)
			}
		}
	}
	if mode == FormCreate && len(f.Photos) == 0 {
		errs["photos"] = "at least one photo is required"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Payload converts the form into a submission payload. A missing id is replaced
// with a client-generated one and the date is written as YYYY-MM-DD.
func (f EventForm) Payload() EventPayload {
	f.trim()
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	typ := models.EventType(f.Type)
	if parsed, ok := models.ParseEventType(f.Type); ok {
		typ = parsed
	}
	return EventPayload{
		ID:          id,
		Title:       f.Title,
		Speaker:     f.Speaker,
		Date:        models.CanonicalDate(f.Date),
		Type:        typ,
		Location:    f.Location,
		YouTubeID:   f.YouTubeID,
		Description: f.Description,
		Photos:      f.Photos,
	}
}

func (f *EventForm) trim() {
	f.ID = strings.TrimSpace(f.ID)
	f.Title = strings.TrimSpace(f.Title)
	f.Speaker = strings.TrimSpace(f.Speaker)
	f.Date = strings.TrimSpace(f.Date)
	f.Type = strings.TrimSpace(f.Type)
	f.Location = strings.TrimSpace(f.Location)
	f.YouTubeID = strings.TrimSpace(f.YouTubeID)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "calendar_date":
		return "date must be a valid calendar date (YYYY-MM-DD)"
	case "event_type":
		return "type must be one of the event categories"
	case "youtube_id":
		return "YouTube ID must be exactly 11 letters, digits, '-' or '_'"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
