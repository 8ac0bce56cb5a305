package models

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidYouTubeID reports whether id has the 11-character YouTube video id shape.
func ValidYouTubeID(id string) bool {
	return youtubeIDPattern.MatchString(id)
}

// RegisterValidations installs the event_type, youtube_id and calendar_date tags.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return EventType(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("youtube_id", func(fl validator.FieldLevel) bool {
		return ValidYouTubeID(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, ok := ParseDate(fl.Field().String())
		return ok
	})
}
