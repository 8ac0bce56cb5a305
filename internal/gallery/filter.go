package gallery

import (
	"strings"
	"time"

	"github.com/chapterhub/event-gallery/internal/models"
)

// Criteria narrows an event list. Zero values match everything.
type Criteria struct {
	// Category is an event type slug or name; "all" or empty disables it.
	Category string
	Search   string
	From     time.Time
	To       time.Time
}

// Filter returns the events matching c in their original order.
func Filter(events []models.Event, c Criteria) []models.Event {
	category := strings.ToLower(strings.TrimSpace(c.Category))
	if category == models.CategoryAll {
		category = ""
	}
	var wantType models.EventType
	if category != "" {
		if t, ok := models.ParseEventType(category); ok {
			wantType = t
		}
	}
	needle := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]models.Event, 0, len(events))
	for i := range events {
		evt := events[i]
		if category != "" {
			if wantType == "" || evt.Type.Slug() != wantType.Slug() {
				continue
			}
		}
		if needle != "" && !matches(evt, needle) {
			continue
		}
		if !c.From.IsZero() || !c.To.IsZero() {
			day, ok := evt.Day()
			if !ok {
				continue
			}
			if !c.From.IsZero() && day.Before(truncateDay(c.From)) {
				continue
			}
			if !c.To.IsZero() && day.After(truncateDay(c.To)) {
				continue
			}
		}
		out = append(out, evt)
	}
	return out
}

func matches(evt models.Event, needle string) bool {
	for _, field := range []string{evt.Title, evt.Speaker, evt.Location} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
