package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType enumerates the categories an event can be filed under.
type EventType string

const (
	EventTypeConference   EventType = "Conference"
	EventTypeWorkshop     EventType = "Workshop"
	EventTypeSeminar      EventType = "Seminar"
	EventTypeTechTalk     EventType = "Technical Talk"
	EventTypeAward        EventType = "Award Ceremony"
	EventTypeStudent      EventType = "Student Event"
	EventTypeIndustry     EventType = "Industry Visit"
	EventTypeResearch     EventType = "Research Presentation"
	CategoryAll                     = "all"
	DateLayout                      = "2006-01-02"
	youtubeEmbedURLPrefix           = "https://www.youtube.com/embed/"
	youtubeWatchURLPrefix           = "https://www.youtube.com/watch?v="
)

var eventTypes = []EventType{
	EventTypeConference,
	EventTypeWorkshop,
	EventTypeSeminar,
	EventTypeTechTalk,
	EventTypeAward,
	EventTypeStudent,
	EventTypeIndustry,
	EventTypeResearch,
}

// EventTypes returns the enumerated categories in display order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// Slug returns the lowercase, hyphenated form used by category filters.
func (t EventType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(t))), " ", "-")
}

// Valid reports whether t is one of the enumerated categories.
func (t EventType) Valid() bool {
	_, ok := ParseEventType(string(t))
	return ok
}

// ParseEventType accepts either the display name or the slug, case-insensitively.
func ParseEventType(raw string) (EventType, bool) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	if needle == "" {
		return "", false
	}
	for _, t := range eventTypes {
		if strings.ToLower(string(t)) == needle || t.Slug() == needle {
			return t, true
		}
	}
	return "", false
}

// Event is a dated chapter activity with its attached media.
type Event struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Speaker     string    `db:"speaker" json:"speaker"`
	Date        string    `db:"event_date" json:"date"`
	Type        EventType `db:"type" json:"type"`
	Location    string    `db:"location" json:"location"`
	Description string    `db:"description" json:"description"`
	YouTubeID   string    `db:"youtube_id" json:"youtubeId,omitempty"`
	Photos      []Photo   `db:"-" json:"photos"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	day       time.Time
	dayFrom   string
	dayOK     bool
	dayCached bool
}

// UnmarshalJSON accepts "_id" as an alias of "id".
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	aux := struct {
		*plain
		LegacyID string `json:"_id"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = aux.LegacyID
	}
	e.dayCached = false
	return nil
}

// Day returns the calendar day of the event at midnight UTC. The second result is
// false when Date cannot be interpreted.
func (e *Event) Day() (time.Time, bool) {
	if e.dayCached && e.dayFrom == e.Date {
		return e.day, e.dayOK
	}
	day, ok := ParseDate(e.Date)
	e.day, e.dayOK, e.dayFrom, e.dayCached = day, ok, e.Date, true
	return day, ok
}

// HasVideo reports whether a YouTube video is attached.
func (e Event) HasVideo() bool {
	return strings.TrimSpace(e.YouTubeID) != ""
}

// EmbedURL is the iframe URL for the attached video.
func (e Event) EmbedURL() string {
	if !e.HasVideo() {
		return ""
	}
	return youtubeEmbedURLPrefix + e.YouTubeID
}

// WatchURL is the public watch page for the attached video.
func (e Event) WatchURL() string {
	if !e.HasVideo() {
		return ""
	}
	return youtubeWatchURLPrefix + e.YouTubeID
}

// Clone returns a copy whose photo slice can be modified independently.
func (e Event) Clone() Event {
	out := e
	if e.Photos != nil {
		out.Photos = make([]Photo, len(e.Photos))
		copy(out.Photos, e.Photos)
	}
	return out
}

// AddPhotos appends photos whose filename is not already present and returns the
// ones actually added.
func (e *Event) AddPhotos(photos ...Photo) []Photo {
	seen := make(map[string]struct{}, len(e.Photos)+len(photos))
	for _, p := range e.Photos {
		seen[p.Filename] = struct{}{}
	}
	added := make([]Photo, 0, len(photos))
	for _, p := range photos {
		if p.Filename == "" {
			continue
		}
		if _, dup := seen[p.Filename]; dup {
			continue
		}
		seen[p.Filename] = struct{}{}
		e.Photos = append(e.Photos, p)
		added = append(added, p)
	}
	return added
}

// RemovePhotos drops photos with the given filenames and returns the filenames that
// were present. Unknown filenames are ignored.
func (e *Event) RemovePhotos(filenames ...string) []string {
	drop := make(map[string]struct{}, len(filenames))
	for _, name := range filenames {
		drop[name] = struct{}{}
	}
	kept := make([]Photo, 0, len(e.Photos))
	removed := make([]string, 0, len(filenames))
	for _, p := range e.Photos {
		if _, ok := drop[p.Filename]; ok {
			removed = append(removed, p.Filename)
			continue
		}
		kept = append(kept, p)
	}
	e.Photos = kept
	return removed
}

// Filenames lists the photo filenames in order.
func (e Event) Filenames() []string {
	out := make([]string, 0, len(e.Photos))
	for _, p := range e.Photos {
		out = append(out, p.Filename)
	}
	return out
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate interprets raw as a calendar day using the accepted layouts.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// CanonicalDate rewrites raw in YYYY-MM-DD form, leaving unparseable input as is.
func CanonicalDate(raw string) string {
	if day, ok := ParseDate(raw); ok {
		return day.Format(DateLayout)
	}
	return strings.TrimSpace(raw)
}
