package models

import "time"

// ChangeKind names the mutation that produced a ChangeNotice.
type ChangeKind string

const (
	ChangeCreated       ChangeKind = "created"
	ChangeUpdated       ChangeKind = "updated"
	ChangeDeleted       ChangeKind = "deleted"
	ChangePhotosAdded   ChangeKind = "photos_added"
	ChangePhotosDeleted ChangeKind = "photos_deleted"

	NoticeEventsChanged = "events.changed"
)

// ChangeNotice is pushed over the change stream after every successful mutation.
type ChangeNotice struct {
	Type    string     `json:"type"`
	EventID string     `json:"eventId"`
	Change  ChangeKind `json:"change"`
	At      time.Time  `json:"at"`
}

// NewChangeNotice stamps a notice for eventID.
func NewChangeNotice(eventID string, kind ChangeKind) ChangeNotice {
	return ChangeNotice{Type: NoticeEventsChanged, EventID: eventID, Change: kind, At: time.Now().UTC()}
}
