package models

// EventFilter narrows server-side event listings.
type EventFilter struct {
	Type   EventType `form:"type"`
	From   string    `form:"from" validate:"omitempty,calendar_date"`
	To     string    `form:"to" validate:"omitempty,calendar_date"`
	Search string    `form:"search" validate:"max=100"`
}

// CacheKey renders the filter as a stable cache key suffix.
func (f EventFilter) CacheKey() string {
	return "type=" + f.Type.Slug() + "|from=" + CanonicalDate(f.From) + "|to=" + CanonicalDate(f.To) + "|q=" + f.Search
}
