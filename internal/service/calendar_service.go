package service

import (
	"context"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
)

// EventLister is the read side shared by the feed and export services.
type EventLister interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
}

// CalendarConfig names the published calendar.
type CalendarConfig struct {
	Name      string
	ProductID string
	UIDDomain string
}

// CalendarService publishes the event catalogue as an iCalendar feed of
// all-day events.
type CalendarService struct {
	events EventLister
	logger *zap.Logger
	cfg    CalendarConfig
	now    func() time.Time
}

// NewCalendarService constructs a CalendarService.
func NewCalendarService(events EventLister, logger *zap.Logger, cfg CalendarConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "Chapter Events"
	}
	if cfg.ProductID == "" {
		cfg.ProductID = "-//chapterhub//event-gallery//EN"
	}
	if cfg.UIDDomain == "" {
		cfg.UIDDomain = "event-gallery"
	}
	return &CalendarService{events: events, logger: logger, cfg: cfg, now: time.Now}
}

// Feed renders every event matching filter. Events without a parseable date are skipped.
func (s *CalendarService) Feed(ctx context.Context, filter models.EventFilter) ([]byte, error) {
	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(s.cfg.ProductID)
	cal.SetXWRCalName(s.cfg.Name)
	stamp := s.now().UTC()

	skipped := 0
	for _, evt := range events {
		day, ok := evt.Day()
		if !ok {
			skipped++
			continue
		}
		vevent := cal.AddEvent(evt.ID + "@" + s.cfg.UIDDomain)
		vevent.SetDtStampTime(stamp)
		vevent.SetAllDayStartAt(day)
		vevent.SetAllDayEndAt(day.AddDate(0, 0, 1))
		vevent.SetSummary(evt.Title)
		if evt.Location != "" {
			vevent.SetLocation(evt.Location)
		}
		if desc := feedDescription(evt); desc != "" {
			vevent.SetDescription(desc)
		}
		if evt.HasVideo() {
			vevent.SetURL(evt.WatchURL())
		}
		vevent.AddProperty(ical.ComponentPropertyCategories, string(evt.Type))
		if !evt.UpdatedAt.IsZero() {
			vevent.SetModifiedAt(evt.UpdatedAt.UTC())
		}
	}
	if skipped > 0 {
		s.logger.Debug("undated events left out of calendar feed", zap.Int("count", skipped))
	}
	return []byte(cal.Serialize()), nil
}

func feedDescription(evt models.Event) string {
	parts := make([]string, 0, 3)
	if evt.Speaker != "" {
		parts = append(parts, "Speaker: "+evt.Speaker)
	}
	if evt.Description != "" {
		parts = append(parts, evt.Description)
	}
	if evt.HasVideo() {
		parts = append(parts, "Video: "+evt.WatchURL())
	}
	return strings.Join(parts, "\n\n")
}
