package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

type listerStub struct {
	events []models.Event
	err    error
}

func (l listerStub) List(context.Context, models.EventFilter) ([]models.Event, error) {
	return l.events, l.err
}

func catalogue() []models.Event {
	return []models.Event{
		{ID: "e1", Title: "Keynote", Speaker: "Ada", Date: "2024-05-01", Type: models.EventTypeConference, Location: "Hall A", YouTubeID: "dQw4w9WgXcQ", Photos: []models.Photo{{Filename: "a.jpg"}}},
		{ID: "e2", Title: "Mystery", Date: "sometime", Type: models.EventTypeSeminar},
	}
}

func TestCalendarServiceFeed(t *testing.T) {
	svc := NewCalendarService(listerStub{events: catalogue()}, nil, CalendarConfig{})

	body, err := svc.Feed(context.Background(), models.EventFilter{})
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "e1@event-gallery", ev.Id())
	assert.Equal(t, "Keynote", ev.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Hall A", ev.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "20240501", ev.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Contains(t, ev.GetProperty(ical.ComponentPropertyDescription).Value, "Speaker: Ada")
	assert.True(t, strings.Contains(string(body), "X-WR-CALNAME:Chapter Events"))
}

func TestCalendarServicePropagatesListError(t *testing.T) {
	svc := NewCalendarService(listerStub{err: appErrors.ErrInternal}, nil, CalendarConfig{})
	_, err := svc.Feed(context.Background(), models.EventFilter{})
	require.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestExportServiceCSV(t *testing.T) {
	svc := NewExportService(listerStub{events: catalogue()}, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	file, err := svc.Export(context.Background(), "", models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, "events-20240601.csv", file.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Title,Speaker,Type,Location,Photos,Video", lines[0])
	assert.Equal(t, "2024-05-01,Keynote,Ada,Conference,Hall A,1,https://www.youtube.com/watch?v=dQw4w9WgXcQ", lines[1])
}

func TestExportServicePDF(t *testing.T) {
	svc := NewExportService(listerStub{events: catalogue()}, nil, nil, nil)

	file, err := svc.Export(context.Background(), ExportPDF, models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Body, []byte("%PDF-")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(listerStub{}, nil, nil, nil)
	_, err := svc.Export(context.Background(), "xlsx", models.EventFilter{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	require.False(t, errors.Is(err, appErrors.ErrInternal))
}
