package gallery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/client"
	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/pkg/config"
)

func newServiceWithServer(t *testing.T, h http.HandlerFunc) (*EventService, *Recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	api := client.New(config.ClientConfig{BaseURL: srv.URL + "/api/v1", MediaBaseURL: "http://media.local"}, nil)
	rec := &Recorder{}
	return NewEventService(api, rec, nil), rec
}

func TestListEventsNormalizes(t *testing.T) {
	svc, rec := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/events", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"_id":"e1","title":"Plant Tour","date":"March 3, 2024","type":"industry-visit","photos":["/media/a.jpg"]}]}`)
	})

	res := svc.ListEvents(context.Background())
	require.True(t, res.Success)
	require.Len(t, res.Data, 1)
	evt := res.Data[0]
	require.Equal(t, "e1", evt.ID)
	require.Equal(t, "2024-03-03", evt.Date)
	require.Equal(t, models.EventTypeIndustry, evt.Type)
	require.Equal(t, "http://media.local/media/a.jpg", evt.Photos[0].URL)
	require.Equal(t, "a.jpg", evt.Photos[0].Filename)
	require.Empty(t, rec.All(), "listing is silent")
}

func TestListEventsFailureReturnsEmptyData(t *testing.T) {
	svc, rec := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res := svc.ListEvents(context.Background())
	require.False(t, res.Success)
	require.NotNil(t, res.Data)
	require.Empty(t, res.Data)
	require.Equal(t, "Failed to fetch events", res.Message)

	last, ok := rec.Last()
	require.True(t, ok)
	require.Equal(t, LevelError, last.Level)
}

func TestCreateEventSendsMultipartAndNotifies(t *testing.T) {
	svc, rec := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Process Safety", r.FormValue("title"))
		require.Equal(t, "Workshop", r.FormValue("type"))
		require.Equal(t, "evt-9", r.FormValue("id"))
		require.Len(t, r.MultipartForm.File["photos"], 1)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"evt-9","title":"Process Safety","date":"2024-09-01","type":"Workshop","photos":[{"filename":"p.jpg","url":"/media/p.jpg"}]}}`)
	})

	res := svc.CreateEvent(context.Background(), EventPayload{
		ID:     "evt-9",
		Title:  "Process Safety",
		Date:   "2024-09-01",
		Type:   models.EventTypeWorkshop,
		Photos: []Upload{{Name: "p.jpg", Body: strings.NewReader("img")}},
	})
	require.True(t, res.Success)
	require.Equal(t, "evt-9", res.Data.ID)

	all := rec.All()
	require.Len(t, all, 2)
	require.Equal(t, LevelLoading, all[0].Level)
	require.Equal(t, LevelSuccess, all[1].Level)
	require.Equal(t, all[0].ID, all[1].ID)
}

func TestServerMessageWinsOverFallback(t *testing.T) {
	svc, rec := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"VALIDATION_ERROR","message":"at least one photo is required"}}`)
	})

	res := svc.CreateEvent(context.Background(), EventPayload{Title: "x"})
	require.False(t, res.Success)
	require.Nil(t, res.Data)
	require.Equal(t, "at least one photo is required", res.Message)
	last, _ := rec.Last()
	require.Equal(t, "at least one photo is required", last.Message)
}

func TestDeletePhotosSendsFilenames(t *testing.T) {
	svc, rec := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/api/v1/events/e1/photos", r.URL.Path)
		var body struct {
			Filenames []string `json:"filenames"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"a.jpg", "b.jpg"}, body.Filenames)
		_, _ = io.WriteString(w, `{"data":{"id":"e1","removed":["a.jpg","b.jpg"]}}`)
	})

	res := svc.DeletePhotos(context.Background(), "e1", []string{"a.jpg", "b.jpg"})
	require.True(t, res.Success)
	require.Equal(t, []string{"a.jpg", "b.jpg"}, res.Data.Removed)
	last, _ := rec.Last()
	require.Equal(t, "2 photo(s) deleted successfully!", last.Message)
}

func TestAddPhotosReturnsNewPhotos(t *testing.T) {
	svc, _ := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/events/e1/photos", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"newPhotos":[{"filename":"n.jpg","url":"/media/n.jpg"}]}}`)
	})

	res := svc.AddPhotos(context.Background(), "e1", []Upload{{Name: "n.jpg", Body: strings.NewReader("x")}})
	require.True(t, res.Success)
	require.Equal(t, "http://media.local/media/n.jpg", res.Data[0].URL)
}

func TestDeleteEventAck(t *testing.T) {
	svc, _ := newServiceWithServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/events/e%2F1", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"data":{"deleted":true}}`)
	})

	res := svc.DeleteEvent(context.Background(), "e/1")
	require.True(t, res.Success)
	require.True(t, res.Data.Deleted)
	require.Equal(t, "e/1", res.Data.ID)
}
