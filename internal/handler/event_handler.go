package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/dto"
	"github.com/chapterhub/event-gallery/internal/middleware"
	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/internal/service"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
	"github.com/chapterhub/event-gallery/pkg/response"
)

type eventService interface {
	ListCached(ctx context.Context, filter models.EventFilter) ([]models.Event, bool, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, req dto.EventRequest, uploads []service.PhotoUpload) (*models.Event, error)
	Update(ctx context.Context, id string, req dto.EventRequest, uploads []service.PhotoUpload) (*models.Event, error)
	Delete(ctx context.Context, id string) error
	AddPhotos(ctx context.Context, id string, uploads []service.PhotoUpload) ([]models.Photo, error)
	DeletePhotos(ctx context.Context, id string, req dto.DeletePhotosRequest) ([]string, error)
}

// EventHandler exposes the event gallery endpoints.
type EventHandler struct {
	events eventService
	logger *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events eventService, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{events: events, logger: logger}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param type query string false "Event type (label or slug)"
// @Param from query string false "Earliest date (YYYY-MM-DD)"
// @Param to query string false "Latest date (YYYY-MM-DD)"
// @Param search query string false "Matches title, speaker or location"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	events, hit, err := h.events.ListCached(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	meta := middleware.Meta(c)
	meta["count"] = len(events)
	response.JSON(c, http.StatusOK, events, meta)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	evt, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evt)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param speaker formData string true "Speaker"
// @Param date formData string true "Event date"
// @Param type formData string true "Event type"
// @Param location formData string false "Location"
// @Param youtubeId formData string false "YouTube video id"
// @Param description formData string false "Description"
// @Param photos formData file true "Photos"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload"))
		return
	}
	uploads, err := photoUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	evt, err := h.events.Create(c.Request.Context(), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("event created", zap.String("event_id", evt.ID), zap.Int("photos", len(evt.Photos)), zap.String("actor", actorName(c)))
	response.Created(c, evt)
}

// Update godoc
// @Summary Update event
// @Description Replaces the event fields; uploaded photos are appended.
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload"))
		return
	}
	uploads, err := photoUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	evt, err := h.events.Update(c.Request.Context(), c.Param("id"), req, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evt)
}

// Delete godoc
// @Summary Delete event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.events.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c, dto.DeleteEventResponse{ID: id, Deleted: true}, "event deleted")
}

// AddPhotos godoc
// @Summary Append photos to an event
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Event ID"
// @Param photos formData file true "Photos"
// @Success 201 {object} response.Envelope
// @Router /events/{id}/photos [post]
func (h *EventHandler) AddPhotos(c *gin.Context) {
	uploads, err := photoUploads(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	added, err := h.events.AddPhotos(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.AddPhotosResponse{NewPhotos: added})
}

// DeletePhotos godoc
// @Summary Remove photos from an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.DeletePhotosRequest true "Filenames to remove"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/photos [delete]
func (h *EventHandler) DeletePhotos(c *gin.Context) {
	var req dto.DeletePhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request body"))
		return
	}
	id := c.Param("id")
	removed, err := h.events.DeletePhotos(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c, dto.DeletePhotosResponse{ID: id, Removed: removed}, "photos removed")
}
