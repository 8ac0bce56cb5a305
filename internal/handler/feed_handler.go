package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/dto"
	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/internal/service"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
	"github.com/chapterhub/event-gallery/pkg/response"
)

type exporter interface {
	Export(ctx context.Context, format string, filter models.EventFilter) (*service.ExportFile, error)
}

type calendarFeed interface {
	Feed(ctx context.Context, filter models.EventFilter) ([]byte, error)
}

type changeStream interface {
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// FeedHandler serves the read-only derived views of the catalogue.
type FeedHandler struct {
	exports  exporter
	calendar calendarFeed
	stream   changeStream
	logger   *zap.Logger
}

// NewFeedHandler constructs a FeedHandler.
func NewFeedHandler(exports exporter, calendar calendarFeed, stream changeStream, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{exports: exports, calendar: calendar, stream: stream, logger: logger}
}

// Export godoc
// @Summary Export event catalogue
// @Tags Events
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Router /events/export [get]
func (h *FeedHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	if query.Format == "" {
		query.Format = service.ExportCSV
	}
	file, err := h.exports.Export(c.Request.Context(), query.Format, query.EventFilter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Body)
}

// Calendar godoc
// @Summary iCalendar feed of events
// @Tags Events
// @Produce text/calendar
// @Param type query string false "Event type"
// @Success 200 {file} file
// @Router /events/calendar.ics [get]
func (h *FeedHandler) Calendar(c *gin.Context) {
	var filter models.EventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters"))
		return
	}
	body, err := h.calendar.Feed(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", body)
}

// Stream godoc
// @Summary Websocket feed of catalogue changes
// @Tags Events
// @Success 101
// @Router /events/stream [get]
func (h *FeedHandler) Stream(c *gin.Context) {
	if err := h.stream.ServeWS(c.Writer, c.Request); err != nil {
		h.logger.Debug("change stream upgrade failed", zap.Error(err))
	}
}
