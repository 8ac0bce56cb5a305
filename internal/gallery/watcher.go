package gallery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
)

// Refresher re-fetches the event collection.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// Watcher follows the server change stream and refreshes the store whenever an
// event changes, reconciling any provisional local patches.
type Watcher struct {
	URL      string
	Header   http.Header
	Store    Refresher
	Logger   *zap.Logger
	Dialer   *websocket.Dialer
	OnNotice func(models.ChangeNotice)

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Run keeps a connection open until ctx is cancelled, reconnecting with
// exponential backoff. It returns ctx.Err() on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	minBackoff, maxBackoff := w.MinBackoff, w.MaxBackoff
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}

	backoff := minBackoff
	for {
		connected, err := w.session(ctx, logger)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
		}
		logger.Warn("change stream disconnected", zap.Error(err), zap.Duration("retry_in", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
func (w *Watcher) session(ctx context.Context, logger *zap.Logger) (connected bool, err error) {
	dialer := w.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, w.URL, w.Header)
	if err != nil {
		return false, err
	}
	defer conn.Close() //nolint:errcheck
	logger.Info("change stream connected", zap.String("url", w.URL))

	// Refresh once on connect so changes missed while disconnected are picked up.
	if w.Store != nil {
		w.Store.Refresh(ctx)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		var notice models.ChangeNotice
		if err := conn.ReadJSON(&notice); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, errors.New("server closed stream")
			}
			return true, err
		}
		if notice.Type != models.NoticeEventsChanged {
			continue
		}
		logger.Debug("change notice", zap.String("event_id", notice.EventID), zap.String("change", string(notice.Change)))
		if w.OnNotice != nil {
			w.OnNotice(notice)
		}
		if w.Store != nil {
			w.Store.Refresh(ctx)
		}
	}
}
