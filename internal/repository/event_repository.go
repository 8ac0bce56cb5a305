package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chapterhub/event-gallery/internal/models"
)

const (
	eventColumns = `id, title, speaker, to_char(event_date, 'YYYY-MM-DD') AS event_date, type, location, description, youtube_id, created_at, updated_at`
	photoColumns = `id, event_id, filename, url, thumbnail_url, mime_type, size_bytes, position, created_at`
)

// likeEscaper makes user search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// EventRepository persists events and their photos in PostgreSQL.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events matching filter, newest first, with photos attached.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, string(filter.Type))
	}
	if filter.From != "" {
		conditions = append(conditions, fmt.Sprintf("event_date >= $%d", len(args)+1))
		args = append(args, models.CanonicalDate(filter.From))
	}
	if filter.To != "" {
		conditions = append(conditions, fmt.Sprintf("event_date <= $%d", len(args)+1))
		args = append(args, models.CanonicalDate(filter.To))
	}
	if filter.Search != "" {
		search := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf(`(LOWER(title) LIKE $%d ESCAPE '\' OR LOWER(speaker) LIKE $%d ESCAPE '\' OR LOWER(location) LIKE $%d ESCAPE '\')`, n, n, n))
		args = append(args, search)
	}

	query := "SELECT " + eventColumns + " FROM events WHERE 1=1"
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY event_date DESC, created_at DESC"

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return []models.Event{}, nil
	}

	ids := make([]string, len(events))
	for i, evt := range events {
		ids[i] = evt.ID
	}
	photos, err := r.photosFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Photos = photos[events[i].ID]
		if events[i].Photos == nil {
			events[i].Photos = []models.Photo{}
		}
	}
	return events, nil
}

// FindByID fetches one event with its photos. Missing events yield sql.ErrNoRows.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE id = $1"
	var evt models.Event
	if err := r.db.GetContext(ctx, &evt, query, id); err != nil {
		return nil, err
	}
	photos, err := r.photosFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	evt.Photos = photos[id]
	if evt.Photos == nil {
		evt.Photos = []models.Photo{}
	}
	return &evt, nil
}

// Exists reports whether id is taken.
func (r *EventRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM events WHERE id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check event id: %w", err)
	}
	return true, nil
}

// Create inserts evt and its photos in one transaction.
func (r *EventRepository) Create(ctx context.Context, evt *models.Event) error {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	evt.CreatedAt = now
	evt.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO events (id, title, speaker, event_date, type, location, description, youtube_id, created_at, updated_at)
		VALUES (:id, :title, :speaker, :event_date, :type, :location, :description, :youtube_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, evt); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	added, err := insertPhotos(ctx, tx, evt.ID, 0, evt.Photos)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create event: %w", err)
	}
	evt.Photos = added
	return nil
}

// UpdateWithPhotos rewrites the scalar fields of evt and appends photos in
// one transaction. Missing events yield sql.ErrNoRows; nothing is written.
func (r *EventRepository) UpdateWithPhotos(ctx context.Context, evt *models.Event, photos []models.Photo) ([]models.Photo, error) {
	evt.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE events SET title = :title, speaker = :speaker, event_date = :event_date, type = :type,
		location = :location, description = :description, youtube_id = :youtube_id, updated_at = :updated_at WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, evt)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, sql.ErrNoRows
	}

	var added []models.Photo
	if len(photos) > 0 {
		var next int
		if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(position), -1) + 1 FROM event_photos WHERE event_id = $1", evt.ID); err != nil {
			return nil, fmt.Errorf("next photo position: %w", err)
		}
		if added, err = insertPhotos(ctx, tx, evt.ID, next, photos); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update event: %w", err)
	}
	return added, nil
}

// Delete removes an event; photo rows cascade. Missing events yield sql.ErrNoRows.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddPhotos appends photos after the current last position. Filenames already
// attached to the event are skipped; the stored photos are returned.
func (r *EventRepository) AddPhotos(ctx context.Context, eventID string, photos []models.Photo) ([]models.Photo, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add photos: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var next int
	if err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(position), -1) + 1 FROM event_photos WHERE event_id = $1", eventID); err != nil {
		return nil, fmt.Errorf("next photo position: %w", err)
	}
	added, err := insertPhotos(ctx, tx, eventID, next, photos)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE events SET updated_at = $2 WHERE id = $1", eventID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("touch event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add photos: %w", err)
	}
	return added, nil
}

// DeletePhotos removes the named photos and returns the rows that existed.
func (r *EventRepository) DeletePhotos(ctx context.Context, eventID string, filenames []string) ([]models.Photo, error) {
	query := "DELETE FROM event_photos WHERE event_id = $1 AND filename = ANY($2) RETURNING " + photoColumns
	var removed []models.Photo
	if err := r.db.SelectContext(ctx, &removed, query, eventID, pq.Array(filenames)); err != nil {
		return nil, fmt.Errorf("delete photos: %w", err)
	}
	return removed, nil
}

// UpdateThumbnail records the thumbnail URL generated for a photo.
func (r *EventRepository) UpdateThumbnail(ctx context.Context, photoID, thumbnailURL string) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE event_photos SET thumbnail_url = $2 WHERE id = $1", photoID, thumbnailURL); err != nil {
		return fmt.Errorf("update thumbnail: %w", err)
	}
	return nil
}

// StoredFilenames lists every photo filename still referenced by a row.
func (r *EventRepository) StoredFilenames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, "SELECT filename FROM event_photos"); err != nil {
		return nil, fmt.Errorf("list stored filenames: %w", err)
	}
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set, nil
}

// Ping checks database connectivity for readiness probes.
func (r *EventRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *EventRepository) photosFor(ctx context.Context, eventIDs []string) (map[string][]models.Photo, error) {
	query := "SELECT " + photoColumns + " FROM event_photos WHERE event_id = ANY($1) ORDER BY event_id, position"
	var rows []models.Photo
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(eventIDs)); err != nil {
		return nil, fmt.Errorf("list event photos: %w", err)
	}
	out := make(map[string][]models.Photo, len(eventIDs))
	for _, p := range rows {
		out[p.EventID] = append(out[p.EventID], p)
	}
	return out, nil
}

func insertPhotos(ctx context.Context, tx *sqlx.Tx, eventID string, start int, photos []models.Photo) ([]models.Photo, error) {
	const query = `INSERT INTO event_photos (id, event_id, filename, url, thumbnail_url, mime_type, size_bytes, position, created_at)
		VALUES (:id, :event_id, :filename, :url, :thumbnail_url, :mime_type, :size_bytes, :position, :created_at)
		ON CONFLICT (event_id, filename) DO NOTHING`
	added := make([]models.Photo, 0, len(photos))
	now := time.Now().UTC()
	pos := start
	for _, p := range photos {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.EventID = eventID
		p.Position = pos
		p.CreatedAt = now
		res, err := tx.NamedExecContext(ctx, query, p)
		if err != nil {
			return nil, fmt.Errorf("insert photo %s: %w", p.Filename, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}
		added = append(added, p)
		pos++
	}
	return added, nil
}
