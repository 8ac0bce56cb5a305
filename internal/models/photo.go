package models

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"
)

// Photo is a stored image attached to an event, identified by filename.
type Photo struct {
	ID           string    `db:"id" json:"id,omitempty"`
	EventID      string    `db:"event_id" json:"-"`
	Filename     string    `db:"filename" json:"filename"`
	URL          string    `db:"url" json:"url"`
	ThumbnailURL string    `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	MIMEType     string    `db:"mime_type" json:"mimeType,omitempty"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes,omitempty"`
	Position     int       `db:"position" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"-"`
}

// UnmarshalJSON accepts either a photo object or a bare URL string.
func (p *Photo) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*p = Photo{URL: raw, Filename: FilenameFromURL(raw)}
		return nil
	}

	type plain Photo
	aux := struct {
		*plain
		LegacyID string `json:"_id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.LegacyID
	}
	if p.Filename == "" {
		p.Filename = FilenameFromURL(p.URL)
	}
	return nil
}

// FilenameFromURL returns the last path segment of raw, ignoring query strings.
func FilenameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	base := path.Base(raw)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// ResolveURL joins a relative photo reference onto base. Absolute URLs and
// data URIs are returned untouched.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	if u, err := url.Parse(ref); err == nil && (u.IsAbs() || strings.HasPrefix(ref, "//")) {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}
