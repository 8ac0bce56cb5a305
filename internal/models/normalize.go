package models

import "strings"

// Normalize returns a copy of e in the single shape the rest of the code reads:
// canonical date, recognised type name, absolute photo URLs and derived filenames.
// It also primes the parsed-day cache so later Day calls do not write.
func (e Event) Normalize(mediaBase string) Event {
	out := e.Clone()
	out.ID = strings.TrimSpace(out.ID)
	out.Title = strings.TrimSpace(out.Title)
	out.Speaker = strings.TrimSpace(out.Speaker)
	out.Location = strings.TrimSpace(out.Location)
	out.YouTubeID = strings.TrimSpace(out.YouTubeID)
	out.Date = CanonicalDate(out.Date)
	if t, ok := ParseEventType(string(out.Type)); ok {
		out.Type = t
	}

	photos := make([]Photo, 0, len(out.Photos))
	seen := make(map[string]struct{}, len(out.Photos))
	for _, p := range out.Photos {
		p = p.Normalize(mediaBase)
		if p.Filename == "" {
			continue
		}
		if _, dup := seen[p.Filename]; dup {
			continue
		}
		seen[p.Filename] = struct{}{}
		photos = append(photos, p)
	}
	out.Photos = photos
	out.Day()
	return out
}

// Normalize resolves relative URLs against mediaBase and fills a missing filename.
func (p Photo) Normalize(mediaBase string) Photo {
	p.URL = ResolveURL(mediaBase, p.URL)
	p.ThumbnailURL = ResolveURL(mediaBase, p.ThumbnailURL)
	if p.Filename == "" {
		p.Filename = FilenameFromURL(p.URL)
	}
	return p
}

// NormalizeEvents normalizes every event, preserving order.
func NormalizeEvents(events []Event, mediaBase string) []Event {
	out := make([]Event, len(events))
	for i := range events {
		out[i] = events[i].Normalize(mediaBase)
	}
	return out
}

// NormalizePhotos normalizes photos without deduplicating them.
func NormalizePhotos(photos []Photo, mediaBase string) []Photo {
	out := make([]Photo, len(photos))
	for i := range photos {
		out[i] = photos[i].Normalize(mediaBase)
	}
	return out
}
