package main

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/chapterhub/event-gallery/internal/gallery"
	"github.com/chapterhub/event-gallery/internal/models"
)

type seedFile struct {
	Events []seedEvent `yaml:"events"`
}

type seedEvent struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Speaker     string   `yaml:"speaker"`
	Date        string   `yaml:"date"`
	Type        string   `yaml:"type"`
	Location    string   `yaml:"location"`
	YouTubeID   string   `yaml:"youtubeId"`
	Description string   `yaml:"description"`
	Photos      []string `yaml:"photos"`
}

func parseSeed(r io.Reader) ([]seedEvent, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return file.Events, nil
}

func (e seedEvent) form() gallery.EventForm {
	return gallery.EventForm{
		ID:          e.ID,
		Title:       e.Title,
		Speaker:     e.Speaker,
		Date:        e.Date,
		Type:        e.Type,
		Location:    e.Location,
		YouTubeID:   e.YouTubeID,
		Description: e.Description,
	}
}

// resolvePhotos makes relative photo paths relative to the seed file.
func (e seedEvent) resolvePhotos(base string) []string {
	out := make([]string, len(e.Photos))
	for i, p := range e.Photos {
		if filepath.IsAbs(p) {
			out[i] = p
			continue
		}
		out[i] = filepath.Join(base, p)
	}
	return out
}

func renderEvents(w io.Writer, events []models.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tTITLE\tSPEAKER\tPHOTOS\tVIDEO")
	for _, evt := range events {
		video := "-"
		if evt.HasVideo() {
			video = evt.WatchURL()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", models.CanonicalDate(evt.Date), evt.Type, evt.Title, evt.Speaker, len(evt.Photos), video)
	}
	return tw.Flush()
}
