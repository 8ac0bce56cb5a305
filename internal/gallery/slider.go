package gallery

import "github.com/chapterhub/event-gallery/internal/models"

// SlideKind distinguishes video from image slides.
type SlideKind string

const (
	SlideVideo SlideKind = "video"
	SlideImage SlideKind = "image"
)

// Slide is one page of the media slider. For video slides Content is the YouTube
// id and URL the embed URL; for images both hold the photo URL.
type Slide struct {
	Kind     SlideKind
	Content  string
	URL      string
	Filename string
}

// Slides lists the video first, when present, followed by one slide per photo.
func Slides(evt models.Event) []Slide {
	slides := make([]Slide, 0, len(evt.Photos)+1)
	if evt.HasVideo() {
		slides = append(slides, Slide{Kind: SlideVideo, Content: evt.YouTubeID, URL: evt.EmbedURL()})
	}
	for _, p := range evt.Photos {
		slides = append(slides, Slide{Kind: SlideImage, Content: p.URL, URL: p.URL, Filename: p.Filename})
	}
	return slides
}

// SlideIndexForPhoto maps a photo position onto the slide list, skipping the
// leading video slide.
func SlideIndexForPhoto(evt models.Event, photoIndex int) int {
	if evt.HasVideo() {
		return photoIndex + 1
	}
	return photoIndex
}

// Slider is a cursor over an event's slides.
type Slider struct {
	slides []Slide
	index  int
}

// NewSlider positions a slider at initial, clamped to the slide range.
func NewSlider(evt models.Event, initial int) *Slider {
	s := &Slider{slides: Slides(evt)}
	s.Go(initial)
	return s
}

// Slides returns the slides in order.
func (s *Slider) Slides() []Slide { return s.slides }

// Len is the number of slides.
func (s *Slider) Len() int { return len(s.slides) }

// ShowNavigation reports whether prev/next controls apply.
func (s *Slider) ShowNavigation() bool { return len(s.slides) > 1 }

// Index is the current position.
func (s *Slider) Index() int { return s.index }

// Current returns the slide under the cursor.
func (s *Slider) Current() (Slide, bool) {
	if len(s.slides) == 0 {
		return Slide{}, false
	}
	return s.slides[s.index], true
}

// Go jumps to i, clamped.
func (s *Slider) Go(i int) {
	switch {
	case len(s.slides) == 0 || i < 0:
		s.index = 0
	case i >= len(s.slides):
		s.index = len(s.slides) - 1
	default:
		s.index = i
	}
}

// Next advances, stopping at the last slide.
func (s *Slider) Next() bool {
	if s.index+1 >= len(s.slides) {
		return false
	}
	s.index++
	return true
}

// Prev steps back, stopping at the first slide.
func (s *Slider) Prev() bool {
	if s.index == 0 {
		return false
	}
	s.index--
	return true
}
