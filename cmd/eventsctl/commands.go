package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/gallery"
	"github.com/chapterhub/event-gallery/internal/models"
)

// stringList collects a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (a *app) loadStore(ctx context.Context) (gallery.Snapshot, error) {
	store := gallery.NewStore(a.events, gallery.WithStoreLogger(a.logger))
	store.Fetch(ctx, true)
	snap := store.Snapshot()
	if snap.Error != "" {
		return snap, errors.New(snap.Error)
	}
	return snap, nil
}

func (a *app) list(ctx context.Context, args []string) error {
	view := "all"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		view, args = args[0], args[1:]
	}
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	category := fs.String("category", models.CategoryAll, "event type name or slug")
	search := fs.String("search", "", "match title, speaker or location")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, err := a.loadStore(ctx)
	if err != nil {
		return err
	}
	events, err := selectView(snap, view)
	if err != nil {
		return err
	}
	events = gallery.Filter(events, gallery.Criteria{Category: *category, Search: *search})
	return renderEvents(a.stdout, events)
}

func selectView(snap gallery.Snapshot, view string) ([]models.Event, error) {
	switch view {
	case "all":
		return snap.Events, nil
	case "upcoming":
		return snap.Upcoming, nil
	case "past":
		return snap.Past, nil
	case "highlights":
		return snap.Highlights, nil
	default:
		return nil, fmt.Errorf("unknown view %q", view)
	}
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	var form gallery.EventForm
	var photos stringList
	fs.StringVar(&form.ID, "id", "", "event id (generated when empty)")
	fs.StringVar(&form.Title, "title", "", "title")
	fs.StringVar(&form.Speaker, "speaker", "", "speaker")
	fs.StringVar(&form.Date, "date", "", "date, e.g. 2024-05-01")
	fs.StringVar(&form.Type, "type", "", "event type")
	fs.StringVar(&form.Location, "location", "", "location")
	fs.StringVar(&form.YouTubeID, "youtube", "", "YouTube video id")
	fs.StringVar(&form.Description, "description", "", "description")
	fs.Var(&photos, "photo", "photo file (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	uploads, closeAll, err := openUploads(photos)
	if err != nil {
		return err
	}
	defer closeAll()
	form.Photos = uploads

	evt, err := a.submit(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "created %s (%d photos)\n", evt.ID, len(evt.Photos))
	return nil
}

func (a *app) submit(ctx context.Context, form gallery.EventForm) (*models.Event, error) {
	if errs := form.Validate(gallery.FormCreate); errs != nil {
		return nil, errs
	}
	res := a.events.CreateEvent(ctx, form.Payload())
	if !res.Success {
		return nil, errors.New(res.Message)
	}
	return res.Data, nil
}

func (a *app) seed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	path := fs.String("f", "events.yaml", "seed file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	file, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	entries, err := parseSeed(file)
	if err != nil {
		return err
	}

	base := filepath.Dir(*path)
	created := 0
	for i, entry := range entries {
		form := entry.form()
		uploads, closeAll, err := openUploads(entry.resolvePhotos(base))
		if err != nil {
			return fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		form.Photos = uploads
		evt, err := a.submit(ctx, form)
		closeAll()
		if err != nil {
			a.logger.Warn("seed entry skipped", zap.Int("entry", i+1), zap.String("title", entry.Title), zap.Error(err))
			continue
		}
		created++
		fmt.Fprintf(a.stdout, "created %s %q\n", evt.ID, evt.Title)
	}
	fmt.Fprintf(a.stdout, "%d of %d events created\n", created, len(entries))
	return nil
}

func (a *app) deleteEvent(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("delete takes exactly one event id")
	}
	res := a.events.DeleteEvent(ctx, args[0])
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintf(a.stdout, "deleted %s\n", args[0])
	return nil
}

func (a *app) addPhotos(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("add-photos needs an event id and at least one file")
	}
	uploads, closeAll, err := openUploads(args[1:])
	if err != nil {
		return err
	}
	defer closeAll()

	res := a.events.AddPhotos(ctx, args[0], uploads)
	if !res.Success {
		return errors.New(res.Message)
	}
	for _, p := range res.Data {
		fmt.Fprintln(a.stdout, p.URL)
	}
	return nil
}

func (a *app) deletePhotos(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-photos", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("delete-photos needs an event id and at least one filename")
	}
	eventID, filenames := fs.Arg(0), fs.Args()[1:]

	snap, err := a.loadStore(ctx)
	if err != nil {
		return err
	}
	evt, ok := snap.Event(eventID)
	if !ok {
		return fmt.Errorf("event %s not found", eventID)
	}

	grid := gallery.NewPhotoGrid(eventID, evt.Photos, a.events, nil)
	for _, name := range filenames {
		if !grid.IsSelected(name) {
			grid.Toggle(name)
		}
	}

	var confirm gallery.Confirmer = gallery.AlwaysConfirm
	if !*yes {
		confirm = promptConfirmer(a.stdin, a.stdout)
	}
	res, err := grid.DeleteSelected(ctx, confirm)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintf(a.stdout, "removed %d photo(s), %d left\n", len(res.Data.Removed), len(grid.Photos()))
	return nil
}

func (a *app) watch(ctx context.Context, _ []string) error {
	store := gallery.NewStore(a.events, gallery.WithStoreLogger(a.logger))
	unsubscribe := store.Subscribe(func(s gallery.Snapshot) {
		if s.Loading {
			return
		}
		fmt.Fprintf(a.stdout, "events=%d upcoming=%d past=%d highlights=%d\n", len(s.Events), len(s.Upcoming), len(s.Past), len(s.Highlights))
	})
	defer unsubscribe()

	watcher := &gallery.Watcher{
		URL:    a.api.StreamURL("/events/stream"),
		Header: a.api.AuthHeader(),
		Store:  store,
		Logger: a.logger,
		OnNotice: func(n models.ChangeNotice) {
			fmt.Fprintf(a.stdout, "%s %s %s\n", n.At.Format("15:04:05"), n.Change, n.EventID)
		},
	}
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func promptConfirmer(in io.Reader, out io.Writer) gallery.Confirmer {
	reader := bufio.NewReader(in)
	return gallery.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, _ := reader.ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func openUploads(paths []string) ([]gallery.Upload, func(), error) {
	files := make([]*os.File, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]gallery.Upload, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("open photo: %w", err)
		}
		files = append(files, f)
		uploads = append(uploads, gallery.Upload{Name: filepath.Base(path), Body: f})
	}
	return uploads, closeAll, nil
}
