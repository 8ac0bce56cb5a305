package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
	"github.com/chapterhub/event-gallery/pkg/storage"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func bytesUpload(name string, data []byte) PhotoUpload {
	return PhotoUpload{Filename: name, Size: int64(len(data)), Open: func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}}
}

func newTestPhotoService(t *testing.T, maxSize int64) (*PhotoService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewPhotoService(store, NewMetricsService(nil), nil, PhotoConfig{PublicPath: "/media", MaxFileSize: maxSize}), store
}

func TestPhotoServiceSaveStoresImages(t *testing.T) {
	svc, store := newTestPhotoService(t, 1<<20)

	photos, err := svc.Save(context.Background(), []PhotoUpload{bytesUpload("cover.png", pngBytes(t, 8, 8))})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.True(t, strings.HasSuffix(photos[0].Filename, ".png"))
	assert.Equal(t, "/media/"+photos[0].Filename, photos[0].URL)
	assert.Equal(t, "image/png", photos[0].MIMEType)
	assert.NotEmpty(t, photos[0].ID)

	_, err = os.Stat(filepath.Join(store.Dir(), photos[0].Filename))
	require.NoError(t, err)
}

func TestPhotoServiceRejectsNonImages(t *testing.T) {
	svc, store := newTestPhotoService(t, 1<<20)

	_, err := svc.Save(context.Background(), []PhotoUpload{
		bytesUpload("ok.png", pngBytes(t, 4, 4)),
		bytesUpload("notes.txt", []byte("plain text, not a photo")),
	})
	require.ErrorIs(t, err, appErrors.ErrUnsupportedMIME)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "partially saved uploads are rolled back")
}

func TestPhotoServiceRejectsOversizedUploads(t *testing.T) {
	svc, _ := newTestPhotoService(t, 16)

	_, err := svc.Save(context.Background(), []PhotoUpload{bytesUpload("big.png", pngBytes(t, 8, 8))})
	require.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)

	under := bytesUpload("lying.png", pngBytes(t, 8, 8))
	under.Size = 1
	_, err = svc.Save(context.Background(), []PhotoUpload{under})
	require.ErrorIs(t, err, appErrors.ErrPayloadTooLarge)
}

func TestThumbnailServiceRendersAndRecords(t *testing.T) {
	svc, store := newTestPhotoService(t, 1<<20)
	photos, err := svc.Save(context.Background(), []PhotoUpload{bytesUpload("wide.png", pngBytes(t, 120, 40))})
	require.NoError(t, err)

	repo := &thumbRepoStub{done: make(chan string, 1)}
	thumbs := NewThumbnailService(store, repo, nil, nil, ThumbnailConfig{Width: 60, Height: 60}, nil)

	name, err := thumbs.Render(photos[0])
	require.NoError(t, err)
	assert.Equal(t, ThumbnailName(photos[0].Filename), name)

	f, err := store.Open(name)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 60, cfg.Width)
	assert.Equal(t, 20, cfg.Height)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	thumbs.Start(ctx)
	defer thumbs.Stop()
	thumbs.Schedule(ctx, photos)

	select {
	case url := <-repo.done:
		assert.Equal(t, "/media/"+name, url)
	case <-time.After(2 * time.Second):
		t.Fatal("thumbnail job did not run")
	}
}

type thumbRepoStub struct{ done chan string }

func (r *thumbRepoStub) UpdateThumbnail(ctx context.Context, photoID, url string) error {
	r.done <- url
	return nil
}

type filenamesStub map[string]struct{}

func (f filenamesStub) StoredFilenames(context.Context) (map[string]struct{}, error) {
	return f, nil
}

func TestSweepServiceKeepsReferencedFilesAndThumbnails(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	for _, name := range []string{"keep.png", ThumbnailName("keep.png"), "orphan.png", ThumbnailName("orphan.png")} {
		_, err := store.SaveStream(name, strings.NewReader("x"))
		require.NoError(t, err)
		old := time.Now().Add(-3 * time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(name)), old, old))
	}

	sweeper := NewSweepService(store, filenamesStub{"keep.png": {}}, nil, nil, "", time.Hour)
	removed, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"orphan.png", "thumbs/orphan.jpg"}, removed)
	require.NoError(t, sweeper.Start(context.Background()))
	sweeper.Stop()
}

func TestSweepServiceRejectsBadSchedule(t *testing.T) {
	sweeper := NewSweepService(nil, filenamesStub{}, nil, nil, "every tuesday", time.Hour)
	require.Error(t, sweeper.Start(context.Background()))
}

func TestThumbnailName(t *testing.T) {
	assert.Equal(t, "thumbs/abc.jpg", ThumbnailName("abc.webp"))
	assert.Equal(t, "thumbs/abc.jpg", ThumbnailName("abc"))
}

var _ PhotoStore = (*PhotoService)(nil)
var _ ThumbnailScheduler = (*ThumbnailService)(nil)
