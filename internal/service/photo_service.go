package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

// Upload outcomes recorded by MetricsService.RecordUpload.
const (
	UploadAccepted = "accepted"
	UploadRejected = "rejected"
	UploadFailed   = "failed"

	thumbnailDir = "thumbs"
	sniffLen     = 512
)

var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// PhotoUpload is one file received from a multipart request.
type PhotoUpload struct {
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

type photoStorage interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Delete(name string) error
}

// PhotoConfig bounds accepted uploads.
type PhotoConfig struct {
	PublicPath   string
	MaxFileSize  int64
	AllowedMIMEs []string
}

// PhotoService validates uploaded images and writes them to storage under
// generated unique filenames.
type PhotoService struct {
	storage photoStorage
	metrics *MetricsService
	logger  *zap.Logger
	cfg     PhotoConfig
	allowed map[string]struct{}
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(storage photoStorage, metrics *MetricsService, logger *zap.Logger, cfg PhotoConfig) *PhotoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = "/media"
	}
	if len(cfg.AllowedMIMEs) == 0 {
		for mime := range mimeExtensions {
			cfg.AllowedMIMEs = append(cfg.AllowedMIMEs, mime)
		}
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mime := range cfg.AllowedMIMEs {
		allowed[strings.ToLower(mime)] = struct{}{}
	}
	return &PhotoService{storage: storage, metrics: metrics, logger: logger, cfg: cfg, allowed: allowed}
}

// Save stores every upload or none: on the first failure the files already
// written are removed again.
func (s *PhotoService) Save(ctx context.Context, uploads []PhotoUpload) ([]models.Photo, error) {
	saved := make([]models.Photo, 0, len(uploads))
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			s.Remove(saved)
			return nil, err
		}
		photo, err := s.saveOne(upload)
		if err != nil {
			s.Remove(saved)
			return nil, err
		}
		saved = append(saved, photo)
	}
	return saved, nil
}

func (s *PhotoService) saveOne(upload PhotoUpload) (models.Photo, error) {
	if s.cfg.MaxFileSize > 0 && upload.Size > s.cfg.MaxFileSize {
		s.metrics.RecordUpload(UploadRejected, upload.Size)
		return models.Photo{}, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("%s exceeds the %d byte limit", upload.Filename, s.cfg.MaxFileSize))
	}

	src, err := upload.Open()
	if err != nil {
		s.metrics.RecordUpload(UploadFailed, 0)
		return models.Photo{}, appErrors.Internal(err, "failed to read uploaded file")
	}
	defer src.Close() //nolint:errcheck

	reader := bufio.NewReaderSize(src, sniffLen)
	head, err := reader.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		s.metrics.RecordUpload(UploadFailed, 0)
		return models.Photo{}, appErrors.Internal(err, "failed to read uploaded file")
	}
	mime := http.DetectContentType(head)
	ext, known := mimeExtensions[mime]
	if _, ok := s.allowed[mime]; !ok || !known {
		s.metrics.RecordUpload(UploadRejected, upload.Size)
		return models.Photo{}, appErrors.Clone(appErrors.ErrUnsupportedMIME,
			fmt.Sprintf("%s is %s, expected an image", upload.Filename, mime))
	}

	name := uuid.NewString() + ext
	var body io.Reader = reader
	if s.cfg.MaxFileSize > 0 {
		body = io.LimitReader(reader, s.cfg.MaxFileSize+1)
	}
	n, err := s.storage.SaveStream(name, body)
	if err != nil {
		s.metrics.RecordUpload(UploadFailed, 0)
		return models.Photo{}, appErrors.Internal(err, "failed to store photo")
	}
	if s.cfg.MaxFileSize > 0 && n > s.cfg.MaxFileSize {
		_ = s.storage.Delete(name)
		s.metrics.RecordUpload(UploadRejected, n)
		return models.Photo{}, appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("%s exceeds the %d byte limit", upload.Filename, s.cfg.MaxFileSize))
	}

	s.metrics.RecordUpload(UploadAccepted, n)
	s.logger.Debug("photo stored", zap.String("original", upload.Filename), zap.String("filename", name), zap.Int64("bytes", n))
	return models.Photo{
		ID:        uuid.NewString(),
		Filename:  name,
		URL:       s.URLFor(name),
		MIMEType:  mime,
		SizeBytes: n,
	}, nil
}

// Remove deletes the files behind photos and their thumbnails. Failures are logged.
func (s *PhotoService) Remove(photos []models.Photo) {
	for _, photo := range photos {
		for _, name := range []string{photo.Filename, ThumbnailName(photo.Filename)} {
			if err := s.storage.Delete(name); err != nil {
				s.logger.Warn("failed to delete photo file", zap.String("filename", name), zap.Error(err))
			}
		}
	}
}

// URLFor returns the public URL path for a stored file name.
func (s *PhotoService) URLFor(name string) string {
	return strings.TrimRight(s.cfg.PublicPath, "/") + "/" + name
}

// ThumbnailName maps a stored photo filename to its thumbnail file.
func ThumbnailName(filename string) string {
	return thumbnailDir + "/" + strings.TrimSuffix(filename, path.Ext(filename)) + ".jpg"
}
