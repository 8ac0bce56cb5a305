package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chapterhub/event-gallery/internal/middleware"
	"github.com/chapterhub/event-gallery/internal/models"
	"github.com/chapterhub/event-gallery/internal/service"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorName(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil && claims.Name != "" {
		return claims.Name
	}
	return "anonymous"
}

// photoUploads collects the files posted under "photos" (or "photos[]").
// Requests that are not multipart carry no photos.
func photoUploads(c *gin.Context) ([]service.PhotoUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, "request body too large")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart body")
	}

	plain, indexed := form.File["photos"], form.File["photos[]"]
	headers := make([]*multipart.FileHeader, 0, len(plain)+len(indexed))
	headers = append(headers, plain...)
	headers = append(headers, indexed...)
	uploads := make([]service.PhotoUpload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, service.PhotoUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads, nil
}
