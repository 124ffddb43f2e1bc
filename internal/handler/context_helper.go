package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/middleware"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/service"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

func currentUserID(c *gin.Context) (int64, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return 0, appErrors.ErrUnauthorized
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, ok := dto.ParseID(c.Param(name))
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

// documentUploads collects the first file sent for each document slot.
func documentUploads(c *gin.Context) ([]service.DocumentUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multipart payload")
	}

	uploads := make([]service.DocumentUpload, 0, len(form.File))
	for _, key := range models.DocumentKeys {
		files := form.File[string(key)]
		if len(files) == 0 {
			continue
		}
		header := files[0]
		uploads = append(uploads, service.DocumentUpload{
			Key:      key,
			Filename: header.Filename,
			Size:     header.Size,
			Open:     func() (io.ReadCloser, error) { return header.Open() },
		})
	}
	return uploads, nil
}

// singleUpload returns the file under field, or nil when none was sent.
func singleUpload(c *gin.Context, field string) (*service.DocumentUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload")
	}
	return &service.DocumentUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Open:     func() (io.ReadCloser, error) { return header.Open() },
	}, nil
}
