package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/uploads"
	"github.com/snap-point/gallery/utils"
)

// multipartOverhead is the room left for form fields and boundaries.
const multipartOverhead = 1 << 20

type UploadController struct {
	Uploads  *uploads.Service
	MaxBytes int64
}

func NewUploadController(svc *uploads.Service, maxBytes int64) *UploadController {
	if maxBytes <= 0 {
		maxBytes = uploads.DefaultMaxBytes
	}
	return &UploadController{Uploads: svc, MaxBytes: maxBytes}
}

// Upload accepts a multipart form with a "file" part plus optional
// "alt_text" and "embedded_text" fields.
func (uc *UploadController) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uc.MaxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, uploads.TooLarge(uc.MaxBytes))
			return
		}
		respondError(c, apperrors.Invalid("file", "Please select a file to upload."))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if err := uc.Uploads.Validate(header.Filename, contentType, header.Size); err != nil {
		respondError(c, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, apperrors.Invalid("file", "Please select a file to upload."))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, apperrors.Invalid("file", "The file could not be read."))
		return
	}

	media, err := uc.Uploads.Upload(c.Request.Context(), utils.GetSession(c), uploads.Request{
		File: uploads.File{
			Name:        header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Data:        data,
		},
		AltText:      c.PostForm("alt_text"),
		EmbeddedText: c.PostForm("embedded_text"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, StandardResponse{Success: true, Data: media, Message: "Upload complete"})
}
