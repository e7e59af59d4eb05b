// Package uploads stores a media file and records it in the media table.
package uploads

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/audit"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

const DefaultMaxBytes = 5 << 20

// Accept lists the MIME families the upload form offers.
const Accept = "image/*,video/*,audio/*"

var folders = map[string]string{
	"image": "images",
	"video": "videos",
	"audio": "audio",
}

var (
	unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	nonAltChars     = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
)

type Storage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Remove(ctx context.Context, path string) error
	PublicURL(path string) string
}

type MediaStore interface {
	InsertMedia(ctx context.Context, m *models.Media) error
}

type Auditor interface {
	Record(ctx context.Context, action string, actor uuid.UUID, details audit.Details)
}

// File is an uploaded file as received from the form.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type Request struct {
	File         File
	AltText      string
	EmbeddedText string
}

type Service struct {
	storage  Storage
	media    MediaStore
	audit    Auditor
	log      *zap.Logger
	maxBytes int64
	now      func() time.Time
}

func NewService(storage Storage, media MediaStore, auditor Auditor, maxBytes int64, log *zap.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		storage:  storage,
		media:    media,
		audit:    auditor,
		log:      log,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Validate checks what the form declared about a file. It needs no network.
func (s *Service) Validate(name, contentType string, size int64) error {
	if name == "" || size == 0 {
		return apperrors.Invalid("file", "Please select a file to upload.")
	}
	if _, ok := folders[models.MediaCategory(contentType)]; !ok {
		return apperrors.Invalid("file", "Only image, video and audio files can be uploaded.")
	}
	if size > s.maxBytes {
		return TooLarge(s.maxBytes)
	}
	return nil
}

// TooLarge is the validation error for a file over maxBytes.
func TooLarge(maxBytes int64) error {
	return apperrors.Invalid("file", fmt.Sprintf("File is too large (max %d MB).", maxBytes>>20))
}

// Upload stores the file of req and records it as uploaded by uploader.
func (s *Service) Upload(ctx context.Context, uploader *session.Session, req Request) (*models.Media, error) {
	if uploader == nil || uploader.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthenticated
	}
	f := req.File
	if err := s.Validate(f.Name, f.ContentType, f.Size); err != nil {
		return nil, err
	}
	detected := mimetype.Detect(f.Data)
	if !compatible(models.MediaCategory(f.ContentType), detected) {
		return nil, apperrors.Invalid("file", "File content does not match its type.")
	}

	base, ext := splitName(f.Name)
	if ext == "" {
		ext = detected.Extension()
	}
	path := s.path(f.ContentType, base, ext)

	if err := s.storage.Upload(ctx, path, f.Data, f.ContentType); err != nil {
		s.audit.Record(ctx, models.ActionUploadFailureStorage, uploader.UserID, audit.Details{
			"file_name": f.Name,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}

	media := &models.Media{
		FileURL:     s.storage.PublicURL(path),
		AltText:     altText(req.AltText, base),
		FileType:    f.ContentType,
		UploaderID:  uploader.UserID,
		FileName:    f.Name,
		StoragePath: path,
	}
	if text := strings.TrimSpace(req.EmbeddedText); text != "" {
		media.EmbeddedText = &text
	}

	if err := s.media.InsertMedia(ctx, media); err != nil {
		if rmErr := s.storage.Remove(ctx, path); rmErr != nil {
			s.log.Warn("orphaned upload not removed", zap.String("path", path), zap.Error(rmErr))
		}
		s.audit.Record(ctx, models.ActionUploadFailureDB, uploader.UserID, audit.Details{
			"file_name": f.Name,
			"error":     err.Error(),
		})
		return nil, fmt.Errorf("record %s: %w", f.Name, err)
	}

	s.audit.Record(ctx, models.ActionUploadSuccess, uploader.UserID, audit.Details{
		"media_id":  media.ID.String(),
		"file_name": media.FileName,
	})
	return media, nil
}

// path is <folder>/<unix ms>_<8 hex>_<base><ext>.
func (s *Service) path(contentType, base, ext string) string {
	folder := folders[models.MediaCategory(contentType)]
	if base = strings.Trim(unsafePathChars.ReplaceAllString(base, "_"), "_"); base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s/%d_%s_%s%s", folder, s.now().UnixMilli(), uuid.NewString()[:8], base, strings.ToLower(ext))
}

// compatible accepts unknown content and treats audio and video containers
// as interchangeable.
func compatible(declared string, detected *mimetype.MIME) bool {
	if detected.Is("application/octet-stream") {
		return true
	}
	got := models.MediaCategory(detected.String())
	if got == declared {
		return true
	}
	av := func(c string) bool { return c == "audio" || c == "video" }
	return av(got) && av(declared)
}

func splitName(name string) (base, ext string) {
	name = filepath.Base(name)
	ext = filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func altText(given, base string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	return strings.TrimSpace(nonAltChars.ReplaceAllString(base, " "))
}
