package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media is an uploaded image, video or audio file.
type Media struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FileURL      string    `gorm:"not null" json:"file_url"`
	AltText      string    `gorm:"size:255" json:"alt_text"`
	FileType     string    `gorm:"size:100;not null" json:"file_type"`
	EmbeddedText *string   `gorm:"type:text" json:"embedded_text,omitempty"`
	UploaderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"uploader_id"`
	FileName     string    `gorm:"size:255" json:"file_name"`
	StoragePath  string    `gorm:"size:512" json:"storage_path"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	// Aggregated from likes by the feed queries.
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
}

func (Media) TableName() string { return "media" }

func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Category is the top-level MIME type: image, video, audio or other.
func (m *Media) Category() string {
	return MediaCategory(m.FileType)
}

// MediaCategory returns the part of a MIME type before the slash for the
// categories the grid knows how to render.
func MediaCategory(mimeType string) string {
	c, _, ok := strings.Cut(mimeType, "/")
	if !ok {
		return "other"
	}
	switch c {
	case "image", "video", "audio":
		return c
	}
	return "other"
}
