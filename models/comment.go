package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID     uuid.UUID `gorm:"type:uuid;not null;index" json:"media_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	CommentText string    `gorm:"type:text;not null" json:"comment_text"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`

	AuthorEmail string `gorm:"->;-:migration" json:"author_email,omitempty"`

	Media *Media `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
