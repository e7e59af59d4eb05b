// Package comments backs the media detail overlay: one item plus its
// comments, oldest first, and comment submission.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

const MaxLength = 1000

type Store interface {
	GetMedia(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListComments(ctx context.Context, mediaID uuid.UUID) ([]models.Comment, error)
	InsertComment(ctx context.Context, c *models.Comment) error
}

// Detail is a media item with its comments. CommentsFailed is set when the
// item loaded but its comments could not be read.
type Detail struct {
	Media          models.Media     `json:"media"`
	Comments       []models.Comment `json:"comments"`
	CommentsFailed bool             `json:"comments_failed,omitempty"`
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Open loads the detail view of one item.
func (s *Service) Open(ctx context.Context, mediaID uuid.UUID) (*Detail, error) {
	media, err := s.store.GetMedia(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	d := &Detail{Media: *media}
	d.Comments, err = s.List(ctx, mediaID)
	if err != nil && !errors.Is(err, apperrors.ErrEmptyResult) {
		d.CommentsFailed = true
	}
	return d, nil
}

// List returns the comments of an item ordered by creation time. It never
// returns a nil slice; no comments is reported as ErrEmptyResult.
func (s *Service) List(ctx context.Context, mediaID uuid.UUID) ([]models.Comment, error) {
	list, err := s.store.ListComments(ctx, mediaID)
	if err != nil {
		return []models.Comment{}, fmt.Errorf("list comments: %w", err)
	}
	if len(list) == 0 {
		return []models.Comment{}, apperrors.ErrEmptyResult
	}
	return list, nil
}

// Submit adds a comment by author on an existing item. Validation runs
// before any write.
func (s *Service) Submit(ctx context.Context, mediaID uuid.UUID, author *session.Session, text string) (*models.Comment, error) {
	if author == nil || author.UserID == uuid.Nil {
		return nil, apperrors.ErrUnauthenticated
	}
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetMedia(ctx, mediaID); err != nil {
		return nil, fmt.Errorf("submit comment: %w", err)
	}

	c := &models.Comment{
		MediaID:     mediaID,
		UserID:      author.UserID,
		CommentText: text,
	}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, fmt.Errorf("submit comment: %w", err)
	}
	c.AuthorEmail = author.Email
	return c, nil
}

// ValidateText trims text and checks it is non-empty and within MaxLength.
func ValidateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperrors.Invalid("comment_text", "Comment cannot be empty.")
	}
	if utf8.RuneCountInString(text) > MaxLength {
		return "", apperrors.Invalid("comment_text", fmt.Sprintf("Comment must be at most %d characters.", MaxLength))
	}
	return text, nil
}
