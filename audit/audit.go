// Package audit writes and reads the append-only action log.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/snap-point/gallery/feed"
	"github.com/snap-point/gallery/models"
)

// PageSize is the number of entries on one page of the logs viewer.
const PageSize = 25

type Store interface {
	InsertLog(ctx context.Context, entry *models.LogEntry) error
	ListLogs(ctx context.Context, from, to int) ([]models.LogEntry, int64, error)
}

// Details is the free-form payload of an entry.
type Details map[string]interface{}

type Recorder struct {
	store Store
	log   *zap.Logger
}

func NewRecorder(store Store, log *zap.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record appends an entry. Failures are logged and never reach the caller;
// the action being audited has already happened.
func (r *Recorder) Record(ctx context.Context, action string, actor uuid.UUID, details Details) {
	entry := &models.LogEntry{Action: action}
	if actor != uuid.Nil {
		entry.UserID = &actor
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			r.log.Warn("audit details not encodable", zap.String("action", action), zap.Error(err))
		} else {
			entry.Details = datatypes.JSON(raw)
		}
	}

	if err := r.store.InsertLog(ctx, entry); err != nil {
		r.log.Error("audit entry not written",
			zap.String("action", action),
			zap.String("user_id", actor.String()),
			zap.Error(err),
		)
	}
}

// Page is one page of the logs viewer.
type Page struct {
	Entries    []models.LogEntry `json:"entries"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// List returns a 1-indexed page of entries, newest first.
func (r *Recorder) List(ctx context.Context, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	rng := feed.PageRange(page, PageSize)
	entries, total, err := r.store.ListLogs(ctx, rng.From, rng.To)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return &Page{
		Entries:    entries,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: int((total + PageSize - 1) / PageSize),
	}, nil
}
