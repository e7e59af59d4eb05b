package backend

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
)

const mediaWithLikeCount = "media.*, (SELECT COUNT(*) FROM likes WHERE likes.media_id = media.id) AS like_count"

// Tables runs the relational queries. Row ranges are half-open: from is the
// first row offset, to is one past the last.
type Tables struct {
	db *gorm.DB
}

func NewTables(db *gorm.DB) *Tables {
	return &Tables{db: db}
}

// ListMedia returns media newest first with their like counts.
func (t *Tables) ListMedia(ctx context.Context, from, to int) ([]models.Media, error) {
	if to <= from {
		return nil, nil
	}

	var items []models.Media
	err := t.db.WithContext(ctx).
		Model(&models.Media{}).
		Select(mediaWithLikeCount).
		Order("media.created_at DESC, media.id DESC").
		Offset(from).
		Limit(to - from).
		Find(&items).Error
	if err != nil {
		return nil, translate("list media", err)
	}
	return items, nil
}

// SearchMedia matches query against alt text, caption and file name.
func (t *Tables) SearchMedia(ctx context.Context, query string, from, to int) ([]models.Media, error) {
	if to <= from {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"

	var items []models.Media
	err := t.db.WithContext(ctx).
		Model(&models.Media{}).
		Select(mediaWithLikeCount).
		Where("media.alt_text ILIKE ? OR media.embedded_text ILIKE ? OR media.file_name ILIKE ?", pattern, pattern, pattern).
		Order("media.created_at DESC, media.id DESC").
		Offset(from).
		Limit(to - from).
		Find(&items).Error
	if err != nil {
		return nil, translate("search media", err)
	}
	return items, nil
}

func (t *Tables) GetMedia(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	err := t.db.WithContext(ctx).
		Model(&models.Media{}).
		Select(mediaWithLikeCount).
		Where("media.id = ?", id).
		Take(&m).Error
	if err != nil {
		return nil, translate("get media", err)
	}
	return &m, nil
}

func (t *Tables) InsertMedia(ctx context.Context, m *models.Media) error {
	return translate("insert media", t.db.WithContext(ctx).Create(m).Error)
}

// InsertLike fails with apperrors.ErrConflict when the pair already exists
// and apperrors.ErrNotFound when the media does not.
func (t *Tables) InsertLike(ctx context.Context, mediaID, userID uuid.UUID) error {
	like := models.Like{MediaID: mediaID, UserID: userID}
	return translate("insert like", t.db.WithContext(ctx).Create(&like).Error)
}

// DeleteLike reports whether a row was removed.
func (t *Tables) DeleteLike(ctx context.Context, mediaID, userID uuid.UUID) (bool, error) {
	res := t.db.WithContext(ctx).
		Where("media_id = ? AND user_id = ?", mediaID, userID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, translate("delete like", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (t *Tables) CountLikes(ctx context.Context, mediaID uuid.UUID) (int64, error) {
	var n int64
	err := t.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("media_id = ?", mediaID).
		Count(&n).Error
	if err != nil {
		return 0, translate("count likes", err)
	}
	return n, nil
}

func (t *Tables) HasLiked(ctx context.Context, mediaID, userID uuid.UUID) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("media_id = ? AND user_id = ?", mediaID, userID).
		Count(&n).Error
	if err != nil {
		return false, translate("check like", err)
	}
	return n > 0, nil
}

// LikedMediaIDs returns the subset of mediaIDs the user has liked.
func (t *Tables) LikedMediaIDs(ctx context.Context, userID uuid.UUID, mediaIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool)
	if len(mediaIDs) == 0 || userID == uuid.Nil {
		return liked, nil
	}

	var ids []uuid.UUID
	err := t.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND media_id IN ?", userID, mediaIDs).
		Pluck("media_id", &ids).Error
	if err != nil {
		return nil, translate("list likes", err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// ListComments returns a media item's comments oldest first.
func (t *Tables) ListComments(ctx context.Context, mediaID uuid.UUID) ([]models.Comment, error) {
	var comments []models.Comment
	err := t.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*, profiles.email AS author_email").
		Joins("LEFT JOIN profiles ON profiles.id = comments.user_id").
		Where("comments.media_id = ?", mediaID).
		Order("comments.created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate("list comments", err)
	}
	return comments, nil
}

func (t *Tables) InsertComment(ctx context.Context, c *models.Comment) error {
	return translate("insert comment", t.db.WithContext(ctx).Create(c).Error)
}

func (t *Tables) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := t.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		return nil, translate("get profile", err)
	}
	return &p, nil
}

func (t *Tables) GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var p models.Profile
	if err := t.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&p).Error; err != nil {
		return nil, translate("get profile", err)
	}
	return &p, nil
}

func (t *Tables) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int64
	err := t.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&n).Error
	if err != nil {
		return false, translate("check email", err)
	}
	return n > 0, nil
}

func (t *Tables) GetSettings(ctx context.Context) (*models.SiteSettings, error) {
	var s models.SiteSettings
	if err := t.db.WithContext(ctx).Where("id = ?", models.SiteSettingsID).Take(&s).Error; err != nil {
		return nil, translate("get settings", err)
	}
	return &s, nil
}

// SettingsUpdate names the settings columns to write. Nil fields are left
// alone.
type SettingsUpdate struct {
	MaintenanceMode *bool
	CustomCSS       *string
	FooterText      *string
	LogoURL         *string
}

func (u SettingsUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.MaintenanceMode != nil {
		cols["maintenance_mode"] = *u.MaintenanceMode
	}
	if u.CustomCSS != nil {
		cols["custom_css"] = *u.CustomCSS
	}
	if u.FooterText != nil {
		cols["footer_text"] = *u.FooterText
	}
	if u.LogoURL != nil {
		cols["logo_url"] = strings.TrimSpace(*u.LogoURL)
	}
	return cols
}

// UpdateSettings writes the given columns and returns the stored row.
func (t *Tables) UpdateSettings(ctx context.Context, u SettingsUpdate) (*models.SiteSettings, error) {
	cols := u.columns()
	if len(cols) == 0 {
		return nil, apperrors.Invalid("settings", "Nothing to update.")
	}

	var updated []models.SiteSettings
	err := t.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", models.SiteSettingsID).
		Updates(cols).Error
	if err != nil {
		return nil, translate("update settings", err)
	}
	if len(updated) == 0 {
		return nil, translate("update settings", gorm.ErrRecordNotFound)
	}
	return &updated[0], nil
}

func (t *Tables) InsertLog(ctx context.Context, entry *models.LogEntry) error {
	return translate("insert log", t.db.WithContext(ctx).Create(entry).Error)
}

// ListLogs returns one page of audit entries newest first and the total
// number of entries.
func (t *Tables) ListLogs(ctx context.Context, from, to int) ([]models.LogEntry, int64, error) {
	var total int64
	if err := t.db.WithContext(ctx).Model(&models.LogEntry{}).Count(&total).Error; err != nil {
		return nil, 0, translate("count logs", err)
	}
	if total == 0 || to <= from {
		return nil, total, nil
	}

	var entries []models.LogEntry
	err := t.db.WithContext(ctx).
		Model(&models.LogEntry{}).
		Select("logs.*, profiles.email AS actor_email").
		Joins("LEFT JOIN profiles ON profiles.id = logs.user_id").
		Order("logs.created_at DESC, logs.id DESC").
		Offset(from).
		Limit(to - from).
		Find(&entries).Error
	if err != nil {
		return nil, 0, translate("list logs", err)
	}
	return entries, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
