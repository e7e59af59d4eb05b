package live

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/snap-point/gallery/likes"
	"github.com/snap-point/gallery/models"
)

// Browser to server.
const (
	MsgFeedMount     = "feed.mount"
	MsgFeedScroll    = "feed.scroll"
	MsgFeedRetry     = "feed.retry"
	MsgLikeToggle    = "like.toggle"
	MsgCommentsOpen  = "comments.open"
	MsgCommentSubmit = "comment.submit"
)

// Server to browser.
const (
	MsgFeedPage     = "feed.page"
	MsgLikeState    = "like.state"
	MsgToast        = "toast"
	MsgSettings     = "settings.update"
	MsgRedirect     = "redirect"
	MsgComments     = "comments.list"
	MsgCommentAdded = "comment.added"
)

type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type Outbound struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Item is a grid cell: the media row plus whether the viewer liked it.
type Item struct {
	models.Media
	Liked bool `json:"liked"`
}

type FeedPage struct {
	Items   []Item `json:"items"`
	Page    int    `json:"page"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	End     bool   `json:"end"`
	Failed  bool   `json:"failed,omitempty"`
}

type LikeState struct {
	MediaID uuid.UUID `json:"media_id"`
	likes.State
}

type Toast struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type Redirect struct {
	To string `json:"to"`
}

type mediaRef struct {
	MediaID uuid.UUID `json:"media_id"`
}

type commentInput struct {
	MediaID uuid.UUID `json:"media_id"`
	Text    string    `json:"text"`
}
