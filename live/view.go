package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/comments"
	"github.com/snap-point/gallery/feed"
	"github.com/snap-point/gallery/guard"
	"github.com/snap-point/gallery/likes"
	"github.com/snap-point/gallery/models"
	"github.com/snap-point/gallery/session"
)

// Sender delivers a message to one browser tab. It reports false when the
// tab is gone or not keeping up.
type Sender interface {
	Deliver(msg Outbound) bool
}

// LikeLookup tells which of ids the user has liked.
type LikeLookup interface {
	LikedMediaIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error)
}

// SettingsSource reports the current site settings.
type SettingsSource interface {
	Settings() models.SiteSettings
}

// Deps are the process-wide services a view uses. Toggler must be shared by
// every view so that toggles are serialized per item and user. A nil
// Settings means maintenance mode is never on.
type Deps struct {
	Fetcher   feed.Fetcher
	PageSize  int
	Threshold float64
	Toggler   *likes.Toggler
	Likes     LikeLookup
	Comments  *comments.Service
	Settings  SettingsSource
	Log       *zap.Logger
}

// View is the server side of one open grid: its loaded pages, scroll
// trigger and the viewer's like states.
type View struct {
	deps Deps
	sess *session.Session
	out  Sender

	ctx     context.Context
	cancel  context.CancelFunc
	loader  *feed.Loader
	trigger *feed.Trigger

	mu    sync.Mutex
	likes map[uuid.UUID]likes.State
	wg    sync.WaitGroup
}

func NewView(parent context.Context, out Sender, sess *session.Session, deps Deps) *View {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	v := &View{
		deps:   deps,
		sess:   sess,
		out:    out,
		ctx:    ctx,
		cancel: cancel,
		loader: feed.NewLoader(deps.Fetcher, deps.PageSize),
		likes:  make(map[uuid.UUID]likes.State),
	}
	v.trigger = feed.NewTrigger(v.loader, deps.Threshold, v.onPage)
	return v
}

// Handle dispatches one browser message. It never blocks on the backend.
// While maintenance mode is on, visitors other than admins are redirected
// to the maintenance page instead.
func (v *View) Handle(msg Inbound) {
	if v.underMaintenance() {
		v.send(MsgRedirect, Redirect{To: guard.MaintenancePath})
		return
	}
	switch msg.Type {
	case MsgFeedMount:
		v.trigger.Mount(v.ctx)
	case MsgFeedScroll:
		var m feed.Metrics
		if v.decode(msg, &m) {
			v.trigger.OnScroll(v.ctx, m)
		}
	case MsgFeedRetry:
		v.trigger.Retry(v.ctx)
	case MsgLikeToggle:
		var ref mediaRef
		if v.decode(msg, &ref) {
			v.toggleLike(ref.MediaID)
		}
	case MsgCommentsOpen:
		var ref mediaRef
		if v.decode(msg, &ref) {
			v.async(func() { v.openComments(ref.MediaID) })
		}
	case MsgCommentSubmit:
		var in commentInput
		if v.decode(msg, &in) {
			v.submitComment(in)
		}
	default:
		v.deps.Log.Debug("unknown live message", zap.String("type", msg.Type))
	}
}

func (v *View) underMaintenance() bool {
	if v.deps.Settings == nil || !v.deps.Settings.Settings().MaintenanceMode {
		return false
	}
	return v.sess == nil || v.sess.Role != models.RoleAdmin
}

// Close cancels outstanding work and waits for it to return. Late results
// are dropped.
func (v *View) Close() {
	v.cancel()
	v.trigger.Unmount()
	v.wg.Wait()
}

func (v *View) onPage(res feed.Result, err error) {
	var liked map[uuid.UUID]bool
	if v.sess != nil && len(res.Items) > 0 {
		ids := make([]uuid.UUID, len(res.Items))
		for i, m := range res.Items {
			ids[i] = m.ID
		}
		var lerr error
		liked, lerr = v.deps.Likes.LikedMediaIDs(v.ctx, v.sess.UserID, ids)
		if lerr != nil {
			v.deps.Log.Warn("liked state unavailable", zap.Error(lerr))
		}
	}

	items := make([]Item, len(res.Items))
	v.mu.Lock()
	for i, m := range res.Items {
		items[i] = Item{Media: m, Liked: liked[m.ID]}
		v.likes[m.ID] = likes.State{Liked: liked[m.ID], Count: m.LikeCount}
	}
	v.mu.Unlock()

	v.send(MsgFeedPage, FeedPage{
		Items:   items,
		Page:    res.Page,
		Status:  res.Status.String(),
		Message: v.loader.Message(),
		End:     v.loader.Exhausted(),
		Failed:  err != nil,
	})
}

func (v *View) toggleLike(mediaID uuid.UUID) {
	if v.sess == nil {
		v.send(MsgRedirect, Redirect{To: "/login"})
		return
	}
	current := v.likeState(mediaID)

	v.async(func() {
		next, err := v.deps.Toggler.Toggle(v.ctx, mediaID, v.sess.UserID, current)
		switch {
		case errors.Is(err, likes.ErrToggleInFlight):
			return
		case errors.Is(err, apperrors.ErrUnauthenticated):
			v.send(MsgRedirect, Redirect{To: "/login"})
			return
		case err != nil:
			if v.ctx.Err() != nil {
				return
			}
			v.deps.Log.Warn("like toggle failed", zap.String("media_id", mediaID.String()), zap.Error(err))
			v.send(MsgToast, Toast{Level: "error", Message: "Could not update like. Please try again."})
		}

		v.mu.Lock()
		v.likes[mediaID] = next
		v.mu.Unlock()
		v.send(MsgLikeState, LikeState{MediaID: mediaID, State: next})
	})
}

func (v *View) likeState(mediaID uuid.UUID) likes.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if st, ok := v.likes[mediaID]; ok {
		return st
	}
	if m, ok := v.loader.Lookup(mediaID); ok {
		return likes.State{Count: m.LikeCount}
	}
	return likes.State{}
}

func (v *View) openComments(mediaID uuid.UUID) {
	detail, err := v.deps.Comments.Open(v.ctx, mediaID)
	if err != nil {
		if v.ctx.Err() != nil {
			return
		}
		v.send(MsgToast, Toast{Level: "error", Message: apperrors.PublicMessage(err)})
		return
	}

	v.mu.Lock()
	if _, ok := v.likes[mediaID]; !ok {
		v.likes[mediaID] = likes.State{Count: detail.Media.LikeCount}
	}
	v.mu.Unlock()
	v.send(MsgComments, detail)
}

func (v *View) submitComment(in commentInput) {
	if v.sess == nil {
		v.send(MsgRedirect, Redirect{To: "/login"})
		return
	}
	if _, err := comments.ValidateText(in.Text); err != nil {
		v.send(MsgToast, Toast{Level: "error", Message: apperrors.PublicMessage(err)})
		return
	}

	v.async(func() {
		c, err := v.deps.Comments.Submit(v.ctx, in.MediaID, v.sess, in.Text)
		if err != nil {
			if v.ctx.Err() != nil {
				return
			}
			v.deps.Log.Warn("comment not saved", zap.String("media_id", in.MediaID.String()), zap.Error(err))
			v.send(MsgToast, Toast{Level: "error", Message: "Could not post comment. Please try again."})
			return
		}
		v.send(MsgCommentAdded, commentAdded{MediaID: in.MediaID, Comment: *c})
	})
}

type commentAdded struct {
	MediaID uuid.UUID      `json:"media_id"`
	Comment models.Comment `json:"comment"`
}

func (v *View) async(fn func()) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		fn()
	}()
}

func (v *View) decode(msg Inbound, dst interface{}) bool {
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		v.deps.Log.Debug("malformed live message", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	return true
}

func (v *View) send(typ string, data interface{}) {
	if v.ctx.Err() != nil {
		return
	}
	v.out.Deliver(Outbound{Type: typ, Data: data, Timestamp: time.Now()})
}
