// Package likes flips a user's like on a media item while keeping the shown
// count consistent with the stored aggregate.
package likes

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/snap-point/gallery/apperrors"
)

// ErrToggleInFlight is returned when the same user toggles the same item
// again before the first toggle finished.
var ErrToggleInFlight = errors.New("like toggle already in flight")

// Store is the persistence a Toggler needs.
type Store interface {
	InsertLike(ctx context.Context, mediaID, userID uuid.UUID) error
	DeleteLike(ctx context.Context, mediaID, userID uuid.UUID) (bool, error)
	CountLikes(ctx context.Context, mediaID uuid.UUID) (int64, error)
}

// State is what the viewer sees for one item.
type State struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

type key struct {
	media uuid.UUID
	user  uuid.UUID
}

// Toggler serializes toggles per (item, user). Toggles on other items or by
// other users run concurrently.
type Toggler struct {
	store Store

	mu       sync.Mutex
	inFlight map[key]struct{}
}

func NewToggler(store Store) *Toggler {
	return &Toggler{store: store, inFlight: make(map[key]struct{})}
}

// Toggle flips current for userID on mediaID and returns the state to show.
// On error the returned state is current, unchanged.
func (t *Toggler) Toggle(ctx context.Context, mediaID, userID uuid.UUID, current State) (State, error) {
	if userID == uuid.Nil {
		return current, apperrors.ErrUnauthenticated
	}
	if current.Count < 0 {
		current.Count = 0
	}

	k := key{media: mediaID, user: userID}
	t.mu.Lock()
	if _, busy := t.inFlight[k]; busy {
		t.mu.Unlock()
		return current, ErrToggleInFlight
	}
	t.inFlight[k] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inFlight, k)
		t.mu.Unlock()
	}()

	cmd := toggleCommand{store: t.store, mediaID: mediaID, userID: userID, before: current}
	return cmd.run(ctx)
}

// InFlight reports whether a toggle for the pair is running.
func (t *Toggler) InFlight(mediaID, userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, busy := t.inFlight[key{media: mediaID, user: userID}]
	return busy
}

// toggleCommand holds one tentative transition and its compensation.
type toggleCommand struct {
	store   Store
	mediaID uuid.UUID
	userID  uuid.UUID
	before  State
}

func (c toggleCommand) tentative() State {
	if c.before.Liked {
		return State{Liked: false, Count: max(0, c.before.Count-1)}
	}
	return State{Liked: true, Count: c.before.Count + 1}
}

func (c toggleCommand) compensate(err error) (State, error) {
	if errors.Is(err, apperrors.ErrBackend) || errors.Is(err, apperrors.ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return c.before, err
	}
	return c.before, apperrors.Backend("toggle like", err)
}

// reconcile pairs liked with the stored count. Used when the row was
// already in the target state.
func (c toggleCommand) reconcile(ctx context.Context, liked bool) State {
	n, err := c.store.CountLikes(ctx, c.mediaID)
	if err != nil {
		guess := c.before.Count
		if liked && guess < 1 {
			guess = 1
		}
		return State{Liked: liked, Count: guess}
	}
	return State{Liked: liked, Count: n}
}

func (c toggleCommand) run(ctx context.Context) (State, error) {
	next := c.tentative()

	if c.before.Liked {
		deleted, err := c.store.DeleteLike(ctx, c.mediaID, c.userID)
		if err != nil {
			return c.compensate(err)
		}
		if !deleted {
			return c.reconcile(ctx, false), nil
		}
		return next, nil
	}

	err := c.store.InsertLike(ctx, c.mediaID, c.userID)
	switch {
	case errors.Is(err, apperrors.ErrConflict):
		return c.reconcile(ctx, true), nil
	case err != nil:
		return c.compensate(err)
	}
	return next, nil
}
