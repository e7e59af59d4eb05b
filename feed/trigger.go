package feed

import (
	"context"
	"errors"
	"sync"
)

// DefaultThreshold is how close to the bottom, in CSS pixels, the view must
// scroll before the next page is requested.
const DefaultThreshold = 700

// Metrics is a snapshot of the scroll container.
type Metrics struct {
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
	ScrollTop    float64 `json:"scrollTop"`
}

// Remaining is the distance left to the bottom of the content.
func (m Metrics) Remaining() float64 {
	return m.ScrollHeight - m.ClientHeight - m.ScrollTop
}

type TriggerState int

const (
	TriggerIdle TriggerState = iota
	TriggerPending
)

// PageLoader is what a Trigger drives.
type PageLoader interface {
	LoadNext(ctx context.Context) (Result, error)
	Exhausted() bool
}

// Trigger turns mount and scroll events into page loads. While a load is
// pending every further event is ignored. Results are handed to the
// callback from the loading goroutine, never after Unmount.
type Trigger struct {
	loader    PageLoader
	threshold float64
	onResult  func(Result, error)

	mu        sync.Mutex
	state     TriggerState
	mounted   bool
	unmounted bool
	wg        sync.WaitGroup
}

func NewTrigger(loader PageLoader, threshold float64, onResult func(Result, error)) *Trigger {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Trigger{loader: loader, threshold: threshold, onResult: onResult}
}

// Mount requests the first page. Only the first call has any effect.
func (t *Trigger) Mount(ctx context.Context) bool {
	t.mu.Lock()
	if t.mounted || t.unmounted {
		t.mu.Unlock()
		return false
	}
	t.mounted = true
	t.mu.Unlock()
	return t.fire(ctx)
}

// OnScroll requests the next page when m is within the threshold of the
// bottom. It reports whether a load was started.
func (t *Trigger) OnScroll(ctx context.Context, m Metrics) bool {
	t.mu.Lock()
	mounted := t.mounted
	t.mu.Unlock()
	if !mounted || m.Remaining() > t.threshold || t.loader.Exhausted() {
		return false
	}
	return t.fire(ctx)
}

// Retry re-requests the page that last failed, ignoring scroll position.
func (t *Trigger) Retry(ctx context.Context) bool {
	if t.loader.Exhausted() {
		return false
	}
	return t.fire(ctx)
}

func (t *Trigger) State() TriggerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Unmount stops delivering results and waits for a pending load to return.
// The caller should cancel the load's context first.
func (t *Trigger) Unmount() {
	t.mu.Lock()
	t.unmounted = true
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Trigger) fire(ctx context.Context) bool {
	t.mu.Lock()
	if t.state == TriggerPending || t.unmounted {
		t.mu.Unlock()
		return false
	}
	t.state = TriggerPending
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		res, err := t.loader.LoadNext(ctx)

		t.mu.Lock()
		t.state = TriggerIdle
		deliver := !t.unmounted && ctx.Err() == nil && !errors.Is(err, ErrLoadInFlight)
		t.mu.Unlock()

		if deliver && t.onResult != nil {
			t.onResult(res, err)
		}
	}()
	return true
}
