package feed

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
)

// fakeFetcher serves a fixed, newest-first catalogue and records every
// requested range.
type fakeFetcher struct {
	mu      sync.Mutex
	catalog []models.Media
	ranges  []Range
	errs    []error       // consumed one per call
	gate    chan struct{} // when set, each call waits for a receive
	calls   int
}

func newCatalog(n int) []models.Media {
	items := make([]models.Media, n)
	now := time.Now()
	for i := range items {
		items[i] = models.Media{ID: uuid.New(), CreatedAt: now.Add(-time.Duration(i) * time.Minute)}
	}
	return items
}

func (f *fakeFetcher) ListMedia(ctx context.Context, from, to int) ([]models.Media, error) {
	f.mu.Lock()
	f.calls++
	f.ranges = append(f.ranges, Range{From: from, To: to})
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if from >= len(f.catalog) {
		return nil, nil
	}
	if to > len(f.catalog) {
		to = len(f.catalog)
	}
	return append([]models.Media(nil), f.catalog[from:to]...), nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPageRange(t *testing.T) {
	for _, size := range []int{1, 10, 15} {
		for page := 1; page <= 5; page++ {
			r := PageRange(page, size)
			assert.Equal(t, (page-1)*size, r.From)
			assert.Equal(t, page*size, r.To)
		}
	}

	assert.Equal(t, Range{From: 0, To: 15}, PageRange(0, 15))
	assert.Equal(t, Range{From: 15, To: 30}, PageRange(2, 0))

	for _, page := range []int{1 << 62, math.MaxInt} {
		r := PageRange(page, 15)
		assert.GreaterOrEqual(t, r.From, 0)
		assert.Equal(t, r.From+15, r.To)
	}
}

func TestLoader_RequestsConsecutiveRanges(t *testing.T) {
	f := &fakeFetcher{catalog: newCatalog(40)}
	l := NewLoader(f, 15)

	var statuses []Status
	for i := 0; i < 4; i++ {
		res, err := l.LoadNext(context.Background())
		require.NoError(t, err)
		statuses = append(statuses, res.Status)
	}

	assert.Equal(t, []Range{{0, 15}, {15, 30}, {30, 45}}, f.ranges)
	assert.Equal(t, []Status{StatusIdle, StatusIdle, StatusEnd, StatusEnd}, statuses)
	assert.Len(t, l.Items(), 40)
	assert.True(t, l.Exhausted())

	// order preserved, newest first
	items := l.Items()
	for i := 1; i < len(items); i++ {
		assert.True(t, items[i-1].CreatedAt.After(items[i].CreatedAt))
	}
}

func TestLoader_EmptyFirstPage(t *testing.T) {
	l := NewLoader(&fakeFetcher{}, 15)

	res, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusEmpty, res.Status)
	assert.Equal(t, "No media found", l.Message())
	assert.Empty(t, l.Items())
}

func TestLoader_EmptyLaterPageKeepsItems(t *testing.T) {
	f := &fakeFetcher{catalog: newCatalog(15)}
	l := NewLoader(f, 15)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	res, err := l.LoadNext(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StatusEnd, res.Status)
	assert.Equal(t, "You've reached the end", l.Message())
	assert.Len(t, l.Items(), 15)
	assert.Equal(t, 2, l.Page())
}

func TestLoader_FailureDoesNotAdvance(t *testing.T) {
	f := &fakeFetcher{catalog: newCatalog(30), errs: []error{nil, errors.New("timeout")}}
	l := NewLoader(f, 15)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)

	res, err := l.LoadNext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrBackend)
	assert.Equal(t, StatusError, res.Status)
	assert.True(t, l.Failed())
	assert.Equal(t, 2, l.Page())
	assert.Equal(t, "can't fetch more Photos", l.Message())

	res, err = l.LoadNext(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Items, 15)
	assert.False(t, l.Failed())
	assert.Len(t, l.Items(), 30)
	assert.Equal(t, []Range{{0, 15}, {15, 30}, {15, 30}}, f.ranges)
}

func TestLoader_FirstPageFailureMessage(t *testing.T) {
	l := NewLoader(&fakeFetcher{errs: []error{errors.New("down")}}, 15)

	_, err := l.LoadNext(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Oops! an error occurred, refresh page", l.Message())
}

func TestLoader_SkipsDuplicates(t *testing.T) {
	catalog := newCatalog(4)
	f := &fakeFetcher{catalog: catalog}
	l := NewLoader(f, 2)

	_, err := l.LoadNext(context.Background())
	require.NoError(t, err)

	// a new upload shifts every row down by one
	f.mu.Lock()
	f.catalog = append(newCatalog(1), catalog...)
	f.mu.Unlock()

	res, err := l.LoadNext(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, catalog[2].ID, res.Items[0].ID)
	assert.Len(t, l.Items(), 3)
}

func TestLoader_SingleFlight(t *testing.T) {
	f := &fakeFetcher{catalog: newCatalog(30), gate: make(chan struct{})}
	l := NewLoader(f, 15)

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadNext(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return f.Calls() == 1 }, time.Second, time.Millisecond)

	_, err := l.LoadNext(context.Background())
	assert.ErrorIs(t, err, ErrLoadInFlight)
	assert.Equal(t, StatusLoading, l.Status())

	f.gate <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.Calls())
	assert.Len(t, l.Items(), 15)
}
