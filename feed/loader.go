// Package feed pages through media newest first and decides when a
// scrolling view needs the next page.
package feed

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/snap-point/gallery/apperrors"
	"github.com/snap-point/gallery/models"
)

const DefaultPageSize = 15

// ErrLoadInFlight is returned when a page is requested while another one is
// still loading.
var ErrLoadInFlight = errors.New("page load already in flight")

// Range is a half-open row range [From, To).
type Range struct {
	From int
	To   int
}

// PageRange returns the rows of a 1-indexed page. Pages past the last
// representable row are clamped to it.
func PageRange(page, size int) Range {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return Range{From: (page - 1) * size, To: page * size}
}

// Fetcher returns the media rows in [from, to), newest first.
type Fetcher interface {
	ListMedia(ctx context.Context, from, to int) ([]models.Media, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, from, to int) ([]models.Media, error)

func (f FetcherFunc) ListMedia(ctx context.Context, from, to int) ([]models.Media, error) {
	return f(ctx, from, to)
}

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	// StatusEmpty means the very first page came back empty.
	StatusEmpty
	// StatusEnd means a later page ran out of items.
	StatusEnd
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusEmpty:
		return "empty"
	case StatusEnd:
		return "end"
	}
	return "idle"
}

// Result describes one completed load.
type Result struct {
	Page   int
	Range  Range
	Items  []models.Media // newly appended, in backend order
	Status Status
	Err    error
}

// Loader accumulates pages for one view. It is safe for concurrent use;
// only one fetch runs at a time.
type Loader struct {
	fetcher Fetcher
	size    int

	mu        sync.Mutex
	page      int
	items     []models.Media
	seen      map[uuid.UUID]struct{}
	inFlight  bool
	exhausted bool
	failed    bool
	status    Status
}

func NewLoader(fetcher Fetcher, size int) *Loader {
	if size < 1 {
		size = DefaultPageSize
	}
	return &Loader{
		fetcher: fetcher,
		size:    size,
		page:    1,
		seen:    make(map[uuid.UUID]struct{}),
	}
}

// LoadNext fetches the current page and appends what it returns. A failed
// fetch leaves the page where it was so the next call retries it.
func (l *Loader) LoadNext(ctx context.Context) (Result, error) {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return Result{}, ErrLoadInFlight
	}
	if l.exhausted {
		res := Result{Page: l.page, Status: l.status}
		l.mu.Unlock()
		return res, nil
	}
	l.inFlight = true
	l.status = StatusLoading
	page := l.page
	rng := PageRange(page, l.size)
	l.mu.Unlock()

	rows, err := l.fetcher.ListMedia(ctx, rng.From, rng.To)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false

	res := Result{Page: page, Range: rng}
	if err != nil {
		l.failed = true
		l.status = StatusError
		res.Status = StatusError
		res.Err = err
		if !errors.Is(err, apperrors.ErrBackend) && ctx.Err() == nil {
			err = apperrors.Backend("load page", err)
		}
		return res, err
	}

	l.failed = false
	for _, m := range rows {
		if _, dup := l.seen[m.ID]; dup {
			continue
		}
		l.seen[m.ID] = struct{}{}
		l.items = append(l.items, m)
		res.Items = append(res.Items, m)
	}

	switch {
	case len(rows) == 0 && page == 1:
		l.exhausted = true
		l.status = StatusEmpty
	case len(rows) == 0:
		l.exhausted = true
		l.status = StatusEnd
	default:
		l.page++
		l.status = StatusIdle
		if len(rows) < l.size {
			l.exhausted = true
			l.status = StatusEnd
		}
	}
	res.Status = l.status
	return res, nil
}

// Items returns a copy of everything loaded so far.
func (l *Loader) Items() []models.Media {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Media(nil), l.items...)
}

// Lookup returns a loaded item by id.
func (l *Loader) Lookup(id uuid.UUID) (models.Media, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.items {
		if m.ID == id {
			return m, true
		}
	}
	return models.Media{}, false
}

func (l *Loader) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Failed reports whether the last fetch failed.
func (l *Loader) Failed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Exhausted reports whether no further pages will be requested.
func (l *Loader) Exhausted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exhausted
}

// Message is the text a view shows under the grid, or "" when there is
// nothing to say.
func (l *Loader) Message() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.status == StatusError && len(l.items) == 0:
		return "Oops! an error occurred, refresh page"
	case l.status == StatusError:
		return "can't fetch more Photos"
	case l.status == StatusEmpty:
		return "No media found"
	case l.status == StatusEnd:
		return "You've reached the end"
	}
	return ""
}
