package backend

import "sync"

// broker fans values out to subscribers. Slow subscribers lose their oldest
// undelivered value, never the newest.
type broker[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]*subscriber[T]
}

type subscriber[T any] struct {
	ch     chan T
	accept func(T) bool
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{subs: make(map[int]*subscriber[T])}
}

// subscribe registers a receiver. accept may be nil to receive everything.
// The returned func unsubscribes and closes the channel; it is safe to call
// more than once.
func (b *broker[T]) subscribe(buffer int, accept func(T) bool) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscriber[T]{ch: make(chan T, buffer), accept: accept}

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

func (b *broker[T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.accept != nil && !sub.accept(v) {
			continue
		}
		select {
		case sub.ch <- v:
			continue
		default:
		}
		// full: drop the oldest value and retry once
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- v:
		default:
		}
	}
}

func (b *broker[T]) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
