package watcher

import (
	"sync"
	"time"
)

// DebouncedWatcher wraps a Watcher with event debouncing.
// Events with the same key arriving within the delay are coalesced into one
// event carrying the union of their operations and the latest path.
type DebouncedWatcher struct {
	inner Watcher
	delay time.Duration
	key   func(path string) string

	mu       sync.Mutex
	pending  map[string]*pendingEvent
	events   chan Event
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// DebounceOption configures a DebouncedWatcher.
type DebounceOption func(*DebouncedWatcher)

// WithKey groups events by key(path) instead of by path, so that changes to
// related files coalesce. Events for which key returns "" are dropped.
func WithKey(key func(path string) string) DebounceOption {
	return func(dw *DebouncedWatcher) { dw.key = key }
}

// NewDebouncedWatcher creates a debounced watcher wrapper.
func NewDebouncedWatcher(inner Watcher, delay time.Duration, opts ...DebounceOption) *DebouncedWatcher {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	dw := &DebouncedWatcher{
		inner:   inner,
		delay:   delay,
		key:     func(path string) string { return path },
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 100),
		errors:  make(chan error, 100),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(dw)
	}

	dw.closedWg.Add(1)
	go dw.processLoop()

	return dw
}

// Watch starts watching a path.
func (dw *DebouncedWatcher) Watch(path string) error { return dw.inner.Watch(path) }

// Unwatch stops watching a path.
func (dw *DebouncedWatcher) Unwatch(path string) error { return dw.inner.Unwatch(path) }

// Events returns the debounced event channel.
func (dw *DebouncedWatcher) Events() <-chan Event { return dw.events }

// Errors returns the error channel.
func (dw *DebouncedWatcher) Errors() <-chan error { return dw.errors }

// Close stops the debounced watcher and the inner watcher. Pending events
// are dropped.
func (dw *DebouncedWatcher) Close() error {
	dw.mu.Lock()
	if dw.closed {
		dw.mu.Unlock()
		return nil
	}
	dw.closed = true
	close(dw.closeCh)

	for key, p := range dw.pending {
		p.timer.Stop()
		delete(dw.pending, key)
	}
	dw.mu.Unlock()

	dw.closedWg.Wait()

	// Timers that already fired may still be sending.
	dw.mu.Lock()
	close(dw.events)
	close(dw.errors)
	dw.mu.Unlock()

	return dw.inner.Close()
}

// Stats returns watcher statistics.
func (dw *DebouncedWatcher) Stats() Stats {
	dw.mu.Lock()
	pendingCount := len(dw.pending)
	dw.mu.Unlock()

	stats := dw.inner.Stats()
	stats.PendingEvents = pendingCount
	return stats
}

func (dw *DebouncedWatcher) processLoop() {
	defer dw.closedWg.Done()

	for {
		select {
		case <-dw.closeCh:
			return

		case event, ok := <-dw.inner.Events():
			if !ok {
				return
			}
			dw.handleEvent(event)

		case err, ok := <-dw.inner.Errors():
			if !ok {
				return
			}
			select {
			case dw.errors <- err:
			default:
			}
		}
	}
}

func (dw *DebouncedWatcher) handleEvent(event Event) {
	key := dw.key(event.Path)
	if key == "" {
		return
	}

	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.closed {
		return
	}

	if p, exists := dw.pending[key]; exists {
		p.event.Op |= event.Op
		p.event.Path = event.Path
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(dw.delay)
		return
	}

	p := &pendingEvent{event: event}
	p.timer = time.AfterFunc(dw.delay, func() { dw.fire(key) })
	dw.pending[key] = p
}

func (dw *DebouncedWatcher) fire(key string) {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	p, exists := dw.pending[key]
	if !exists || dw.closed {
		return
	}
	delete(dw.pending, key)

	select {
	case dw.events <- p.event:
	default:
		// Channel full, drop event
	}
}

// Flush immediately fires all pending events.
func (dw *DebouncedWatcher) Flush() {
	dw.mu.Lock()
	keys := make([]string, 0, len(dw.pending))
	for key, p := range dw.pending {
		p.timer.Stop()
		keys = append(keys, key)
	}
	dw.mu.Unlock()

	for _, key := range keys {
		dw.fire(key)
	}
}

// PendingCount returns the number of pending events.
func (dw *DebouncedWatcher) PendingCount() int {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return len(dw.pending)
}

var _ Watcher = (*DebouncedWatcher)(nil)
