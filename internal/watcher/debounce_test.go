package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockWatcher is a channel-backed Watcher for testing DebouncedWatcher.
type mockWatcher struct {
	mu       sync.Mutex
	events   chan Event
	errors   chan error
	watching map[string]bool
	closed   bool
}

func newMockWatcher() *mockWatcher {
	return &mockWatcher{
		events:   make(chan Event, 100),
		errors:   make(chan error, 100),
		watching: make(map[string]bool),
	}
}

func (m *mockWatcher) Watch(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watching[path] {
		return ErrAlreadyWatching
	}
	m.watching[path] = true
	return nil
}

func (m *mockWatcher) Unwatch(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.watching[path] {
		return ErrNotWatching
	}
	delete(m.watching, path)
	return nil
}

func (m *mockWatcher) Events() <-chan Event { return m.events }
func (m *mockWatcher) Errors() <-chan error { return m.errors }

func (m *mockWatcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
		close(m.errors)
	}
	return nil
}

func (m *mockWatcher) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{WatchedPaths: len(m.watching)}
}

func (m *mockWatcher) send(path string, op Op) {
	m.events <- Event{Path: path, Op: op, Timestamp: time.Now()}
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func waitPending(t *testing.T, dw *DebouncedWatcher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for dw.PendingCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("PendingCount() = %d, want %d", dw.PendingCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// waitOp waits until the pending event of key carries op and path.
func waitOp(t *testing.T, dw *DebouncedWatcher, key, path string, op Op) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		dw.mu.Lock()
		p := dw.pending[key]
		done := p != nil && p.event.Op == op && p.event.Path == path
		dw.mu.Unlock()
		if done {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("pending %q never reached %v", key, op)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDebouncedWatcher_CoalescesSamePath(t *testing.T) {
	mock := newMockWatcher()
	dw := NewDebouncedWatcher(mock, time.Hour)
	defer dw.Close()

	mock.send("/data/red.csv", OpCreate)
	mock.send("/data/red.csv", OpWrite)
	mock.send("/data/blue.csv", OpRemove)
	waitPending(t, dw, 2)

	dw.Flush()
	got := map[string]Op{}
	for i := 0; i < 2; i++ {
		e := waitEvent(t, dw.Events())
		got[e.Path] = e.Op
	}
	if got["/data/red.csv"] != OpCreate|OpWrite {
		t.Errorf("red op = %v, want CREATE|WRITE", got["/data/red.csv"])
	}
	if got["/data/blue.csv"] != OpRemove {
		t.Errorf("blue op = %v, want REMOVE", got["/data/blue.csv"])
	}
	if dw.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d, want 0", dw.PendingCount())
	}
}

func TestDebouncedWatcher_FiresAfterDelay(t *testing.T) {
	mock := newMockWatcher()
	dw := NewDebouncedWatcher(mock, 20*time.Millisecond)
	defer dw.Close()

	mock.send("/data/red.csv", OpWrite)
	e := waitEvent(t, dw.Events())
	if e.Path != "/data/red.csv" || e.Op != OpWrite {
		t.Errorf("event = %+v, want WRITE of red.csv", e)
	}
}

func TestDebouncedWatcher_KeyGroupsRelatedFiles(t *testing.T) {
	mock := newMockWatcher()
	key := func(path string) string {
		base := filepath.Base(path)
		if !strings.Contains(base, ".csv") {
			return ""
		}
		return strings.TrimSuffix(strings.TrimSuffix(base, ".tmp"), ".csv")
	}
	dw := NewDebouncedWatcher(mock, time.Hour, WithKey(key))
	defer dw.Close()

	// A save: write the temporary file, remove the old one, rename over it.
	mock.send("/data/red.csv.tmp", OpCreate|OpWrite)
	mock.send("/data/red.csv", OpRemove)
	mock.send("/data/red.csv.tmp", OpRename)
	mock.send("/data/red.csv", OpCreate)
	mock.send("/data/notes.txt", OpWrite)
	waitOp(t, dw, "red", "/data/red.csv", OpCreate|OpWrite|OpRemove|OpRename)
	waitPending(t, dw, 1)

	dw.Flush()
	e := waitEvent(t, dw.Events())
	if e.Path != "/data/red.csv" {
		t.Errorf("Path = %q, want the latest path", e.Path)
	}
	if e.Gone() {
		t.Errorf("Gone() = true for %v, want false", e.Op)
	}
}

func TestDebouncedWatcher_ForwardsErrorsAndCloses(t *testing.T) {
	mock := newMockWatcher()
	dw := NewDebouncedWatcher(mock, time.Hour)

	boom := errors.New("overflow")
	mock.errors <- boom
	select {
	case err := <-dw.Errors():
		if !errors.Is(err, boom) {
			t.Errorf("error = %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}

	mock.send("/data/red.csv", OpWrite)
	waitPending(t, dw, 1)
	if err := dw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := dw.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, ok := <-dw.Events(); ok {
		t.Error("Events() still open after Close")
	}
}

func TestListen(t *testing.T) {
	mock := newMockWatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var paths []string
	var errs []error
	done := make(chan struct{})
	go func() {
		Listen(ctx, mock, func(e Event) {
			mu.Lock()
			paths = append(paths, e.Path)
			mu.Unlock()
		}, func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		})
		close(done)
	}()

	mock.send("/a", OpWrite)
	mock.errors <- errors.New("x")
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n, m := len(paths), len(errs)
		mu.Unlock()
		if n == 1 && m == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d events and %d errors, want 1 and 1", n, m)
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if paths[0] != "/a" {
		t.Errorf("paths = %v, want [/a]", paths)
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpCreate, "CREATE"},
		{OpRemove | OpRename, "REMOVE|RENAME"},
		{0, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestEvent_Gone(t *testing.T) {
	tests := []struct {
		op   Op
		want bool
	}{
		{OpRemove, true},
		{OpRename, true},
		{OpRemove | OpCreate, false},
		{OpWrite, false},
	}
	for _, tt := range tests {
		if got := (Event{Op: tt.op}).Gone(); got != tt.want {
			t.Errorf("Event{%v}.Gone() = %v, want %v", tt.op, got, tt.want)
		}
	}
}
