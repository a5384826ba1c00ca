// Package notify delivers node change notifications to external observers
// such as visualizers and autosave schedulers.
//
// Observers subscribe either to every change or to the changes of a single
// coaster. Delivery is synchronous by default; WithAsync moves delivery to a
// background goroutine so tick-thread publishers never block on observers.
package notify

import (
	"sync"
)

// ChangeType represents the kind of node change.
type ChangeType int

const (
	// ChangeCreated indicates a node was added.
	ChangeCreated ChangeType = iota

	// ChangeRemoved indicates a node was removed.
	ChangeRemoved

	// ChangeMoved indicates a node position changed.
	ChangeMoved

	// ChangeOriented indicates a node orientation changed.
	ChangeOriented

	// ChangeConnected indicates a connection was added to the node.
	ChangeConnected

	// ChangeDisconnected indicates a connection was removed from the node.
	ChangeDisconnected

	// ChangeSelected indicates the node was selected or unselected in an edit session.
	ChangeSelected

	// ChangeReload indicates the whole world was reloaded.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeRemoved:
		return "removed"
	case ChangeMoved:
		return "moved"
	case ChangeOriented:
		return "oriented"
	case ChangeConnected:
		return "connected"
	case ChangeDisconnected:
		return "disconnected"
	case ChangeSelected:
		return "selected"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a node change event.
type Change struct {
	// Coaster is the name of the coaster owning the node.
	// Empty for reload events.
	Coaster string

	// Node is the identifier of the changed node.
	Node uint64

	// Type is the type of change.
	Type ChangeType

	// Selected is the new selection state for ChangeSelected.
	Selected bool

	// Source identifies who made the change (session id, "load", ...).
	Source string
}

// Observer is called when node changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	coaster  string
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier manages change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	globalObservers  map[uint64]Observer
	coasterObservers map[string]map[uint64]Observer

	nextID uint64

	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		globalObservers:  make(map[uint64]Observer),
		coasterObservers: make(map[string]map[uint64]Observer),
		done:             make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{id: id, notifier: n}
}

// SubscribeCoaster registers an observer for changes to nodes of one coaster.
// Reload events are delivered to coaster observers as well.
func (n *Notifier) SubscribeCoaster(coaster string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.coasterObservers[coaster] == nil {
		n.coasterObservers[coaster] = make(map[uint64]Observer)
	}
	n.coasterObservers[coaster][id] = observer

	return &Subscription{id: id, coaster: coaster, notifier: n}
}

// Notify sends a change notification to all relevant observers.
// A nil Notifier discards the change.
func (n *Notifier) Notify(change Change) {
	if n == nil {
		return
	}

	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	n.mu.RUnlock()

	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}

	n.deliverChange(change)
}

// NotifyNode is a convenience method for single node changes.
func (n *Notifier) NotifyNode(coaster string, node uint64, typ ChangeType, source string) {
	n.Notify(Change{Coaster: coaster, Node: node, Type: typ, Source: source})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source string) {
	n.Notify(Change{Type: ChangeReload, Source: source})
}

// Close shuts down the notifier. It is safe to call Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for coaster, observers := range n.coasterObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.coasterObservers, coaster)
		}
	}
}

// deliverChange sends a change to all matching observers.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	if change.Type == ChangeReload {
		for _, coasterObs := range n.coasterObservers {
			for _, obs := range coasterObs {
				observers = append(observers, obs)
			}
		}
	} else if coasterObs, ok := n.coasterObservers[change.Coaster]; ok {
		for _, obs := range coasterObs {
			observers = append(observers, obs)
		}
	}

	n.mu.RUnlock()

	// Call observers outside the lock
	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Drain remaining buffered changes
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}
