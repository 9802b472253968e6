// Package bus is the in-process fan-out of realtime traffic: one broadcast Topic per message kind,
// with cancellable subscriptions. Subscribers only see messages published after they subscribed.
package bus

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscription channel capacity used when Subscribe gets a non-positive size.
const DefaultBuffer = 16

// Topic broadcasts values of one type to every live subscription.
type Topic[T any] struct {
	name   string
	mu     sync.RWMutex
	subs   map[string]*Subscription[T]
	closed bool
}

// NewTopic returns an empty topic. name is used in log lines.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: make(map[string]*Subscription[T])}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Subscription is a handle on a topic. Release it with Cancel.
type Subscription[T any] struct {
	id    string
	topic *Topic[T]
	ch    chan T
	once  sync.Once
}

// ID identifies the subscription in logs.
func (s *Subscription[T]) ID() string { return s.id }

// C returns the delivery channel. It is closed after Cancel or when the topic closes.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Cancel detaches the subscription and closes its channel. Safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.topic.mu.Lock()
	delete(s.topic.subs, s.id)
	s.topic.mu.Unlock()
	s.close()
}

func (s *Subscription[T]) close() {
	s.once.Do(func() { close(s.ch) })
}

// Subscribe registers a new subscription with the given buffer size.
// Subscribing to a closed topic returns a subscription whose channel is already closed.
func (t *Topic[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription[T]{id: uuid.NewString(), topic: t, ch: make(chan T, buffer)}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		s.close()
		return s
	}
	t.subs[s.id] = s
	return s
}

// Publish delivers v to every subscription without blocking. A subscriber whose buffer is full
// misses v; the drop is logged.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	for id, s := range t.subs {
		select {
		case s.ch <- v:
		default:
			log.Printf("bus: %s: subscriber %s is full, dropping message", t.name, id)
		}
	}
}

// Len returns the number of live subscriptions.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Close closes every subscription. Later publishes are ignored.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for id, s := range t.subs {
		s.close()
		delete(t.subs, id)
	}
}

// Watch runs fn for every value published on t until the returned release func is called or the
// topic closes. release cancels the subscription and waits for fn to return.
func Watch[T any](t *Topic[T], buffer int, fn func(T)) (release func()) {
	sub := t.Subscribe(buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for v := range sub.C() {
			fn(v)
		}
	}()
	return func() {
		sub.Cancel()
		<-done
	}
}
