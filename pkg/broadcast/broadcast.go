package broadcast

import (
	"context"
	"sync"
)

// Message wraps broadcast payloads for type-safe delivery.
type Message[T any] struct {
	Data T
}

// Broadcaster sends messages to multiple subscribers.
type Broadcaster[T any] interface {
	Broadcast(ctx context.Context, msg Message[T]) error
	Subscribe(ctx context.Context) Subscriber[T]
	Close() error
}

// Subscriber receives broadcast messages.
type Subscriber[T any] interface {
	Receive(ctx context.Context) <-chan Message[T]
	Close() error
}

// MemoryBroadcaster is an in-memory Broadcaster with non-blocking
// delivery. A subscriber whose buffer is full misses messages rather
// than slowing down the broadcaster or other subscribers.
type MemoryBroadcaster[T any] struct {
	mu      sync.RWMutex
	subs    map[*memorySubscriber[T]]struct{}
	bufSize int
	closed  bool
}

// NewMemoryBroadcaster creates a broadcaster whose subscribers each get
// a buffered channel of the given size.
func NewMemoryBroadcaster[T any](bufSize int) *MemoryBroadcaster[T] {
	if bufSize <= 0 {
		bufSize = 1
	}
	return &MemoryBroadcaster[T]{
		subs:    make(map[*memorySubscriber[T]]struct{}),
		bufSize: bufSize,
	}
}

// Broadcast delivers msg to all active subscribers without blocking.
func (b *MemoryBroadcaster[T]) Broadcast(ctx context.Context, msg Message[T]) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBroadcasterClosed
	}

	for sub := range b.subs {
		select {
		case sub.ch <- msg:
		default:
			// Slow consumer, drop for this subscriber only.
		}
	}

	return nil
}

// Subscribe registers a new subscriber. The subscription is removed
// automatically when ctx is cancelled or when the subscriber is closed.
func (b *MemoryBroadcaster[T]) Subscribe(ctx context.Context) Subscriber[T] {
	sub := &memorySubscriber[T]{
		ch:     make(chan Message[T], b.bufSize),
		parent: b,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		sub.closed = true
		return sub
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return sub
}

// Close shuts down the broadcaster and all subscribers.
func (b *MemoryBroadcaster[T]) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for sub := range b.subs {
		sub.closeLocked()
		delete(b.subs, sub)
	}

	return nil
}

func (b *MemoryBroadcaster[T]) remove(sub *memorySubscriber[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		sub.closeLocked()
	}
}

type memorySubscriber[T any] struct {
	ch     chan Message[T]
	parent *MemoryBroadcaster[T]

	mu     sync.Mutex
	closed bool
}

// Receive returns the subscriber's message channel. The channel is
// closed when the subscription ends.
func (s *memorySubscriber[T]) Receive(ctx context.Context) <-chan Message[T] {
	return s.ch
}

// Close unsubscribes and closes the message channel. Safe to call
// multiple times.
func (s *memorySubscriber[T]) Close() error {
	s.parent.remove(s)
	return nil
}

// closeLocked closes the channel; caller must hold the parent lock so
// no Broadcast can race the close.
func (s *memorySubscriber[T]) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
