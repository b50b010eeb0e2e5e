package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Recorder accepts audit entries from request handlers without ever
// blocking them. Entries flow through a buffered channel to a single
// worker that writes them to the backing store; a write failure is
// logged locally and never propagated back to the security decision
// that produced the entry. Refusing a logout because the audit store
// is down would be an availability bug, not a security feature.
type Recorder struct {
	store        Store
	logger       *slog.Logger
	entries      chan Entry
	writeTimeout time.Duration
	drainTimeout time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBufferSize sets the pending-entry buffer. When the buffer is
// full, Record drops the entry and logs the drop.
func WithBufferSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.entries = make(chan Entry, n)
		}
	}
}

// WithWriteTimeout bounds a single store write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithDrainTimeout bounds how long Stop waits for buffered entries.
func WithDrainTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.drainTimeout = d
		}
	}
}

// WithLogger sets the logger for write failures and drops.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder creates an audit recorder. Call Start to begin the
// worker; entries recorded before Start are buffered up to the buffer
// size.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:        store,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		entries:      make(chan Entry, 256),
		writeTimeout: 5 * time.Second,
		drainTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record enqueues an entry, fire-and-forget. Never blocks: if the
// buffer is full the entry is dropped and the drop is logged.
func (r *Recorder) Record(entry Entry) {
	select {
	case r.entries <- entry:
	default:
		r.logger.Warn("audit buffer full, entry dropped",
			slog.String("action", string(entry.Action)),
			slog.String("actor", entry.Actor),
		)
	}
}

// Start runs the write worker until ctx is cancelled, then drains
// buffered entries within the drain timeout.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return fmt.Errorf("audit recorder already started")
	}
	workerCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.stopped = make(chan struct{})
	r.mu.Unlock()

	defer close(r.stopped)

	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-workerCtx.Done():
			r.drain()
			return workerCtx.Err()
		}
	}
}

// Stop cancels the worker and waits for the drain to complete.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel := r.cancel
	stopped := r.stopped
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return fmt.Errorf("audit recorder not started")
	}
	cancel()
	<-stopped
	return nil
}

// write persists one entry. Uses a background context so request
// cancellation upstream cannot abort an in-flight audit write.
func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("audit write failed",
			slog.String("action", string(entry.Action)),
			slog.String("actor", entry.Actor),
			slog.Any("error", err),
		)
	}
}

// drain flushes buffered entries after shutdown begins.
func (r *Recorder) drain() {
	deadline := time.After(r.drainTimeout)
	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-deadline:
			r.logger.Warn("audit drain timeout exceeded",
				slog.Int("pending", len(r.entries)))
			return
		default:
			return
		}
	}
}
