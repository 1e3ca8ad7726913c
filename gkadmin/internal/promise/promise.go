// Package promise provides a settable implementation of ikafka.Future, used by
// the broker client adapters to hand out per-resource completion handles.
package promise

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

type listener[T any] struct {
	id uint64
	cb func(T, error)
}

// Promise is a Future which is completed by its producer. The zero value is
// not usable, use New.
type Promise[T any] struct {
	mu        sync.Mutex
	resolved  bool
	value     T
	err       error
	listeners []listener[T]
	nextID    uint64
	onCancel  func()
	onSettle  func(cancelled bool)
	done      chan struct{}
}

var _ ikafka.Future[struct{}] = (*Promise[struct{}])(nil)

// New creates a pending promise. onCancel, if not nil, is called once if the
// promise is resolved through Cancel.
func New[T any](onCancel func()) *Promise[T] {
	return &Promise[T]{
		onCancel: onCancel,
		done:     make(chan struct{}),
	}
}

// Completed returns a promise already resolved with v.
func Completed[T any](v T) *Promise[T] {
	p := New[T](nil)
	p.Complete(v)
	return p
}

// Failed returns a promise already resolved with err.
func Failed[T any](err error) *Promise[T] {
	p := New[T](nil)
	p.Fail(err)
	return p
}

func (p *Promise[T]) OnComplete(cb func(T, error)) func() {
	p.mu.Lock()
	if p.resolved {
		v, err := p.value, p.err
		p.mu.Unlock()
		cb(v, err)
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.listeners = append(p.listeners, listener[T]{id: id, cb: cb})
	p.mu.Unlock()

	return func() { p.unregister(id) }
}

func (p *Promise[T]) unregister(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, l := range p.listeners {
		if l.id == id {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Complete resolves the promise with v. It returns false if already resolved.
func (p *Promise[T]) Complete(v T) bool {
	if !p.resolve(v, nil) {
		return false
	}
	p.settled(false)
	return true
}

// Fail resolves the promise with err. It returns false if already resolved.
func (p *Promise[T]) Fail(err error) bool {
	var zero T
	if !p.resolve(zero, err) {
		return false
	}
	p.settled(false)
	return true
}

func (p *Promise[T]) Cancel() bool {
	var zero T
	if !p.resolve(zero, ikafka.ErrCancelled) {
		return false
	}
	if p.onCancel != nil {
		p.onCancel()
	}
	p.settled(true)
	return true
}

func (p *Promise[T]) settled(cancelled bool) {
	if p.onSettle != nil {
		p.onSettle(cancelled)
	}
}

// Done is closed when the promise resolves.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Resolved reports if the promise has been resolved.
func (p *Promise[T]) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolved
}

// Result returns the outcome of the promise. It is only meaningful once Done
// is closed.
func (p *Promise[T]) Result() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Listeners returns the number of registered listeners still waiting.
func (p *Promise[T]) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

func (p *Promise[T]) resolve(v T, err error) bool {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return false
	}
	p.resolved = true
	p.value, p.err = v, err
	ls := p.listeners
	p.listeners = nil
	close(p.done)
	p.mu.Unlock()

	for _, l := range ls {
		l.cb(v, err)
	}
	return true
}

// Batch ties the promises of one vendor request to that request's context.
// The context is cancelled once no promise of the batch is pending and at
// least one of them was cancelled, so abandoning a single resource does not
// abort siblings still waiting for their result.
type Batch struct {
	ctx       context.Context
	cancel    context.CancelFunc
	pending   atomic.Int64
	cancelled atomic.Bool
}

// NewBatch creates a batch expecting n promises.
func NewBatch(n int) *Batch {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Batch{ctx: ctx, cancel: cancel}
	b.pending.Store(int64(n))
	if n == 0 {
		cancel()
	}
	return b
}

// Context is the context to issue the vendor request with.
func (b *Batch) Context() context.Context {
	return b.ctx
}

// Release frees the request context once the vendor call has returned.
func (b *Batch) Release() {
	b.cancel()
}

func (b *Batch) settle(cancelled bool) {
	if cancelled {
		b.cancelled.Store(true)
	}
	if b.pending.Add(-1) == 0 && b.cancelled.Load() {
		b.cancel()
	}
}

// NewPromise creates a promise belonging to the batch.
func NewPromise[T any](b *Batch) *Promise[T] {
	p := New[T](nil)
	p.onSettle = b.settle
	return p
}
