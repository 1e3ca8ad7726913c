// Package bridge turns broker-native completion handles into blocking,
// context-aware waits.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/zpiroux/geist-kafka-admin/ikafka"
)

// States of a single await
const (
	statePending int32 = iota
	stateResolving
	stateResolved
	stateCancelled
)

type outcome[T any] struct {
	value T
	err   error
}

// waiter receives the outcome of one future. Only the first transition out of
// statePending is honoured, whichever side makes it.
type waiter[T any] struct {
	state atomic.Int32
	ch    chan outcome[T]
}

func newWaiter[T any]() *waiter[T] {
	return &waiter[T]{ch: make(chan outcome[T], 1)}
}

// resolve runs on the broker client's goroutine and only hands the outcome
// over to the waiting goroutine.
func (w *waiter[T]) resolve(v T, err error) {
	if !w.state.CompareAndSwap(statePending, stateResolving) {
		return
	}
	w.ch <- outcome[T]{value: v, err: err}
	w.state.Store(stateResolved)
}

func (w *waiter[T]) abandon() bool {
	return w.state.CompareAndSwap(statePending, stateCancelled)
}

// Await blocks until f resolves or ctx is done.
//
// Broker errors are returned unchanged, apart from cancellation-class errors
// which are reported as the caller's cancellation signal. If ctx is done
// before f resolves, f is cancelled (best effort) and ctx.Err() is returned.
// A value arriving while ctx is already done is discarded in favour of the
// cancellation.
func Await[T any](ctx context.Context, f ikafka.Future[T]) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		f.Cancel()
		return zero, err
	}

	w := newWaiter[T]()
	unregister := f.OnComplete(w.resolve)

	select {
	case o := <-w.ch:
		unregister()
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if o.err != nil {
			return zero, normalize(ctx, o.err)
		}
		return o.value, nil

	case <-ctx.Done():
		if w.abandon() {
			unregister()
			f.Cancel()
		}
		return zero, ctx.Err()
	}
}

// join collects the outcomes of a batch with all-semantics.
type join struct {
	remaining atomic.Int64
	failure   atomic.Pointer[error]
	done      chan struct{}
	once      sync.Once
}

func newJoin(n int) *join {
	j := &join{done: make(chan struct{})}
	j.remaining.Store(int64(n))
	return j
}

// listener returns the callback for one resource. It only counts the first
// invocation.
func (j *join) listener() func(error) {
	var fired atomic.Bool
	return func(err error) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		if err != nil {
			if j.failure.CompareAndSwap(nil, &err) {
				j.finish()
			}
			return
		}
		if j.remaining.Add(-1) == 0 {
			j.finish()
		}
	}
}

func (j *join) finish() {
	j.once.Do(func() { close(j.done) })
}

// AwaitAll blocks until every future succeeded, or returns the first failure
// observed. Futures still pending after a failure are left running. If ctx is
// done first, all futures are cancelled (best effort) and ctx.Err() is
// returned.
func AwaitAll[T any](ctx context.Context, futures []ikafka.ResourceFuture[T]) error {
	if err := ctx.Err(); err != nil {
		cancelAll(futures)
		return err
	}
	if len(futures) == 0 {
		return nil
	}

	j := newJoin(len(futures))
	unregisters := make([]func(), 0, len(futures))
	for _, rf := range futures {
		l := j.listener()
		unregisters = append(unregisters, rf.Future.OnComplete(func(_ T, err error) { l(err) }))
	}
	defer func() {
		for _, unregister := range unregisters {
			unregister()
		}
	}()

	select {
	case <-j.done:
		if err := ctx.Err(); err != nil {
			cancelAll(futures)
			return err
		}
		if failure := j.failure.Load(); failure != nil {
			return normalize(ctx, *failure)
		}
		return nil

	case <-ctx.Done():
		cancelAll(futures)
		return ctx.Err()
	}
}

func cancelAll[T any](futures []ikafka.ResourceFuture[T]) {
	for _, rf := range futures {
		rf.Future.Cancel()
	}
}

// IsCancellation reports if err is a cancellation-class error, as opposed to a
// broker failure.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ikafka.ErrCancelled)
}

func normalize(ctx context.Context, err error) error {
	if !IsCancellation(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return context.Canceled
}
