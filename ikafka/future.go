package ikafka

import "github.com/pkg/errors"

// Errors reported through futures
var (
	// ErrCancelled is the failure a Future resolves with when it is cancelled
	// before the broker client completed it.
	ErrCancelled = errors.New("future cancelled")

	// ErrNoResult is reported when the broker response lacks an entry for a
	// requested resource.
	ErrNoResult = errors.New("no result returned for resource")
)

// Future is a broker-native completion handle. It resolves exactly once, either
// with a value or with a broker-reported error.
type Future[T any] interface {

	// OnComplete registers cb to be called when the future resolves. If the
	// future has already resolved, cb is called immediately on the calling
	// goroutine. Otherwise cb is called on the broker client's goroutine, so it
	// must not block. The returned func unregisters cb; calling it after cb
	// has fired is a no-op.
	OnComplete(cb func(T, error)) (unregister func())

	// Cancel attempts to cancel the future. It returns false if the future
	// already resolved. Cancellation of in-flight broker I/O is best effort.
	Cancel() bool
}

// ResourceFuture is the completion handle for one named resource within a
// batch request.
type ResourceFuture[T any] struct {
	Name   string
	Future Future[T]
}

// Names returns the resource names of a batch in submission order.
func Names[T any](rfs []ResourceFuture[T]) []string {
	names := make([]string, 0, len(rfs))
	for _, rf := range rfs {
		names = append(names, rf.Name)
	}
	return names
}
