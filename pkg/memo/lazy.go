// Package memo provides a lazily-initialized value guarded against repeated computation.
package memo

import "sync"

// Lazy holds a value computed on first successful access.
// A failed computation is not stored, so the next Get retries.
// The zero value is ready to use; a Lazy must not be copied after first use.
type Lazy[T any] struct {
	mu   sync.Mutex
	done bool
	val  T
}

// Get returns the stored value, computing it with fn if no successful value exists yet.
// Concurrent callers block until the first computation finishes.
func (l *Lazy[T]) Get(fn func() (T, error)) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return l.val, nil
	}

	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	l.val = v
	l.done = true
	return v, nil
}

// Loaded reports whether a value has been computed.
func (l *Lazy[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}
