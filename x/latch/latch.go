// Package latch provides a single-slot, overwrite-on-write mailbox with
// non-destructive reads. Writers never block; any number of readers may peek
// the same latest value.
package latch

import (
	"sync"
	"time"
)

type Latch[T any] struct {
	mu    sync.Mutex
	set   bool
	v     T
	first chan struct{} // closed by the first Store
}

func New[T any]() *Latch[T] {
	return &Latch[T]{first: make(chan struct{})}
}

// Store replaces the latched value. Never blocks.
func (l *Latch[T]) Store(v T) {
	l.mu.Lock()
	l.v = v
	if !l.set {
		l.set = true
		close(l.first)
	}
	l.mu.Unlock()
}

// Peek returns the latest value without consuming it.
func (l *Latch[T]) Peek() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		var zero T
		return zero, false
	}
	return l.v, true
}

// Wait peeks the latest value, blocking up to d for the first value to be
// stored. d <= 0 means a non-blocking poll.
func (l *Latch[T]) Wait(d time.Duration) (T, bool) {
	if v, ok := l.Peek(); ok {
		return v, true
	}
	if d <= 0 {
		var zero T
		return zero, false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-l.first:
		return l.Peek()
	case <-t.C:
		var zero T
		return zero, false
	}
}
