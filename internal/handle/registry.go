// Package handle keeps boundary-owned state behind opaque integer handles.
//
// A Handle packs a slot index and the slot's generation. Removing a value
// bumps the generation, so a handle used after destruction, or destroyed
// twice, is rejected instead of reaching freed or reused state.
package handle

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNullHandle is returned for the zero handle.
	ErrNullHandle = errors.New("handle: null handle")
	// ErrStaleHandle is returned for handles that were destroyed or never issued.
	ErrStaleHandle = errors.New("handle: stale or unknown handle")
)

// Handle is an opaque reference. The zero value is never issued.
type Handle uint64

func makeHandle(index int, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index+1))
}

func (h Handle) index() int { return int(uint32(h)) - 1 }

func (h Handle) gen() uint32 { return uint32(h >> 32) }

func (h Handle) String() string { return fmt.Sprintf("handle(%d/%d)", h.index(), h.gen()) }

type slot[T any] struct {
	gen   uint32
	live  bool
	value T
}

// Registry is a generation-checked arena of values of type T. It is safe
// for concurrent use; lookups only take a read lock.
type Registry[T any] struct {
	mu    sync.RWMutex
	slots []slot[T]
	free  []int
	live  int
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Insert stores v and returns its handle.
func (r *Registry[T]) Insert(v T) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot[T]{gen: 1})
		idx = len(r.slots) - 1
	}
	s := &r.slots[idx]
	s.live = true
	s.value = v
	r.live++
	return makeHandle(idx, s.gen)
}

// Get resolves h.
func (r *Registry[T]) Get(h Handle) (T, error) {
	var zero T
	if h == 0 {
		return zero, ErrNullHandle
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, err := r.lookup(h)
	if err != nil {
		return zero, err
	}
	return s.value, nil
}

// Remove invalidates h and returns the value it referenced.
func (r *Registry[T]) Remove(h Handle) (T, error) {
	var zero T
	if h == 0 {
		return zero, ErrNullHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.lookup(h)
	if err != nil {
		return zero, err
	}
	v := s.value
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		// generation zero is never issued
		s.gen = 1
	}
	r.free = append(r.free, h.index())
	r.live--
	return v, nil
}

// Len returns the number of live handles.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.live
}

func (r *Registry[T]) lookup(h Handle) (*slot[T], error) {
	idx := h.index()
	if idx < 0 || idx >= len(r.slots) {
		return nil, fmt.Errorf("%w: %v", ErrStaleHandle, h)
	}
	s := &r.slots[idx]
	if !s.live || s.gen != h.gen() {
		return nil, fmt.Errorf("%w: %v", ErrStaleHandle, h)
	}
	return s, nil
}
