// Package idset is an insertion-ordered set keyed by value identity.
//
// It backs logger and listener registrations: add is idempotent, remove of an absent
// value is a no-op, and iteration works on a snapshot so callbacks may mutate the set.
package idset

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/statebus/failure"
	"github.com/samber/lo"
)

// Set is safe for concurrent use. The zero value is ready.
type Set[T any] struct {
	mu    sync.RWMutex
	items []T
	index map[any]struct{}
}

// Add inserts v and reports whether it was new. Values whose dynamic type cannot be
// compared are rejected with failure.CodeIncomparable.
func (s *Set[T]) Add(v T) (bool, error) {
	key, err := keyOf(v)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == nil {
		s.index = make(map[any]struct{})
	}
	if _, ok := s.index[key]; ok {
		return false, nil
	}
	s.index[key] = struct{}{}
	s.items = append(s.items, v)
	return true, nil
}

// Remove deletes v and reports whether it was present.
func (s *Set[T]) Remove(v T) bool {
	key, err := keyOf(v)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[key]; !ok {
		return false
	}
	delete(s.index, key)
	s.items = lo.Reject(s.items, func(item T, _ int) bool {
		k, _ := keyOf(item)
		return k == key
	})
	return true
}

// Contains reports membership.
func (s *Set[T]) Contains(v T) bool {
	key, err := keyOf(v)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[key]
	return ok
}

// Snapshot copies the members in insertion order.
func (s *Set[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

func (s *Set[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Set[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = nil
}

func keyOf(v any) (key any, err error) {
	if v == nil {
		return nil, errx.New("[idset]: nil value", errx.WithCode(failure.CodeIncomparable))
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, incomparable(v)
	}

	// Structs holding interface fields may still panic when hashed.
	defer func() {
		if r := recover(); r != nil {
			key, err = nil, incomparable(v)
		}
	}()
	probe := map[any]struct{}{}
	probe[v] = struct{}{}
	return v, nil
}

func incomparable(v any) error {
	return errx.New(
		"[idset]: value is not comparable; register a pointer instead",
		errx.WithCode(failure.CodeIncomparable),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"type": fmt.Sprintf("%T", v)}),
	)
}
