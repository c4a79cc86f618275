package valueobject

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// Set is an immutable set of identifiers. Every operation returns a new
// Set; the receiver is never modified.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet builds a set from the given values, dropping duplicates
func NewSet[T comparable](values ...T) Set[T] {
	items := make(map[T]struct{}, len(values))
	for _, v := range values {
		items[v] = struct{}{}
	}
	return Set[T]{items: items}
}

// Len returns the number of members
func (s Set[T]) Len() int {
	return len(s.items)
}

// IsEmpty reports whether the set has no members
func (s Set[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Contains reports membership
func (s Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

// Values returns the members in no particular order
func (s Set[T]) Values() []T {
	out := make([]T, 0, len(s.items))
	for v := range s.items {
		out = append(out, v)
	}
	return out
}

// Sorted returns the members ordered by compare
func (s Set[T]) Sorted(compare func(a, b T) int) []T {
	out := s.Values()
	slices.SortFunc(out, compare)
	return out
}

// Union returns s ∪ other
func (s Set[T]) Union(other Set[T]) Set[T] {
	items := make(map[T]struct{}, len(s.items)+len(other.items))
	for v := range s.items {
		items[v] = struct{}{}
	}
	for v := range other.items {
		items[v] = struct{}{}
	}
	return Set[T]{items: items}
}

// Difference returns s - other
func (s Set[T]) Difference(other Set[T]) Set[T] {
	items := make(map[T]struct{}, len(s.items))
	for v := range s.items {
		if !other.Contains(v) {
			items[v] = struct{}{}
		}
	}
	return Set[T]{items: items}
}

// Intersect returns s ∩ other
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	items := make(map[T]struct{})
	for v := range s.items {
		if other.Contains(v) {
			items[v] = struct{}{}
		}
	}
	return Set[T]{items: items}
}

// Equal reports whether both sets hold the same members
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for v := range s.items {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// SetDiff describes how a set changed between two versions
type SetDiff[T comparable] struct {
	Added   Set[T]
	Removed Set[T]
	Kept    Set[T]
}

// Diff compares an old and a new version of a set
func Diff[T comparable](before, after Set[T]) SetDiff[T] {
	return SetDiff[T]{
		Added:   after.Difference(before),
		Removed: before.Difference(after),
		Kept:    before.Intersect(after),
	}
}

// Changed reports whether anything was added or removed
func (d SetDiff[T]) Changed() bool {
	return !d.Added.IsEmpty() || !d.Removed.IsEmpty()
}

// Chunk splits values into consecutive slices of at most size elements
func Chunk[T any](values []T, size int) [][]T {
	if size < 1 || len(values) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// IDSet is the set type used for user, career and concept identifiers
type IDSet = Set[uuid.UUID]

// NewIDSet builds an IDSet
func NewIDSet(ids ...uuid.UUID) IDSet {
	return NewSet(ids...)
}

// CompareUUID orders identifiers by their byte representation
func CompareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// SortedIDs returns the members of an IDSet in a stable order
func SortedIDs(s IDSet) []uuid.UUID {
	return s.Sorted(CompareUUID)
}
