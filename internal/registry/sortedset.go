package registry

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

// btreeDegree is the branching factor of the underlying trees.
const btreeDegree = 16

// sortedSet is an ordered set with lock-free reads.
//
// The writer owns a mutable master tree. After every batch of changes it
// publishes a lazy copy-on-write clone of the master; published clones are
// never written again, so readers can iterate them concurrently with
// further writes.
type sortedSet[T any] struct {
	mu        sync.Mutex
	master    *btree.BTreeG[T]
	published atomic.Pointer[btree.BTreeG[T]]
}

func newSortedSet[T any](less btree.LessFunc[T]) *sortedSet[T] {
	s := &sortedSet[T]{
		master: btree.NewG[T](btreeDegree, less),
	}
	s.published.Store(s.master.Clone())
	return s
}

// apply runs fn against the master tree and publishes the result as one
// snapshot.
func (s *sortedSet[T]) apply(fn func(tree *btree.BTreeG[T])) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.master)
	s.published.Store(s.master.Clone())
}

// replace removes and inserts items in a single published change.
func (s *sortedSet[T]) replace(remove, insert []T) {
	if len(remove) == 0 && len(insert) == 0 {
		return
	}
	s.apply(func(tree *btree.BTreeG[T]) {
		for _, item := range remove {
			tree.Delete(item)
		}
		for _, item := range insert {
			tree.ReplaceOrInsert(item)
		}
	})
}

// clear removes every item.
func (s *sortedSet[T]) clear() {
	s.apply(func(tree *btree.BTreeG[T]) {
		tree.Clear(false)
	})
}

// snapshot returns the current read-only tree.
func (s *sortedSet[T]) snapshot() *btree.BTreeG[T] {
	return s.published.Load()
}

// ascend iterates the current snapshot in order until fn returns false.
func (s *sortedSet[T]) ascend(fn func(item T) bool) {
	s.snapshot().Ascend(btree.ItemIteratorG[T](fn))
}

// items returns the current snapshot as a slice.
func (s *sortedSet[T]) items() []T {
	snap := s.snapshot()
	out := make([]T, 0, snap.Len())
	snap.Ascend(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// len returns the size of the current snapshot.
func (s *sortedSet[T]) len() int {
	return s.snapshot().Len()
}
